package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that reads from TOML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return goerr.Wrap(err, "invalid duration", goerr.V("value", string(text)))
	}
	if parsed < 0 {
		return goerr.New("duration must be non-negative", goerr.V("value", string(text)))
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type AlarmConfig struct {
	SnoozeWindow       Duration `toml:"snooze_window"`
	SnoozeLimit        int      `toml:"snooze_limit"`
	CodeLength         int      `toml:"code_length"`
	FirstRunCodeLength int      `toml:"first_run_code_length"`
	TickInterval       Duration `toml:"tick_interval"`
	MaxTimerSleep      Duration `toml:"max_timer_sleep"`
}

type StoreConfig struct {
	Backend string `toml:"backend"` // sqlite, file or memory
	Path    string `toml:"path"`
}

type AlertConfig struct {
	SoundFile          string   `toml:"sound_file"`
	Audio              *bool    `toml:"audio"`
	VolumeSteps        int      `toml:"volume_steps"`
	VolumeLock         *bool    `toml:"volume_lock"`
	VolumeLockInterval Duration `toml:"volume_lock_interval"`
	Vibration          string   `toml:"vibration"` // auto or off
	VibrationPeriod    Duration `toml:"vibration_period"`
	Notification       *bool    `toml:"notification"`
}

type DBusConfig struct {
	Bus string `toml:"bus"` // session or system
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Alarm AlarmConfig `toml:"alarm"`
	Store StoreConfig `toml:"store"`
	Alert AlertConfig `toml:"alert"`
	DBus  DBusConfig  `toml:"dbus"`
	Log   LogConfig   `toml:"log"`
}

// DefaultPath returns $XDG_CONFIG_HOME/getup/config.toml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "getup", "config.toml")
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "getup", "alarm_prefs.db")
}

// SetDefault fills every unset field.
func (c *Config) SetDefault() {
	if c.Alarm.SnoozeWindow == 0 {
		c.Alarm.SnoozeWindow = Duration(30 * time.Second)
	}
	if c.Alarm.CodeLength <= 0 {
		c.Alarm.CodeLength = 8
	}
	if c.Alarm.FirstRunCodeLength <= 0 {
		c.Alarm.FirstRunCodeLength = 4
	}
	if c.Alarm.TickInterval == 0 {
		c.Alarm.TickInterval = Duration(time.Second)
	}
	if c.Alarm.MaxTimerSleep == 0 {
		c.Alarm.MaxTimerSleep = Duration(30 * time.Second)
	}

	if c.Store.Backend == "" {
		c.Store.Backend = "sqlite"
	}
	if c.Store.Path == "" && c.Store.Backend != "memory" {
		c.Store.Path = defaultStorePath()
		if c.Store.Backend == "file" {
			c.Store.Path = filepath.Join(filepath.Dir(c.Store.Path), "alarm_prefs.json")
		}
	}

	enabled := true
	if c.Alert.Audio == nil {
		c.Alert.Audio = &enabled
	}
	if c.Alert.VolumeSteps <= 0 {
		c.Alert.VolumeSteps = 15
	}
	if c.Alert.VolumeLock == nil {
		c.Alert.VolumeLock = &enabled
	}
	if c.Alert.VolumeLockInterval == 0 {
		c.Alert.VolumeLockInterval = Duration(250 * time.Millisecond)
	}
	if c.Alert.Vibration == "" {
		c.Alert.Vibration = "auto"
	}
	if c.Alert.VibrationPeriod == 0 {
		c.Alert.VibrationPeriod = Duration(time.Second)
	}
	if c.Alert.Notification == nil {
		c.Alert.Notification = &enabled
	}

	if c.DBus.Bus == "" {
		c.DBus.Bus = "session"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects values SetDefault cannot repair.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "sqlite", "file", "memory":
	default:
		return goerr.New("unknown store backend", goerr.V("backend", c.Store.Backend))
	}
	switch c.DBus.Bus {
	case "session", "system":
	default:
		return goerr.New("unknown bus", goerr.V("bus", c.DBus.Bus))
	}
	switch c.Alert.Vibration {
	case "auto", "off":
	default:
		return goerr.New("unknown vibration mode", goerr.V("vibration", c.Alert.Vibration))
	}
	if c.Alarm.SnoozeLimit < 0 {
		return goerr.New("snooze_limit must be non-negative", goerr.V("snooze_limit", c.Alarm.SnoozeLimit))
	}
	return nil
}

// LoadConfigFromFile reads path. A missing file yields the defaults.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return LoadConfigFromBytes(nil)
		}
		return nil, goerr.Wrap(err, "failed to read config", goerr.V("path", path))
	}
	cfg, err := LoadConfigFromBytes(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load config", goerr.V("path", path))
	}
	return cfg, nil
}

func LoadConfigFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to decode config")
	}
	cfg.SetDefault()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
