package alert

import (
	"os"

	"github.com/SoarinFerret/GetUp/internal/config"
	"github.com/godbus/dbus/v5"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"
)

// AppName identifies the alarm to notification and feedback daemons.
const AppName = "getup"

// Setup builds a Sink from cfg. conn is the session bus; when nil the
// vibrator and notifier are left out. A missing audio or mixer device is
// logged and skipped. The returned func releases the devices.
func Setup(cfg config.AlertConfig, conn *dbus.Conn, log *zap.Logger) (*Sink, func(), error) {
	if log == nil {
		log = zap.NewNop()
	}
	var dev Devices
	closers := []func(){}

	if cfg.Audio == nil || *cfg.Audio {
		var wav []byte
		if cfg.SoundFile != "" {
			data, err := os.ReadFile(cfg.SoundFile)
			if err != nil {
				return nil, nil, goerr.Wrap(err, "failed to read sound file", goerr.V("path", cfg.SoundFile))
			}
			wav = data
		}
		player, err := NewOtoPlayer(wav, log)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to load sound", goerr.V("path", cfg.SoundFile))
		}
		dev.Player = player

		mixer, err := NewPulseMixer(AppName, cfg.VolumeSteps)
		if err != nil {
			log.Warn("volume control unavailable", zap.Error(err))
		} else {
			dev.Mixer = mixer
			closers = append(closers, mixer.Close)
		}
	}

	if conn != nil {
		dev.Vibrator = NewVibrator(conn, cfg.Vibration, AppName, log)
		if cfg.Notification == nil || *cfg.Notification {
			dev.Notifier = NewDesktopNotifier(conn, AppName)
		}
	}

	sink := NewSink(dev, Options{
		VibrationPeriod:    cfg.VibrationPeriod.Std(),
		VolumeLock:         cfg.VolumeLock == nil || *cfg.VolumeLock,
		VolumeLockInterval: cfg.VolumeLockInterval.Std(),
	}, log)

	release := func() {
		sink.Stop()
		for _, c := range closers {
			c()
		}
	}
	return sink, release, nil
}
