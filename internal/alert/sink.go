// Package alert drives the alarm's side effects: looping sound, vibration,
// a desktop notification and the volume lock.
package alert

import (
	"context"
	"sync"
	"time"

	"github.com/SoarinFerret/GetUp/internal/alarm"
	"go.uber.org/zap"
)

// Player loops the alarm sound.
type Player interface {
	// Play starts or continues the loop.
	Play() error
	// Rewind stops playback and rearms it at the beginning of the sound.
	Rewind()
}

// Vibrator triggers one round of the vibration pattern.
type Vibrator interface {
	Vibrate(ctx context.Context) error
	Cancel(ctx context.Context) error
}

// Notifier shows the ongoing-alarm notification.
type Notifier interface {
	Show(ctx context.Context, summary, body string) error
	Close(ctx context.Context) error
}

// Mixer controls the output volume in discrete levels.
type Mixer interface {
	MaxVolume() int
	Volume() (int, error)
	SetVolume(level int) error
}

// Devices are the capabilities a Sink drives. Nil members are skipped.
type Devices struct {
	Player   Player
	Vibrator Vibrator
	Notifier Notifier
	Mixer    Mixer
}

type Options struct {
	VibrationPeriod    time.Duration
	VolumeLock         bool
	VolumeLockInterval time.Duration
	CallTimeout        time.Duration
}

const (
	notificationSummary = "Alarm is ringing"
	notificationBody    = "It's time to get up!"
)

// Sink implements alarm.Sink on top of Devices.
type Sink struct {
	dev  Devices
	opts Options
	log  *zap.Logger

	mu         sync.Mutex
	running    bool
	paused     bool
	savedLevel int
	saved      bool
	lock       *volumeLock
	vibe       *repeater
}

var _ alarm.Sink = (*Sink)(nil)

func NewSink(dev Devices, opts Options, log *zap.Logger) *Sink {
	if opts.VibrationPeriod <= 0 {
		opts.VibrationPeriod = time.Second
	}
	if opts.VolumeLockInterval <= 0 {
		opts.VolumeLockInterval = 250 * time.Millisecond
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 2 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sink{dev: dev, opts: opts, log: log.Named("alert")}
}

// Start sets the volume, starts the sound loop, vibration and notification.
// A sound failure is returned as an ErrAudioDeviceUnavailable error after the
// other channels have started.
func (s *Sink) Start(volumePct float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	s.running = true
	s.paused = false

	s.applyVolume(volumePct)

	var result error
	if s.dev.Player != nil {
		if err := s.dev.Player.Play(); err != nil {
			result = alarm.Wrap(alarm.ErrAudioDeviceUnavailable, err, "failed to start alarm sound")
		}
	}
	s.startVibration()

	if s.dev.Notifier != nil {
		ctx, cancel := s.callContext()
		if err := s.dev.Notifier.Show(ctx, notificationSummary, notificationBody); err != nil {
			s.log.Warn("failed to show notification", zap.Error(err))
		}
		cancel()
	}
	return result
}

// Stop tears everything down and restores the original volume. The volume
// lock is unregistered before Stop returns.
func (s *Sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.paused = false

	if s.lock != nil {
		s.lock.stop()
		s.lock = nil
	}
	if s.dev.Player != nil {
		s.dev.Player.Rewind()
	}
	s.stopVibration()

	ctx, cancel := s.callContext()
	defer cancel()

	if s.dev.Notifier != nil {
		if err := s.dev.Notifier.Close(ctx); err != nil {
			s.log.Warn("failed to close notification", zap.Error(err))
		}
	}
	if s.saved {
		if err := s.dev.Mixer.SetVolume(s.savedLevel); err != nil {
			s.log.Warn("failed to restore volume", zap.Int("level", s.savedLevel), zap.Error(err))
		}
		s.saved = false
	}
}

// Pause silences sound and vibration and rearms the sound from the start.
func (s *Sink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.paused {
		return
	}
	s.paused = true
	if s.dev.Player != nil {
		s.dev.Player.Rewind()
	}
	s.stopVibration()
}

func (s *Sink) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || !s.paused {
		return
	}
	s.paused = false
	if s.dev.Player != nil {
		if err := s.dev.Player.Play(); err != nil {
			s.log.Warn("failed to resume alarm sound", zap.Error(err))
		}
	}
	s.startVibration()
}

// SetVolume moves a running alert to pct.
func (s *Sink) SetVolume(pct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.dev.Mixer == nil {
		return
	}
	level := Level(pct, s.dev.Mixer.MaxVolume())
	if s.lock != nil {
		s.lock.setTarget(level)
	}
	if err := s.dev.Mixer.SetVolume(level); err != nil {
		s.log.Warn("failed to set volume", zap.Int("level", level), zap.Error(err))
	}
}

func (s *Sink) applyVolume(pct float64) {
	m := s.dev.Mixer
	if m == nil {
		return
	}

	if current, err := m.Volume(); err != nil {
		s.log.Warn("failed to read volume, it will not be restored", zap.Error(err))
	} else {
		s.savedLevel = current
		s.saved = true
	}

	level := Level(pct, m.MaxVolume())
	if err := m.SetVolume(level); err != nil {
		s.log.Warn("failed to set alarm volume", zap.Int("level", level), zap.Error(err))
	}
	s.log.Debug("alarm volume set", zap.Float64("pct", pct), zap.Int("level", level), zap.Int("max", m.MaxVolume()))

	if s.opts.VolumeLock {
		s.lock = startVolumeLock(m, level, s.opts.VolumeLockInterval, s.log)
	}
}

func (s *Sink) startVibration() {
	v := s.dev.Vibrator
	if v == nil || s.vibe != nil {
		return
	}
	s.vibe = startRepeater(s.opts.VibrationPeriod, func() {
		ctx, cancel := s.callContext()
		defer cancel()
		if err := v.Vibrate(ctx); err != nil {
			s.log.Debug("vibration failed", zap.Error(err))
		}
	})
}

func (s *Sink) stopVibration() {
	if s.vibe == nil {
		return
	}
	s.vibe.stop()
	s.vibe = nil

	ctx, cancel := s.callContext()
	defer cancel()
	if err := s.dev.Vibrator.Cancel(ctx); err != nil {
		s.log.Debug("failed to cancel vibration", zap.Error(err))
	}
}

func (s *Sink) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opts.CallTimeout)
}
