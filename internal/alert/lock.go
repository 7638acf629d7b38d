package alert

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// volumeLock keeps the mixer at a target level, undoing changes made by
// anything else while the alert sounds.
type volumeLock struct {
	mixer    Mixer
	target   atomic.Int64
	interval time.Duration
	log      *zap.Logger

	stopc chan struct{}
	done  chan struct{}
}

func startVolumeLock(mixer Mixer, level int, interval time.Duration, log *zap.Logger) *volumeLock {
	l := &volumeLock{
		mixer:    mixer,
		interval: interval,
		log:      log,
		stopc:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	l.target.Store(int64(level))
	go l.run()
	return l
}

func (l *volumeLock) setTarget(level int) {
	l.target.Store(int64(level))
}

func (l *volumeLock) run() {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopc:
			return
		case <-ticker.C:
			l.reassert()
		}
	}
}

func (l *volumeLock) reassert() {
	current, err := l.mixer.Volume()
	if err != nil {
		l.log.Debug("failed to read mixer volume", zap.Error(err))
		return
	}
	target := int(l.target.Load())
	if current == target {
		return
	}
	l.log.Info("volume changed while alert is sounding, restoring", zap.Int("level", current), zap.Int("target", target))
	if err := l.mixer.SetVolume(target); err != nil {
		l.log.Warn("failed to restore volume", zap.Error(err))
	}
}

// stop unregisters the lock. No reassertion happens after it returns.
func (l *volumeLock) stop() {
	close(l.stopc)
	<-l.done
}
