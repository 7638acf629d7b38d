// Package engine drives the alarm controller's periodic work.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Ticker is the periodic entry point of the alarm controller.
type Ticker interface {
	Tick(now time.Time)
}

// Engine calls Tick on a fixed interval. Snooze deadlines, missed fires and
// deferred store writes are all handled there.
type Engine struct {
	ctrl     Ticker
	interval time.Duration
	log      *zap.Logger

	Now func() time.Time
}

// NewEngine creates an engine ticking every interval
func NewEngine(ctrl Ticker, interval time.Duration, log *zap.Logger) *Engine {
	if interval <= 0 {
		interval = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		ctrl:     ctrl,
		interval: interval,
		log:      log.Named("engine"),
		Now:      time.Now,
	}
}

// Run ticks until ctx is done
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.log.Info("engine started", zap.Duration("interval", e.interval))

	// Run immediately on start
	e.ctrl.Tick(e.Now())

	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine shutting down")
			return nil
		case <-ticker.C:
			e.ctrl.Tick(e.Now())
		}
	}
}

// Kick runs a tick right away, e.g. after resume from suspend.
func (e *Engine) Kick() {
	e.ctrl.Tick(e.Now())
}
