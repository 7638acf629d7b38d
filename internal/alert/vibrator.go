package alert

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"
)

const (
	feedbackdName      = "org.sigxcpu.Feedback"
	feedbackdPath      = "/org/sigxcpu/Feedback"
	feedbackdInterface = "org.sigxcpu.Feedback"

	feedbackEvent = "alarm-clock-elapsed"
)

// Feedbackd vibrates through the feedbackd daemon.
type Feedbackd struct {
	obj   dbus.BusObject
	appID string

	mu     sync.Mutex
	handle uint32
}

// NewVibrator returns a feedbackd vibrator when mode is "auto" and the
// daemon owns its name on conn, otherwise a no-op vibrator.
func NewVibrator(conn *dbus.Conn, mode, appID string, log *zap.Logger) Vibrator {
	if log == nil {
		log = zap.NewNop()
	}
	if mode == "off" || conn == nil {
		return NopVibrator{}
	}

	var owned bool
	if err := conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, feedbackdName).Store(&owned); err != nil {
		log.Warn("failed to look up feedbackd, vibration disabled", zap.Error(err))
		return NopVibrator{}
	}
	if !owned {
		log.Info("feedbackd not running, vibration disabled")
		return NopVibrator{}
	}
	return &Feedbackd{
		obj:   conn.Object(feedbackdName, feedbackdPath),
		appID: appID,
	}
}

func (f *Feedbackd) Vibrate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.handle != 0 {
		f.end(ctx)
	}

	var id uint32
	err := f.obj.CallWithContext(ctx, feedbackdInterface+".TriggerFeedback", 0,
		f.appID,
		feedbackEvent,
		map[string]dbus.Variant{},
		int32(-1), // the event's default duration
	).Store(&id)
	if err != nil {
		return goerr.Wrap(err, "failed to trigger feedback", goerr.V("event", feedbackEvent))
	}
	f.handle = id
	return nil
}

func (f *Feedbackd) Cancel(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.end(ctx)
}

func (f *Feedbackd) end(ctx context.Context) error {
	if f.handle == 0 {
		return nil
	}
	id := f.handle
	f.handle = 0
	if call := f.obj.CallWithContext(ctx, feedbackdInterface+".EndFeedback", 0, id); call.Err != nil {
		return goerr.Wrap(call.Err, "failed to end feedback", goerr.V("id", id))
	}
	return nil
}

// NopVibrator is used on machines without a vibration motor.
type NopVibrator struct{}

func (NopVibrator) Vibrate(context.Context) error { return nil }
func (NopVibrator) Cancel(context.Context) error  { return nil }
