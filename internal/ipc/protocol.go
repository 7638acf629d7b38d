// Package ipc exposes the alarm controller on D-Bus and provides the
// matching client.
package ipc

import (
	"context"
	"time"

	"github.com/SoarinFerret/GetUp/internal/alarm"
)

const (
	ObjectPath    = "/io/github/soarinferret/getup"
	InterfaceName = "io.github.soarinferret.getup.Alarm"
	ServiceName   = "io.github.soarinferret.getup"

	// ErrorPrefix prefixes every D-Bus error name the service returns.
	ErrorPrefix = "io.github.soarinferret.getup.Error."
)

// Signal members emitted on InterfaceName. Each carries the session id, the
// unix time of the event and the unix snooze deadline (0 when none).
const (
	SignalAlarmFired       = string(alarm.EventAlarmFired)
	SignalAlarmDeactivated = string(alarm.EventAlarmDeactivated)
	SignalSnoozeStarted    = string(alarm.EventSnoozeStarted)
	SignalSnoozeEnded      = string(alarm.EventSnoozeEnded)
)

// Controller is the part of *alarm.Controller the service exposes.
type Controller interface {
	Schedule(ctx context.Context, t alarm.ClockTime) (alarm.Schedule, error)
	Cancel(ctx context.Context) error
	RegenerateCode(ctx context.Context) (string, error)
	Code(ctx context.Context) (string, error)
	AttemptDeactivate(ctx context.Context, code string) error
	Snooze(ctx context.Context) (time.Time, error)
	Foreground()
	SetVolume(ctx context.Context, pct float64) error
	Status() alarm.Status
	Subscribe() *alarm.Subscription
}

var _ Controller = (*alarm.Controller)(nil)
