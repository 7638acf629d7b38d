package ipc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SoarinFerret/GetUp/internal/alarm"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"
)

const callTimeout = 5 * time.Second

// Service is the object exported at ObjectPath. Every exported method is a
// D-Bus method of InterfaceName.
type Service struct {
	ctrl Controller
	log  *zap.Logger
}

func NewService(ctrl Controller, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{ctrl: ctrl, log: log.Named("ipc")}
}

func (s *Service) call(method string, fn func(ctx context.Context) error) *dbus.Error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		s.log.Info("method failed", zap.String("method", method), zap.String("code", string(alarm.ErrorCode(err))), zap.Error(err))
		return toDBusError(err)
	}
	return nil
}

// Schedule arms the alarm for "HH:MM" and returns the RFC3339 fire time.
func (s *Service) Schedule(hhmm string) (string, *dbus.Error) {
	var fireAt string
	derr := s.call("Schedule", func(ctx context.Context) error {
		t, err := alarm.ParseClockTime(hhmm)
		if err != nil {
			return err
		}
		sched, err := s.ctrl.Schedule(ctx, t)
		fireAt = sched.FireAt.Format(time.RFC3339)
		return err
	})
	return fireAt, derr
}

func (s *Service) Cancel() *dbus.Error {
	return s.call("Cancel", s.ctrl.Cancel)
}

func (s *Service) RegenerateCode() (string, *dbus.Error) {
	var code string
	derr := s.call("RegenerateCode", func(ctx context.Context) (err error) {
		code, err = s.ctrl.RegenerateCode(ctx)
		return err
	})
	return code, derr
}

func (s *Service) GetCode() (string, *dbus.Error) {
	var code string
	derr := s.call("GetCode", func(ctx context.Context) (err error) {
		code, err = s.ctrl.Code(ctx)
		return err
	})
	return code, derr
}

// AttemptDeactivate returns false for a wrong code. A
// TimerRegistrationFailed error means the alarm was silenced but could not be
// re-armed.
func (s *Service) AttemptDeactivate(code string) (bool, *dbus.Error) {
	ok := false
	derr := s.call("AttemptDeactivate", func(ctx context.Context) error {
		err := s.ctrl.AttemptDeactivate(ctx, code)
		if alarm.ErrorCode(err) == alarm.ErrIncorrectCode {
			return nil
		}
		ok = err == nil
		return err
	})
	return ok, derr
}

// Snooze returns the unix time the alert resumes at.
func (s *Service) Snooze() (int64, *dbus.Error) {
	var until int64
	derr := s.call("Snooze", func(ctx context.Context) error {
		deadline, err := s.ctrl.Snooze(ctx)
		if err == nil {
			until = deadline.Unix()
		}
		return err
	})
	return until, derr
}

func (s *Service) Foreground() *dbus.Error {
	s.ctrl.Foreground()
	return nil
}

func (s *Service) SetVolume(pct float64) *dbus.Error {
	return s.call("SetVolume", func(ctx context.Context) error {
		return s.ctrl.SetVolume(ctx, pct)
	})
}

// GetStatus returns alarm.Status as JSON.
func (s *Service) GetStatus() (string, *dbus.Error) {
	data, err := json.Marshal(s.ctrl.Status())
	if err != nil {
		return "", toDBusError(alarm.Wrap(alarm.ErrInternal, err, "failed to encode status"))
	}
	return string(data), nil
}

func introspection(svc *Service) *introspect.Node {
	eventArgs := []introspect.Arg{
		{Name: "session_id", Type: "s"},
		{Name: "at", Type: "x"},
		{Name: "snooze_deadline", Type: "x"},
	}
	return &introspect.Node{
		Name: ObjectPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    InterfaceName,
				Methods: introspect.Methods(svc),
				Signals: []introspect.Signal{
					{Name: SignalAlarmFired, Args: eventArgs},
					{Name: SignalAlarmDeactivated, Args: eventArgs},
					{Name: SignalSnoozeStarted, Args: eventArgs},
					{Name: SignalSnoozeEnded, Args: eventArgs},
				},
			},
		},
	}
}

// signalBody encodes an event for emission.
func signalBody(e alarm.Event) []interface{} {
	var deadline int64
	if !e.SnoozeDeadline.IsZero() {
		deadline = e.SnoozeDeadline.Unix()
	}
	return []interface{}{e.SessionID, e.At.Unix(), deadline}
}

// Serve claims ServiceName on conn, exports the service and forwards
// controller events as signals until ctx is done.
func Serve(ctx context.Context, conn *dbus.Conn, ctrl Controller, log *zap.Logger) error {
	svc := NewService(ctrl, log)

	reply, err := conn.RequestName(ServiceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return goerr.Wrap(err, "failed to request name", goerr.V("name", ServiceName))
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return goerr.New("name already taken; is another daemon running?", goerr.V("name", ServiceName))
	}
	defer conn.ReleaseName(ServiceName)

	if err := conn.Export(svc, ObjectPath, InterfaceName); err != nil {
		return goerr.Wrap(err, "failed to export interface")
	}
	if err := conn.Export(introspect.NewIntrospectable(introspection(svc)), ObjectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return goerr.Wrap(err, "failed to export introspection")
	}
	svc.log.Info("service exported", zap.String("name", ServiceName), zap.String("path", ObjectPath))

	sub := ctrl.Subscribe()
	defer func() { sub.Close() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-sub.C():
			if !ok {
				svc.log.Warn("event subscription dropped, resubscribing")
				sub = ctrl.Subscribe()
				continue
			}
			if err := conn.Emit(ObjectPath, InterfaceName+"."+string(e.Kind), signalBody(e)...); err != nil {
				svc.log.Warn("failed to emit signal", zap.String("signal", string(e.Kind)), zap.Error(err))
			}
		}
	}
}
