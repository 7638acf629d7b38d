package ipc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/SoarinFerret/GetUp/internal/alarm"
	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeController struct {
	scheduled   alarm.ClockTime
	deactivate  error
	snoozeUntil time.Time
	snoozeErr   error
	volume      float64
	foreground  int
	status      alarm.Status
}

func (f *fakeController) Schedule(_ context.Context, t alarm.ClockTime) (alarm.Schedule, error) {
	f.scheduled = t
	return alarm.Schedule{FireAt: time.Date(2024, 3, 11, t.Hour, t.Minute, 0, 0, time.UTC), Active: true}, nil
}

func (f *fakeController) Cancel(context.Context) error { return nil }

func (f *fakeController) RegenerateCode(context.Context) (string, error) { return "Zz9Yy8Xx", nil }

func (f *fakeController) Code(context.Context) (string, error) { return "AB12", nil }

func (f *fakeController) AttemptDeactivate(context.Context, string) error { return f.deactivate }

func (f *fakeController) Snooze(context.Context) (time.Time, error) {
	return f.snoozeUntil, f.snoozeErr
}

func (f *fakeController) Foreground() { f.foreground++ }

func (f *fakeController) SetVolume(_ context.Context, pct float64) error {
	if pct > 100 {
		return alarm.Errorf(alarm.ErrInvalid, "volume out of range")
	}
	f.volume = pct
	return nil
}

func (f *fakeController) Status() alarm.Status { return f.status }

func (f *fakeController) Subscribe() *alarm.Subscription { return nil }

func newTestService(t *testing.T) (*Service, *fakeController) {
	t.Helper()
	ctrl := &fakeController{}
	return NewService(ctrl, zaptest.NewLogger(t)), ctrl
}

func TestServiceSchedule(t *testing.T) {
	svc, ctrl := newTestService(t)

	fireAt, derr := svc.Schedule("06:45")
	require.Nil(t, derr)
	assert.Equal(t, alarm.ClockTime{Hour: 6, Minute: 45}, ctrl.scheduled)
	assert.Equal(t, "2024-03-11T06:45:00Z", fireAt)

	_, derr = svc.Schedule("quarter to seven")
	require.NotNil(t, derr)
	assert.Equal(t, ErrorPrefix+"Invalid", derr.Name)
}

func TestServiceAttemptDeactivate(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		expected  bool
		errorName string
	}{
		{"Correct code", nil, true, ""},
		{"Wrong code", alarm.Errorf(alarm.ErrIncorrectCode, "incorrect code"), false, ""},
		{"Not firing", alarm.Errorf(alarm.ErrNotFiring, "no alarm is firing"), false, ErrorPrefix + "NotFiring"},
		{"Silenced but not re-armed", alarm.Errorf(alarm.ErrTimerRegistrationFailed, "failed"), false, ErrorPrefix + "TimerRegistrationFailed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, ctrl := newTestService(t)
			ctrl.deactivate = tt.err

			ok, derr := svc.AttemptDeactivate("AB12")
			assert.Equal(t, tt.expected, ok)
			if tt.errorName == "" {
				assert.Nil(t, derr)
			} else {
				require.NotNil(t, derr)
				assert.Equal(t, tt.errorName, derr.Name)
			}
		})
	}
}

func TestServiceSnooze(t *testing.T) {
	svc, ctrl := newTestService(t)
	ctrl.snoozeUntil = time.Unix(1710054030, 0)

	until, derr := svc.Snooze()
	require.Nil(t, derr)
	assert.Equal(t, int64(1710054030), until)

	ctrl.snoozeErr = alarm.Errorf(alarm.ErrSnoozeLimitReached, "snooze limit of 2 reached")
	until, derr = svc.Snooze()
	require.NotNil(t, derr)
	assert.Zero(t, until)
	assert.Equal(t, ErrorPrefix+"SnoozeLimitReached", derr.Name)
}

func TestServiceCodesAndVolume(t *testing.T) {
	svc, ctrl := newTestService(t)

	code, derr := svc.GetCode()
	require.Nil(t, derr)
	assert.Equal(t, "AB12", code)

	code, derr = svc.RegenerateCode()
	require.Nil(t, derr)
	assert.Equal(t, "Zz9Yy8Xx", code)

	require.Nil(t, svc.SetVolume(40))
	assert.Equal(t, 40.0, ctrl.volume)
	derr = svc.SetVolume(140)
	require.NotNil(t, derr)
	assert.Equal(t, ErrorPrefix+"Invalid", derr.Name)

	require.Nil(t, svc.Foreground())
	assert.Equal(t, 1, ctrl.foreground)
	require.Nil(t, svc.Cancel())
}

func TestServiceGetStatus(t *testing.T) {
	svc, ctrl := newTestService(t)
	ctrl.status = alarm.Status{
		State:       alarm.StateSnoozing,
		TimeOfDay:   "07:00",
		SessionID:   "session-1",
		SnoozeCount: 1,
	}

	raw, derr := svc.GetStatus()
	require.Nil(t, derr)

	var st alarm.Status
	require.NoError(t, json.Unmarshal([]byte(raw), &st))
	assert.Equal(t, alarm.StateSnoozing, st.State)
	assert.Equal(t, "07:00", st.TimeOfDay)
	assert.Equal(t, "session-1", st.SessionID)
	assert.Equal(t, 1, st.SnoozeCount)
}

func TestSignalRoundTrip(t *testing.T) {
	at := time.Unix(1710054000, 0)
	deadline := at.Add(30 * time.Second)
	e := alarm.Event{Kind: alarm.EventSnoozeStarted, SessionID: "session-1", At: at, SnoozeDeadline: deadline}

	got, ok := parseSignal(&dbus.Signal{
		Path: ObjectPath,
		Name: InterfaceName + "." + string(e.Kind),
		Body: signalBody(e),
	})
	require.True(t, ok)
	assert.Equal(t, alarm.EventSnoozeStarted, got.Kind)
	assert.Equal(t, "session-1", got.SessionID)
	assert.True(t, at.Equal(got.At))
	assert.True(t, deadline.Equal(got.SnoozeDeadline))

	e = alarm.Event{Kind: alarm.EventAlarmFired, SessionID: "session-2", At: at}
	got, ok = parseSignal(&dbus.Signal{Path: ObjectPath, Name: InterfaceName + ".AlarmFired", Body: signalBody(e)})
	require.True(t, ok)
	assert.True(t, got.SnoozeDeadline.IsZero())
}

func TestParseSignalRejectsForeignSignals(t *testing.T) {
	_, ok := parseSignal(&dbus.Signal{Path: "/elsewhere", Name: InterfaceName + ".AlarmFired", Body: []interface{}{"a", int64(1), int64(0)}})
	assert.False(t, ok)

	_, ok = parseSignal(&dbus.Signal{Path: ObjectPath, Name: "org.example.Other.AlarmFired", Body: []interface{}{"a", int64(1), int64(0)}})
	assert.False(t, ok)

	_, ok = parseSignal(&dbus.Signal{Path: ObjectPath, Name: InterfaceName + ".AlarmFired", Body: []interface{}{"a"}})
	assert.False(t, ok)
}

func TestIntrospectionListsMethodsAndSignals(t *testing.T) {
	svc, _ := newTestService(t)
	node := introspection(svc)

	require.Len(t, node.Interfaces, 2)
	iface := node.Interfaces[1]
	assert.Equal(t, InterfaceName, iface.Name)

	var methods []string
	for _, m := range iface.Methods {
		methods = append(methods, m.Name)
	}
	assert.ElementsMatch(t, []string{
		"Schedule", "Cancel", "RegenerateCode", "GetCode", "AttemptDeactivate",
		"Snooze", "Foreground", "SetVolume", "GetStatus",
	}, methods)
	assert.Len(t, iface.Signals, 4)
}
