package ipc

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/SoarinFerret/GetUp/internal/alarm"
	"github.com/godbus/dbus/v5"
	"github.com/m-mizutani/goerr/v2"
)

// Client calls the alarm service over D-Bus.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

func NewClient(conn *dbus.Conn) *Client {
	return &Client{
		conn: conn,
		obj:  conn.Object(ServiceName, ObjectPath),
	}
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) *dbus.Call {
	return c.obj.CallWithContext(ctx, InterfaceName+"."+method, 0, args...)
}

// Schedule arms the alarm for hhmm and returns the fire time.
func (c *Client) Schedule(ctx context.Context, hhmm string) (time.Time, error) {
	var fireAt string
	if err := c.call(ctx, "Schedule", hhmm).Store(&fireAt); err != nil {
		return time.Time{}, fromDBusError(err)
	}
	t, err := time.Parse(time.RFC3339, fireAt)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "invalid fire time from service", goerr.V("value", fireAt))
	}
	return t, nil
}

func (c *Client) Cancel(ctx context.Context) error {
	return fromDBusError(c.call(ctx, "Cancel").Err)
}

func (c *Client) RegenerateCode(ctx context.Context) (string, error) {
	var code string
	if err := c.call(ctx, "RegenerateCode").Store(&code); err != nil {
		return "", fromDBusError(err)
	}
	return code, nil
}

func (c *Client) Code(ctx context.Context) (string, error) {
	var code string
	if err := c.call(ctx, "GetCode").Store(&code); err != nil {
		return "", fromDBusError(err)
	}
	return code, nil
}

func (c *Client) AttemptDeactivate(ctx context.Context, code string) (bool, error) {
	var ok bool
	if err := c.call(ctx, "AttemptDeactivate", code).Store(&ok); err != nil {
		return false, fromDBusError(err)
	}
	return ok, nil
}

// Snooze returns the time the alert resumes at.
func (c *Client) Snooze(ctx context.Context) (time.Time, error) {
	var until int64
	if err := c.call(ctx, "Snooze").Store(&until); err != nil {
		return time.Time{}, fromDBusError(err)
	}
	return time.Unix(until, 0), nil
}

func (c *Client) Foreground(ctx context.Context) error {
	return fromDBusError(c.call(ctx, "Foreground").Err)
}

func (c *Client) SetVolume(ctx context.Context, pct float64) error {
	return fromDBusError(c.call(ctx, "SetVolume", pct).Err)
}

func (c *Client) Status(ctx context.Context) (alarm.Status, error) {
	var raw string
	var st alarm.Status
	if err := c.call(ctx, "GetStatus").Store(&raw); err != nil {
		return st, fromDBusError(err)
	}
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return st, goerr.Wrap(err, "invalid status from service")
	}
	return st, nil
}

// Event is a lifecycle signal received from the service.
type Event struct {
	Kind           alarm.EventKind
	SessionID      string
	At             time.Time
	SnoozeDeadline time.Time
}

// Events delivers service signals until ctx is done.
func (c *Client) Events(ctx context.Context) (<-chan Event, error) {
	if err := c.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(ObjectPath),
		dbus.WithMatchInterface(InterfaceName),
	); err != nil {
		return nil, goerr.Wrap(err, "add match failed")
	}

	sigs := make(chan *dbus.Signal, 10)
	c.conn.Signal(sigs)

	out := make(chan Event)
	go func() {
		defer close(out)
		defer c.conn.RemoveSignal(sigs)

		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-sigs:
				if !ok {
					return
				}
				e, ok := parseSignal(sig)
				if !ok {
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func parseSignal(sig *dbus.Signal) (Event, bool) {
	if sig.Path != ObjectPath || len(sig.Body) < 3 {
		return Event{}, false
	}
	kind, ok := strings.CutPrefix(sig.Name, InterfaceName+".")
	if !ok {
		return Event{}, false
	}
	id, ok1 := sig.Body[0].(string)
	at, ok2 := sig.Body[1].(int64)
	deadline, ok3 := sig.Body[2].(int64)
	if !ok1 || !ok2 || !ok3 {
		return Event{}, false
	}
	e := Event{
		Kind:      alarm.EventKind(kind),
		SessionID: id,
		At:        time.Unix(at, 0),
	}
	if deadline != 0 {
		e.SnoozeDeadline = time.Unix(deadline, 0)
	}
	return e, true
}
