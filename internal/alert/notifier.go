package alert

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/m-mizutani/goerr/v2"
)

const (
	notificationsName      = "org.freedesktop.Notifications"
	notificationsPath      = "/org/freedesktop/Notifications"
	notificationsInterface = "org.freedesktop.Notifications"
)

// DesktopNotifier posts a persistent critical notification.
type DesktopNotifier struct {
	obj     dbus.BusObject
	appName string

	mu sync.Mutex
	id uint32
}

func NewDesktopNotifier(conn *dbus.Conn, appName string) *DesktopNotifier {
	return &DesktopNotifier{
		obj:     conn.Object(notificationsName, notificationsPath),
		appName: appName,
	}
}

func (n *DesktopNotifier) Show(ctx context.Context, summary, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var id uint32
	err := n.obj.CallWithContext(ctx, notificationsInterface+".Notify", 0,
		n.appName,        // app_name
		n.id,             // replaces_id
		"alarm-symbolic", // app_icon
		summary,          // summary
		body,             // body
		[]string{},       // actions
		map[string]dbus.Variant{ // hints
			"urgency":  dbus.MakeVariant(byte(2)), // critical
			"category": dbus.MakeVariant("alarm"),
			"resident": dbus.MakeVariant(true),
		},
		int32(0), // expire_timeout: never
	).Store(&id)
	if err != nil {
		return goerr.Wrap(err, "failed to send notification")
	}
	n.id = id
	return nil
}

func (n *DesktopNotifier) Close(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.id == 0 {
		return nil
	}
	id := n.id
	n.id = 0
	if call := n.obj.CallWithContext(ctx, notificationsInterface+".CloseNotification", 0, id); call.Err != nil {
		return goerr.Wrap(call.Err, "failed to close notification", goerr.V("id", id))
	}
	return nil
}
