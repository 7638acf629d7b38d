// Package loginctl follows logind for suspend/resume and session unlocks.
package loginctl

import (
	"context"

	"github.com/godbus/dbus/v5"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"
)

// Hooks are called from the watch loop. Nil hooks are skipped.
type Hooks struct {
	// Sleep runs when the system is about to suspend.
	Sleep func()
	// Wake runs after resume from suspend.
	Wake func()
	// Unlock runs when one of the user's sessions is unlocked.
	Unlock func()
}

type watcher struct {
	hooks    Hooks
	username string
	log      *zap.Logger
	userOf   func(dbus.ObjectPath) (string, error)
}

// Watch follows logind signals on the system bus until ctx is done.
// Unlocks are only reported for sessions owned by username.
func Watch(ctx context.Context, username string, hooks Hooks, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return goerr.Wrap(err, "failed to connect to system bus")
	}
	defer conn.Close()

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath("/org/freedesktop/login1"),
		dbus.WithMatchInterface("org.freedesktop.login1.Manager"),
		dbus.WithMatchMember("PrepareForSleep"),
	); err != nil {
		return goerr.Wrap(err, "add match failed", goerr.V("member", "PrepareForSleep"))
	}

	// watch for property changes (session locked)
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return goerr.Wrap(err, "add match for PropertiesChanged failed")
	}

	c := make(chan *dbus.Signal, 10)
	conn.Signal(c)
	defer conn.RemoveSignal(c)

	w := &watcher{
		hooks:    hooks,
		username: username,
		log:      log.Named("loginctl"),
		userOf: func(path dbus.ObjectPath) (string, error) {
			return getUsernameFromSession(conn, path)
		},
	}
	w.log.Info("watching logind", zap.String("user", username))

	for {
		select {
		case sig, ok := <-c:
			if !ok {
				return goerr.New("system bus connection closed")
			}
			w.handle(sig)
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *watcher) handle(sig *dbus.Signal) {
	switch sig.Name {
	case "org.freedesktop.login1.Manager.PrepareForSleep":
		if len(sig.Body) == 0 {
			return
		}
		sleeping, _ := sig.Body[0].(bool)
		if sleeping {
			w.log.Info("system is going to sleep")
			call(w.hooks.Sleep)
		} else {
			w.log.Info("system has woken up")
			call(w.hooks.Wake)
		}

	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		if len(sig.Body) < 3 {
			return
		}
		iface, ok := sig.Body[0].(string)
		if !ok || iface != "org.freedesktop.login1.Session" {
			return
		}
		changedProps, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			return
		}
		val, exists := changedProps["LockedHint"]
		if !exists {
			return
		}
		if locked, _ := val.Value().(bool); locked {
			return
		}
		username, err := w.userOf(sig.Path)
		if err != nil {
			w.log.Warn("LockedHint: failed to get username", zap.String("session", string(sig.Path)), zap.Error(err))
			return
		}
		if username != w.username {
			return
		}
		w.log.Info("session unlocked", zap.String("session", string(sig.Path)))
		call(w.hooks.Unlock)
	}
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

func getUsernameFromSession(conn *dbus.Conn, sessionPath dbus.ObjectPath) (string, error) {
	sessionObj := conn.Object("org.freedesktop.login1", sessionPath)

	var userInfo []interface{}
	err := sessionObj.Call("org.freedesktop.DBus.Properties.Get", 0,
		"org.freedesktop.login1.Session", "User").Store(&userInfo)
	if err != nil {
		return "", goerr.Wrap(err, "failed to get user info", goerr.V("session", sessionPath))
	}
	if len(userInfo) < 2 {
		return "", goerr.New("malformed user info", goerr.V("session", sessionPath))
	}
	userPath, ok := userInfo[1].(dbus.ObjectPath)
	if !ok {
		return "", goerr.New("failed to get user object path", goerr.V("session", sessionPath))
	}
	userObj := conn.Object("org.freedesktop.login1", userPath)
	var username dbus.Variant
	err = userObj.Call("org.freedesktop.DBus.Properties.Get", 0,
		"org.freedesktop.login1.User", "Name").Store(&username)
	if err != nil {
		return "", goerr.Wrap(err, "failed to get username", goerr.V("user", userPath))
	}
	name, ok := username.Value().(string)
	if !ok {
		return "", goerr.New("unexpected type for user name", goerr.V("user", userPath))
	}
	return name, nil
}
