// Package autostart manages the desktop autostart entry that launches the
// daemon at login.
package autostart

import (
	"os"
	"path/filepath"

	"github.com/emersion/go-autostart"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"
)

const (
	Name        = "getupd"
	DisplayName = "GetUp alarm"
)

// entry is the part of *autostart.App this package drives.
type entry interface {
	IsEnabled() bool
	Enable() error
	Disable() error
}

// Entry wraps the autostart entry for one executable.
type Entry struct {
	app entry
	log *zap.Logger
}

// New returns the entry launching exec with args. An empty exec means the
// getupd binary next to the running executable.
func New(exec string, args []string, log *zap.Logger) (*Entry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if exec == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to locate executable")
		}
		// Resolve symlinks if any
		self, err = filepath.EvalSymlinks(self)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve executable", goerr.V("path", self))
		}
		exec = filepath.Join(filepath.Dir(self), Name)
	}

	app := &autostart.App{
		Name:        Name,
		DisplayName: DisplayName,
		Exec:        append([]string{exec}, args...),
	}
	return &Entry{app: app, log: log.Named("autostart")}, nil
}

func (e *Entry) IsEnabled() bool {
	return e.app.IsEnabled()
}

// Set enables or disables the entry. It is a no-op when the entry is already
// in the requested state.
func (e *Entry) Set(enable bool) error {
	if enable == e.app.IsEnabled() {
		return nil
	}
	if enable {
		if err := e.app.Enable(); err != nil {
			return goerr.Wrap(err, "failed to enable autostart")
		}
		e.log.Info("autostart enabled")
		return nil
	}
	if err := e.app.Disable(); err != nil {
		return goerr.Wrap(err, "failed to disable autostart")
	}
	e.log.Info("autostart disabled")
	return nil
}
