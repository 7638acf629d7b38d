package autostart

import (
	"errors"
	"testing"

	"github.com/emersion/go-autostart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeApp struct {
	enabled  bool
	enables  int
	disables int
	err      error
}

func (f *fakeApp) IsEnabled() bool { return f.enabled }

func (f *fakeApp) Enable() error {
	f.enables++
	if f.err != nil {
		return f.err
	}
	f.enabled = true
	return nil
}

func (f *fakeApp) Disable() error {
	f.disables++
	if f.err != nil {
		return f.err
	}
	f.enabled = false
	return nil
}

func TestEntrySet(t *testing.T) {
	app := &fakeApp{}
	e := &Entry{app: app, log: zaptest.NewLogger(t)}

	require.NoError(t, e.Set(true))
	assert.True(t, e.IsEnabled())
	require.NoError(t, e.Set(true))
	assert.Equal(t, 1, app.enables)

	require.NoError(t, e.Set(false))
	assert.False(t, e.IsEnabled())
	require.NoError(t, e.Set(false))
	assert.Equal(t, 1, app.disables)
}

func TestEntrySetError(t *testing.T) {
	app := &fakeApp{err: errors.New("read-only file system")}
	e := &Entry{app: app, log: zaptest.NewLogger(t)}

	err := e.Set(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to enable autostart")
	assert.False(t, e.IsEnabled())
}

func TestNewBuildsExecLine(t *testing.T) {
	e, err := New("/usr/bin/getupd", []string{"--config", "/etc/getup.toml"}, nil)
	require.NoError(t, err)

	app, ok := e.app.(*autostart.App)
	require.True(t, ok)
	assert.Equal(t, Name, app.Name)
	assert.Equal(t, []string{"/usr/bin/getupd", "--config", "/etc/getup.toml"}, app.Exec)
}
