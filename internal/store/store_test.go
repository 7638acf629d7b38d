package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/SoarinFerret/GetUp/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func openBackends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	log := zaptest.NewLogger(t)

	backends := make(map[string]Store)
	for _, cfg := range []config.StoreConfig{
		{Backend: "memory"},
		{Backend: "file", Path: filepath.Join(dir, "prefs.json")},
		{Backend: "sqlite", Path: filepath.Join(dir, "prefs.db")},
	} {
		s, err := Open(cfg, log)
		require.NoError(t, err, cfg.Backend)
		t.Cleanup(func() { s.Close() })
		backends[cfg.Backend] = s
	}
	return backends
}

func TestStoreReadAfterWrite(t *testing.T) {
	ctx := context.Background()

	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, found, err := s.Get(ctx, "alarm_prefs", "alarm_code")
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, s.Set(ctx, "alarm_prefs", "alarm_code", "AB12"))
			v, found, err := s.Get(ctx, "alarm_prefs", "alarm_code")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "AB12", v)

			require.NoError(t, s.Set(ctx, "alarm_prefs", "alarm_code", "Zz9Yy8Xx"))
			v, _, err = s.Get(ctx, "alarm_prefs", "alarm_code")
			require.NoError(t, err)
			assert.Equal(t, "Zz9Yy8Xx", v)

			require.NoError(t, s.Set(ctx, "alarm_prefs", "alarm_time", ""))
			v, found, err = s.Get(ctx, "alarm_prefs", "alarm_time")
			require.NoError(t, err)
			assert.True(t, found, "empty values are stored")
			assert.Empty(t, v)
		})
	}
}

func TestStoreNamespacesAreSeparate(t *testing.T) {
	ctx := context.Background()

	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, "alarm_prefs", "alarm_volume", "40"))
			_, found, err := s.Get(ctx, "other", "alarm_volume")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, cfg := range []config.StoreConfig{
		{Backend: "file", Path: filepath.Join(dir, "nested", "prefs.json")},
		{Backend: "sqlite", Path: filepath.Join(dir, "nested", "prefs.db")},
	} {
		t.Run(cfg.Backend, func(t *testing.T) {
			s, err := Open(cfg, nil)
			require.NoError(t, err)
			require.NoError(t, s.Set(ctx, "alarm_prefs", "alarm_time", "07:00"))
			require.NoError(t, s.Close())

			s, err = Open(cfg, nil)
			require.NoError(t, err)
			defer s.Close()

			v, found, err := s.Get(ctx, "alarm_prefs", "alarm_time")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "07:00", v)
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(config.StoreConfig{Backend: "redis"}, nil)
	assert.Error(t, err)
}
