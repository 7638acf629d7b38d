// Package store provides the key/value backends behind the alarm preferences.
package store

import (
	"github.com/SoarinFerret/GetUp/internal/alarm"
	"github.com/SoarinFerret/GetUp/internal/config"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"
)

// Store is an alarm.Store holding resources that must be released.
type Store interface {
	alarm.Store
	Close() error
}

// Open returns the backend selected by cfg.
func Open(cfg config.StoreConfig, log *zap.Logger) (Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("store")

	switch cfg.Backend {
	case "memory":
		log.Info("using in-memory store; state is lost on exit")
		return NewMemory(), nil
	case "file":
		log.Info("opening file store", zap.String("path", cfg.Path))
		return OpenFile(cfg.Path)
	case "sqlite", "":
		log.Info("opening sqlite store", zap.String("path", cfg.Path))
		return OpenSQLite(cfg.Path)
	default:
		return nil, goerr.New("unknown store backend", goerr.V("backend", cfg.Backend))
	}
}
