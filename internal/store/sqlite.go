package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/SoarinFerret/GetUp/internal/store/migration"
	"github.com/m-mizutani/goerr/v2"
)

// SQLite keeps values in a single sqlite connection.
type SQLite struct {
	mu   sync.Mutex
	conn *sqlite.Conn
	Now  func() time.Time
}

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, goerr.Wrap(err, "failed to create store directory", goerr.V("path", path))
		}
	}

	conn, err := sqlite.OpenConn(path, 0)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}
	if err := Migrate(conn, migration.Scripts); err != nil {
		conn.Close()
		return nil, goerr.Wrap(err, "failed to migrate sqlite database", goerr.V("path", path))
	}
	return &SQLite{conn: conn, Now: time.Now}, nil
}

func (s *SQLite) Get(ctx context.Context, namespace, key string) (value string, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.conn.SetInterrupt(s.conn.SetInterrupt(ctx.Done()))

	err = sqlitex.Exec(s.conn,
		"select value from prefs where namespace = ? and key = ?",
		func(stmt *sqlite.Stmt) error {
			value = stmt.ColumnText(0)
			found = true
			return nil
		},
		namespace, key,
	)
	if err != nil {
		return "", false, goerr.Wrap(err, "failed to query preference", goerr.V("namespace", namespace), goerr.V("key", key))
	}
	return value, found, nil
}

func (s *SQLite) Set(ctx context.Context, namespace, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.conn.SetInterrupt(s.conn.SetInterrupt(ctx.Done()))

	err := sqlitex.Exec(s.conn,
		"insert or replace into prefs (namespace, key, value, updated_at) values (?, ?, ?, ?)",
		nil,
		namespace, key, value, s.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to store preference", goerr.V("namespace", namespace), goerr.V("key", key))
	}
	return nil
}

func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.Close(); err != nil {
		return goerr.Wrap(err, "failed to close sqlite database")
	}
	return nil
}
