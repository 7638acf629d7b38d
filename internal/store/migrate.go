package store

import (
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/m-mizutani/goerr/v2"
)

// Migrate runs the *.sql scripts of fsys that are newer than the database's
// user_version, in lexical order, inside one savepoint.
func Migrate(conn *sqlite.Conn, fsys fs.FS) (err error) {
	release := sqlitex.Save(conn)
	defer release(&err)

	var oldVer int
	if err = sqlitex.ExecTransient(conn, "pragma user_version", func(stmt *sqlite.Stmt) error {
		oldVer = stmt.ColumnInt(0)
		return nil
	}); err != nil {
		return goerr.Wrap(err, "get version")
	}

	scripts, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return goerr.Wrap(err, "list scripts")
	}
	currVer := len(scripts)

	if oldVer >= currVer {
		// There are no scripts to run.
		return nil
	}

	sort.Strings(scripts)
	for _, script := range scripts[oldVer:] {
		buf, err := fs.ReadFile(fsys, script)
		if err != nil {
			return goerr.Wrap(err, "read script", goerr.V("script", script))
		}
		queries := strings.TrimSpace(string(buf))
		for i := 0; queries != ""; i++ {
			stmt, trailingBytes, err := conn.PrepareTransient(queries)
			if err != nil {
				return goerr.Wrap(err, "prepare statement", goerr.V("script", script), goerr.V("stmt", i))
			}
			usedBytes := len(queries) - trailingBytes
			queries = queries[usedBytes:]
			_, err = stmt.Step()
			stmt.Finalize()
			if err != nil {
				return goerr.Wrap(err, "execute statement", goerr.V("script", script), goerr.V("stmt", i))
			}
			queries = strings.TrimSpace(queries)
		}
	}

	newVer := strconv.Itoa(currVer)
	if err := sqlitex.Exec(conn, "pragma user_version="+newVer, nil); err != nil {
		return goerr.Wrap(err, "set version", goerr.V("version", currVer))
	}

	return nil
}
