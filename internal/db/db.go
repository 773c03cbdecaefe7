// Package db owns the SQLite connection, schema migrations and the
// transaction boundary used by every repository.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// BusyTimeoutMS is how long a connection waits on a locked database before
// failing with SQLITE_BUSY.
const BusyTimeoutMS = 5000

// connPragmas run on every pooled connection, not just the first one.
var connPragmas = []string{
	fmt.Sprintf("busy_timeout(%d)", BusyTimeoutMS),
	"journal_mode(WAL)",
	"foreign_keys(1)",
}

// dsn appends the per-connection pragmas to path.
func dsn(path string) string {
	params := make([]string, len(connPragmas))
	for i, p := range connPragmas {
		params[i] = "_pragma=" + p
	}
	return path + "?" + strings.Join(params, "&")
}

// OpenDB opens the SQLite database at path, creating its directory if
// needed, and applies pending migrations. MemoryPath gives a single-connection
// in-memory database.
func OpenDB(path string) (*sql.DB, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Each connection to ":memory:" opens its own empty database.
	if path == MemoryPath {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to %s: %w", path, err)
	}

	if err := Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return conn, nil
}
