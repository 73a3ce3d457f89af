// Package history keeps a journal of widget launches in SQLite so the
// manager can show when an instance last ran and how it exited.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver" // registers the "sqlite3" driver
	_ "github.com/ncruces/go-sqlite3/embed"  // bundled SQLite build

	"github.com/zjrosen/smartnotes/internal/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS launches (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	instance_id TEXT    NOT NULL,
	pid         INTEGER NOT NULL,
	started_at  INTEGER NOT NULL,
	exited_at   INTEGER,
	exit_error  TEXT
);
CREATE INDEX IF NOT EXISTS idx_launches_instance ON launches(instance_id, started_at);
`

// DB is the launch journal.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	conn, err := sql.Open("sqlite3", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// One writer; SQLite serializes anyway and this avoids SQLITE_BUSY churn.
	conn.SetMaxOpenConns(1)

	if _, err := conn.ExecContext(context.Background(), schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	log.Debug(log.CatHistory, "Opened launch history", "path", path)
	return &DB{conn: conn}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.conn.Close()
}
