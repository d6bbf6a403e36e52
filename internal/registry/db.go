// Package registry is the reference backend: a SQLite store of workflow
// records and graph sources, the procedure catalog, and the graph-source
// directory sync.
package registry

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS transformations (
	resource_id TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	variant     TEXT NOT NULL DEFAULT 'default',
	record      TEXT NOT NULL,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS graphs (
	path        TEXT PRIMARY KEY,
	resource_id TEXT NOT NULL UNIQUE,
	checksum    TEXT NOT NULL DEFAULT '',
	descriptor  TEXT NOT NULL,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_graphs_resource ON graphs(resource_id);
`

// DB wraps a sql.DB with registry-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("registry: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("registry: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("registry: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
