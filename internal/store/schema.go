// Package store provides the SQLite-backed node repository with optional
// FTS5 full-text search over node text.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS nodes (
	id            TEXT PRIMARY KEY,
	parent_id     TEXT,
	rank_key      TEXT NOT NULL,
	created_time  TEXT NOT NULL,
	modified_time TEXT NOT NULL,
	node_type     TEXT NOT NULL DEFAULT 'Standard',
	text          TEXT NOT NULL DEFAULT '',
	author        TEXT NOT NULL DEFAULT '',
	source        TEXT NOT NULL DEFAULT 'User'
);

CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id);
`

// DB wraps a sql.DB with repository operations.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn, path: path}, nil
}

// Path returns the database file path given to Open.
func (db *DB) Path() string {
	return db.path
}

// PingContext reports whether the database is still reachable.
func (db *DB) PingContext(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
