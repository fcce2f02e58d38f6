// Package store provides an optional, durable run-history store for
// completed backtest summaries (SPEC_FULL C12). It is entirely
// additive: nothing in internal/backtest or internal/composer depends
// on it, and a backtest runs to completion with no store configured.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no cgo
)

// DB wraps a single-file sqlite connection tuned for an append-mostly
// run-history table: WAL journaling, full fsync durability since a
// saved run is the only record of a backtest once the process exits.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates (or opens) the sqlite database at path, applying the
// schema if the runs table doesn't exist yet.
func Open(path string) (*DB, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving run store path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating run store directory: %w", err)
	}

	connStr := absPath +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(FULL)" +
		"&_pragma=foreign_keys(1)"

	conn, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}
	conn.SetMaxOpenConns(1) // single writer, avoid SQLITE_BUSY under WAL

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging run store: %w", err)
	}

	db := &DB{conn: conn, path: absPath}
	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("migrating run store: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the sqlite file path.
func (db *DB) Path() string {
	return db.path
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	label           TEXT NOT NULL,
	ticker          TEXT NOT NULL,
	algorithm       TEXT NOT NULL,
	start_date      TEXT NOT NULL,
	end_date        TEXT NOT NULL,
	start_value     REAL NOT NULL,
	end_value       REAL NOT NULL,
	total_return    REAL NOT NULL,
	annualized      REAL NOT NULL,
	volatility_alpha REAL NOT NULL,
	created_at      TEXT NOT NULL
);
`

func (db *DB) migrate() error {
	_, err := db.conn.Exec(schema)
	return err
}
