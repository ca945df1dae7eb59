// SPDX-License-Identifier: MIT

// Package sqlite opens modernc SQLite pools with the daemon's pragmas.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver
)

// Config holds pool parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultConfig suits a small single-writer store.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
}

// DSN renders the connection string. Pragmas are part of the DSN so every
// pooled connection gets them.
func DSN(path string, cfg Config) string {
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path, cfg.BusyTimeout.Milliseconds())
}

// Open returns a pinged pool for path.
func Open(ctx context.Context, path string, cfg Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DSN(path, cfg))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return db, nil
}
