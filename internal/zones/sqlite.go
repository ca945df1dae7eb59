// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package zones

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/attendify/presence/internal/persistence/sqlite"
)

const schemaVersion = 1

// SqliteStore persists zones in a single SQLite table.
type SqliteStore struct {
	DB *sql.DB
}

// NewSqliteStore opens path and migrates the schema.
func NewSqliteStore(ctx context.Context, path string) (*SqliteStore, error) {
	db, err := sqlite.Open(ctx, path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	s := &SqliteStore{DB: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("zone store: migration failed: %w", err)
	}
	return s, nil
}

func (s *SqliteStore) migrate(ctx context.Context) error {
	var current int
	if err := s.DB.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS zones (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		center_lat REAL NOT NULL,
		center_lng REAL NOT NULL,
		radius_m REAL NOT NULL,
		attributes_json TEXT,
		created_at_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_zones_created ON zones(created_at_ms);`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

const selectZone = `SELECT id, name, center_lat, center_lng, radius_m, attributes_json, created_at_ms FROM zones`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanZone(r rowScanner) (Zone, error) {
	var (
		z       Zone
		attrs   sql.NullString
		created int64
	)
	if err := r.Scan(&z.ID, &z.Name, &z.CenterLat, &z.CenterLng, &z.RadiusM, &attrs, &created); err != nil {
		return Zone{}, err
	}
	if attrs.Valid && attrs.String != "" {
		if err := json.Unmarshal([]byte(attrs.String), &z.Attributes); err != nil {
			return Zone{}, fmt.Errorf("zone %s: attributes: %w", z.ID, err)
		}
	}
	z.CreatedAt = time.UnixMilli(created).UTC()
	return z, nil
}

func (s *SqliteStore) List(ctx context.Context) ([]Zone, error) {
	rows, err := s.DB.QueryContext(ctx, selectZone+" ORDER BY created_at_ms, id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []Zone{}
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

func (s *SqliteStore) Get(ctx context.Context, id string) (Zone, error) {
	z, err := scanZone(s.DB.QueryRowContext(ctx, selectZone+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Zone{}, ErrNotFound
	}
	return z, err
}

func (s *SqliteStore) Put(ctx context.Context, z Zone) error {
	if err := z.Validate(); err != nil {
		return err
	}
	var attrs sql.NullString
	if len(z.Attributes) > 0 {
		buf, err := json.Marshal(z.Attributes)
		if err != nil {
			return fmt.Errorf("zone %s: attributes: %w", z.ID, err)
		}
		attrs = sql.NullString{String: string(buf), Valid: true}
	}
	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO zones (id, name, center_lat, center_lng, radius_m, attributes_json, created_at_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		center_lat = excluded.center_lat,
		center_lng = excluded.center_lng,
		radius_m = excluded.radius_m,
		attributes_json = excluded.attributes_json`,
		z.ID, z.Name, z.CenterLat, z.CenterLng, z.RadiusM, attrs, z.CreatedAt.UnixMilli())
	return err
}

func (s *SqliteStore) Delete(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM zones WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping runs a quick integrity check.
func (s *SqliteStore) Ping(ctx context.Context) error {
	issues, err := sqlite.VerifyIntegrity(ctx, s.DB, false)
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		return fmt.Errorf("zone store integrity: %v", issues)
	}
	return nil
}

func (s *SqliteStore) Close() error { return s.DB.Close() }
