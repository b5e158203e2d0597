// Package store persists dig tickets in SQLite. The database is the system's
// source of truth between runs: the pipeline upserts each fetch into it and
// the analytics read back from it, so re-running a day is harmless.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"database/sql"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by lookups that matched no ticket.
var ErrNotFound = errors.New("no matching dig ticket")

// Store wraps the SQL connection with dig-ticket specific queries.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the SQLite database at path and ensures
// the schema is in place.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.configure(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}
	if err := s.createSchema(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) createSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS permits (
		dig_ticket_number TEXT PRIMARY KEY,
		permit_number TEXT,
		request_date TEXT,
		dig_date TEXT NOT NULL,
		expiration_date TEXT,
		is_emergency INTEGER NOT NULL DEFAULT 0,
		street_name TEXT,
		street_direction TEXT,
		street_number_from INTEGER DEFAULT 0,
		street_number_to INTEGER DEFAULT 0,
		street_suffix TEXT,
		dig_location TEXT,
		latitude REAL DEFAULT 0,
		longitude REAL DEFAULT 0,
		contact_first_name TEXT,
		contact_last_name TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_permits_dig_date ON permits(dig_date);
	CREATE INDEX IF NOT EXISTS idx_permits_emergency ON permits(is_emergency, dig_date);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	_, _ = s.db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// Vacuum reclaims space after large deletions, used by the backfill command.
func (s *Store) Vacuum() error {
	_, err := s.db.ExecContext(context.Background(), "VACUUM")
	return err
}
