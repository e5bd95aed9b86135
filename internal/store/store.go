// Package store persists connection records in a local SQLite file.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/leapstack-labs/tablex/pkg/core"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("connection not found")

var errNotOpened = errors.New("database not opened")

// Store owns the connection records.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the store at path and runs migrations.
// Use ":memory:" for an in-memory store.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
		dsn += "&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the file the store was opened from.
func (s *Store) Path() string { return s.path }

// Close closes the store.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Add validates and stores a new connection record.
func (s *Store) Add(ctx context.Context, d core.Dialect, name, connString string) (core.ConnConfig, error) {
	if s.db == nil {
		return core.ConnConfig{}, errNotOpened
	}
	if name == "" {
		return core.ConnConfig{}, fmt.Errorf("connection name is required")
	}
	if err := core.CheckURL(connString, d); err != nil {
		return core.ConnConfig{}, err
	}

	cfg := core.ConnConfig{
		ID:               uuid.New().String(),
		Dialect:          d,
		Name:             name,
		ConnectionString: connString,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO connections (id, dialect, name, connection_string, created_at) VALUES (?, ?, ?, ?, ?)`,
		cfg.ID, string(cfg.Dialect), cfg.Name, cfg.ConnectionString, time.Now().UTC(),
	)
	if err != nil {
		return core.ConnConfig{}, fmt.Errorf("failed to add connection: %w", err)
	}
	return cfg, nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id string) (core.ConnConfig, error) {
	if s.db == nil {
		return core.ConnConfig{}, errNotOpened
	}
	var cfg core.ConnConfig
	var dialect string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, dialect, name, connection_string FROM connections WHERE id = ?`, id,
	).Scan(&cfg.ID, &dialect, &cfg.Name, &cfg.ConnectionString)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ConnConfig{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return core.ConnConfig{}, fmt.Errorf("failed to get connection: %w", err)
	}
	cfg.Dialect = core.Dialect(dialect)
	return cfg, nil
}

// Lookup resolves ref as an id first and then as a name. A name shared by
// several records resolves to the oldest.
func (s *Store) Lookup(ctx context.Context, ref string) (core.ConnConfig, error) {
	cfg, err := s.Get(ctx, ref)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return cfg, err
	}
	var id string
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM connections WHERE name = ? ORDER BY created_at LIMIT 1`, ref,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ConnConfig{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return core.ConnConfig{}, fmt.Errorf("failed to look up connection: %w", err)
	}
	return s.Get(ctx, id)
}

// List returns every record ordered by name, then creation time.
func (s *Store) List(ctx context.Context) ([]core.ConnConfig, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dialect, name, connection_string FROM connections ORDER BY name, created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []core.ConnConfig{}
	for rows.Next() {
		var cfg core.ConnConfig
		var dialect string
		if err := rows.Scan(&cfg.ID, &dialect, &cfg.Name, &cfg.ConnectionString); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		cfg.Dialect = core.Dialect(dialect)
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}
	return out, nil
}

// Delete removes the record with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		return errNotOpened
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM connections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, errNotOpened
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM connections`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count connections: %w", err)
	}
	return n, nil
}
