// Package postgres opens PostgreSQL databases through pgx's database/sql
// driver.
package postgres

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// ParseURL validates a postgres:// or postgresql:// URL without connecting.
func ParseURL(rawURL string) (*pgx.ConnConfig, error) {
	cfg, err := pgx.ParseConfig(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres url: %w", err)
	}
	return cfg, nil
}

// Open opens a pool for the URL. No connection is made until first use.
func Open(rawURL string) (*sql.DB, error) {
	cfg, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return stdlib.OpenDB(*cfg), nil
}
