// Package adapter provides the connection pool shared by every dialect.
//
// A Pool wraps a database/sql handle opened through the dialect's driver
// package in pkg/adapters. Obtaining a connection is bounded by the acquire
// timeout; statements then run under the caller's context only.
package adapter

import (
	"context"
	"database/sql"
)

// Querier is the read surface catalog queries need. *sql.DB, *sql.Conn and
// *sql.Tx all satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Execer runs statements that return no rows.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Conn)(nil)
	_ Execer  = (*sql.Conn)(nil)
)
