// Package schema reads table and column catalogs from a live database and
// normalizes them into core.Schema.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/leapstack-labs/tablex/pkg/adapter"
	"github.com/leapstack-labs/tablex/pkg/core"
	"github.com/leapstack-labs/tablex/pkg/dialect"
)

// Options tunes discovery.
type Options struct {
	// Schema is the PostgreSQL schema to read. Empty means the dialect
	// default ("public"). Ignored by the other dialects.
	Schema string
}

func (o Options) namespace(d core.Dialect) string {
	if o.Schema != "" {
		return o.Schema
	}
	dl, err := dialect.Get(d)
	if err != nil {
		return ""
	}
	return dl.DefaultSchema
}

// Discover reads every base table with its columns and CREATE text.
func Discover(ctx context.Context, q adapter.Querier, d core.Dialect, opts Options) (*core.Schema, error) {
	var (
		tables []core.TableInfo
		err    error
	)
	switch d {
	case core.SQLite:
		tables, err = discoverSQLite(ctx, q)
	case core.PostgreSQL:
		tables, err = discoverPostgres(ctx, q, opts.namespace(d))
	case core.MySQL:
		tables, err = discoverMySQL(ctx, q)
	default:
		return nil, &core.UnsupportedDriverError{Prefix: string(d)}
	}
	if err != nil {
		return nil, wrap(d, err)
	}
	return &core.Schema{Dialect: d, Tables: tables, DiscoveredAt: time.Now().UTC()}, nil
}

// Tables lists base table names in name order.
func Tables(ctx context.Context, q adapter.Querier, d core.Dialect, opts Options) ([]string, error) {
	var (
		query string
		args  []any
	)
	switch d {
	case core.SQLite:
		query = sqliteTablesSQL
	case core.PostgreSQL:
		query, args = postgresTablesSQL, []any{opts.namespace(d)}
	case core.MySQL:
		query = mysqlTablesSQL
	default:
		return nil, &core.UnsupportedDriverError{Prefix: string(d)}
	}
	names, err := scanStrings(ctx, q, query, args...)
	if err != nil {
		return nil, wrap(d, err)
	}
	return names, nil
}

// ForeignKeysOf returns the foreign keys declared on table.column.
func ForeignKeysOf(ctx context.Context, q adapter.Querier, d core.Dialect, opts Options, table, column string) ([]core.ForeignKey, error) {
	var (
		fks []core.ForeignKey
		err error
	)
	switch d {
	case core.SQLite:
		fks, err = sqliteForeignKeys(ctx, q, table)
	case core.PostgreSQL:
		fks, err = postgresForeignKeys(ctx, q, opts.namespace(d), table)
	case core.MySQL:
		fks, err = mysqlForeignKeys(ctx, q, table)
	default:
		return nil, &core.UnsupportedDriverError{Prefix: string(d)}
	}
	if err != nil {
		return nil, &core.SchemaDiscoveryError{Dialect: d, Table: table, Err: err}
	}
	out := []core.ForeignKey{}
	for _, fk := range fks {
		if fk.Column == column {
			out = append(out, fk)
		}
	}
	return out, nil
}

// tableError attributes a failure to one table.
type tableError struct {
	table string
	err   error
}

func (e *tableError) Error() string { return e.err.Error() }
func (e *tableError) Unwrap() error { return e.err }

func wrap(d core.Dialect, err error) error {
	if te, ok := err.(*tableError); ok {
		return &core.SchemaDiscoveryError{Dialect: d, Table: te.table, Err: te.err}
	}
	return &core.SchemaDiscoveryError{Dialect: d, Err: err}
}

func scanStrings(ctx context.Context, q adapter.Querier, query string, args ...any) ([]string, error) {
	out := []string{}
	err := adapter.QueryOn(ctx, q, func(rows *sql.Rows) error {
		for rows.Next() {
			var s string
			if err := rows.Scan(&s); err != nil {
				return fmt.Errorf("failed to scan row: %w", err)
			}
			out = append(out, s)
		}
		return nil
	}, query, args...)
	return out, err
}

// tableSet collects columns per table in catalog order.
type tableSet struct {
	order  []string
	tables map[string]*core.TableInfo
}

func newTableSet(names []string) *tableSet {
	ts := &tableSet{tables: make(map[string]*core.TableInfo, len(names))}
	for _, n := range names {
		ts.order = append(ts.order, n)
		ts.tables[n] = &core.TableInfo{Name: n}
	}
	return ts
}

func (ts *tableSet) get(name string) *core.TableInfo {
	return ts.tables[name]
}

func (ts *tableSet) list() []core.TableInfo {
	out := make([]core.TableInfo, 0, len(ts.order))
	for _, n := range ts.order {
		out = append(out, *ts.tables[n])
	}
	return out
}

// columnKey identifies a column across tables.
type columnKey struct {
	table, column string
}
