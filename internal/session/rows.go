package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/tablex/pkg/adapter"
	"github.com/leapstack-labs/tablex/pkg/codec"
	"github.com/leapstack-labs/tablex/pkg/core"
	"github.com/leapstack-labs/tablex/pkg/query"
	"github.com/leapstack-labs/tablex/pkg/schema"
)

// decoder builds a row decoder for the connection. A known table supplies
// column type hints.
func (m *Manager) decoder(c *connection, table string) *codec.Decoder {
	opts := []codec.DecoderOption{codec.Lenient(m.cfg.Lenient)}
	if t, ok := c.schema.Table(table); ok {
		opts = append(opts, codec.WithHints(t.ColumnTypes()))
	}
	return codec.NewDecoder(c.dialect(), opts...)
}

func (m *Manager) logWarnings(dec *codec.Decoder) {
	for _, w := range dec.Warnings() {
		m.logger.Warn("cell decoded as null", slog.String("error", w.Error()))
	}
}

func (m *Manager) selectRows(ctx context.Context, q *sql.Conn, c *connection, stmt query.Statement, table string) ([]core.DecodedRow, error) {
	dec := m.decoder(c, table)
	var rows []core.DecodedRow
	err := adapter.QueryOn(ctx, q, func(r *sql.Rows) error {
		var err error
		_, rows, err = dec.DecodeRows(r)
		return err
	}, stmt.SQL, stmt.Args...)
	m.logWarnings(dec)
	return rows, err
}

// ExecuteRawQuery runs a script statement by statement on one connection
// and returns the outcome of the last statement.
func (m *Manager) ExecuteRawQuery(ctx context.Context, sqlText string) (core.RawQueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.active()
	if err != nil {
		return core.RawQueryResult{}, err
	}

	stmts := query.SplitStatements(c.dialect(), sqlText)
	if len(stmts) == 0 {
		return core.RawQueryResult{}, fmt.Errorf("%w: no statements to execute", core.ErrInvalidRequest)
	}

	var result core.RawQueryResult
	err = c.pool.WithConn(ctx, func(conn *sql.Conn) error {
		for _, stmt := range stmts {
			if !query.ReturnsRows(c.dialect(), stmt) {
				n, err := adapter.ExecOn(ctx, conn, stmt)
				if err != nil {
					return err
				}
				result = core.RawQueryResult{Exec: &core.ExecResult{RowsAffected: n}}
				continue
			}

			dec := m.decoder(c, "")
			var cols []string
			var rows []core.DecodedRow
			err := adapter.QueryOn(ctx, conn, func(r *sql.Rows) error {
				var err error
				cols, rows, err = dec.DecodeRows(r)
				return err
			}, stmt)
			m.logWarnings(dec)
			if err != nil {
				return err
			}
			if rows == nil {
				rows = []core.DecodedRow{}
			}
			result = core.RawQueryResult{Columns: cols, Rows: rows}
		}
		return nil
	})
	if err != nil {
		return core.RawQueryResult{}, err
	}
	return result, nil
}

// GetPaginatedRows reads one page of a table and counts the pages for the
// same filters. With no projection, every known column is selected so
// custom-typed columns come back as text.
func (m *Manager) GetPaginatedRows(ctx context.Context, req query.SelectQuery) (core.PaginatedRows, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.active()
	if err != nil {
		return core.PaginatedRows{}, err
	}

	if len(req.Columns) == 0 {
		if t, ok := c.schema.Table(req.Table); ok {
			for _, col := range t.Columns {
				req.Columns = append(req.Columns, query.Column{Name: col.Name, Type: col.Type})
			}
		}
	}
	sel, err := c.builder.Select(req)
	if err != nil {
		return core.PaginatedRows{}, err
	}
	count, err := c.builder.Count(req.Table, req.Filters, req.Groups)
	if err != nil {
		return core.PaginatedRows{}, err
	}

	dec := m.decoder(c, req.Table)
	var rows []core.DecodedRow
	err = c.pool.Query(ctx, func(r *sql.Rows) error {
		var err error
		_, rows, err = dec.DecodeRows(r)
		return err
	}, sel.SQL, sel.Args...)
	m.logWarnings(dec)
	if err != nil {
		return core.PaginatedRows{}, err
	}
	total, err := c.pool.QueryUint(ctx, count.SQL, count.Args...)
	if err != nil {
		return core.PaginatedRows{}, err
	}
	if rows == nil {
		rows = []core.DecodedRow{}
	}
	return core.PaginatedRows{Data: rows, PageCount: req.Page.PageCount(total), TotalRows: total}, nil
}

func (m *Manager) exec(ctx context.Context, c *connection, stmt query.Statement) (core.ExecResult, error) {
	n, err := c.pool.Exec(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return core.ExecResult{}, err
	}
	return core.ExecResult{RowsAffected: n}, nil
}

// CreateRow inserts one row.
func (m *Manager) CreateRow(ctx context.Context, table string, records []core.RowRecord) (core.ExecResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.active()
	if err != nil {
		return core.ExecResult{}, err
	}
	stmt, err := c.builder.Insert(table, records)
	if err != nil {
		return core.ExecResult{}, err
	}
	return m.exec(ctx, c, stmt)
}

// DeleteRows deletes the rows matching any of the key sets.
func (m *Manager) DeleteRows(ctx context.Context, table string, keySets [][]core.RowRecord) (core.ExecResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.active()
	if err != nil {
		return core.ExecResult{}, err
	}
	stmt, err := c.builder.Delete(table, keySets)
	if err != nil {
		return core.ExecResult{}, err
	}
	return m.exec(ctx, c, stmt)
}

// UpdateRow patches the row whose single-column key equals pkValue. The
// key's column type is taken from the cached schema.
func (m *Manager) UpdateRow(ctx context.Context, table, pkColumn string, pkValue json.RawMessage, patch []core.RowRecord) (core.ExecResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.active()
	if err != nil {
		return core.ExecResult{}, err
	}
	ct, err := columnType(c, table, pkColumn)
	if err != nil {
		return core.ExecResult{}, err
	}
	key := []core.RowRecord{{ColumnName: pkColumn, Value: pkValue, ColumnType: ct}}
	return m.updateLocked(ctx, c, table, key, patch)
}

// UpdateRowByKeys patches the row matching every key record.
func (m *Manager) UpdateRowByKeys(ctx context.Context, table string, keys, patch []core.RowRecord) (core.ExecResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.active()
	if err != nil {
		return core.ExecResult{}, err
	}
	return m.updateLocked(ctx, c, table, keys, patch)
}

func (m *Manager) updateLocked(ctx context.Context, c *connection, table string, keys, patch []core.RowRecord) (core.ExecResult, error) {
	if len(patch) == 0 {
		return core.ExecResult{}, nil
	}
	stmt, err := c.builder.Update(table, keys, patch)
	if err != nil {
		return core.ExecResult{}, err
	}
	return m.exec(ctx, c, stmt)
}

func columnType(c *connection, table, column string) (core.ColumnType, error) {
	t, ok := c.schema.Table(table)
	if !ok {
		return core.TypeUnsupported, fmt.Errorf("%w: unknown table %q", core.ErrInvalidRequest, table)
	}
	col, ok := t.Column(column)
	if !ok {
		return core.TypeUnsupported, fmt.Errorf("%w: unknown column %q in table %q", core.ErrInvalidRequest, column, table)
	}
	return col.Type, nil
}

// GetFKRelations follows every foreign key declared on table.column and
// returns the referenced rows whose key equals value.
func (m *Manager) GetFKRelations(ctx context.Context, table, column string, value json.RawMessage) ([]core.FKRows, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.active()
	if err != nil {
		return nil, err
	}

	out := []core.FKRows{}
	err = c.pool.WithConn(ctx, func(conn *sql.Conn) error {
		fks, err := schema.ForeignKeysOf(ctx, conn, c.dialect(), m.cfg.Schema, table, column)
		if err != nil {
			return err
		}
		for _, fk := range fks {
			ct, err := columnType(c, fk.ReferencedTable, fk.ReferencedColumn)
			if err != nil {
				if ct, err = columnType(c, table, column); err != nil {
					return err
				}
			}
			stmt, err := c.builder.Select(query.SelectQuery{
				Table: fk.ReferencedTable,
				Filters: []query.Filter{{
					Column:     fk.ReferencedColumn,
					Op:         query.OpEq,
					ColumnType: ct,
					Values:     []json.RawMessage{value},
				}},
			})
			if err != nil {
				return err
			}
			rows, err := m.selectRows(ctx, conn, c, stmt, fk.ReferencedTable)
			if err != nil {
				return err
			}
			if rows == nil {
				rows = []core.DecodedRow{}
			}
			out = append(out, core.FKRows{TableName: fk.ReferencedTable, Rows: rows})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
