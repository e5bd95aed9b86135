package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/leapstack-labs/tablex/pkg/adapter"
	"github.com/leapstack-labs/tablex/pkg/core"
	"github.com/leapstack-labs/tablex/pkg/dialect"
)

const (
	sqliteTablesSQL = `SELECT name FROM sqlite_schema
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`

	sqliteCreateSQL = `SELECT name, sql FROM sqlite_schema
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`

	// hidden is 2 or 3 for generated columns.
	sqliteColumnsSQL = `SELECT name, type, "notnull", dflt_value, pk, hidden
FROM pragma_table_xinfo(?)
ORDER BY cid`

	sqliteForeignKeysSQL = `SELECT seq, "from", "table", "to" FROM pragma_foreign_key_list(?) ORDER BY id, seq`

	sqlitePrimaryKeySQL = `SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk`
)

func discoverSQLite(ctx context.Context, q adapter.Querier) ([]core.TableInfo, error) {
	var names []string
	creates := map[string]string{}
	err := adapter.QueryOn(ctx, q, func(rows *sql.Rows) error {
		for rows.Next() {
			var name string
			var create sql.NullString
			if err := rows.Scan(&name, &create); err != nil {
				return fmt.Errorf("failed to scan table: %w", err)
			}
			names = append(names, name)
			creates[name] = create.String
		}
		return nil
	}, sqliteCreateSQL)
	if err != nil {
		return nil, err
	}

	ts := newTableSet(names)
	for _, name := range names {
		t := ts.get(name)
		t.CreateSQL = creates[name]
		if t.Columns, err = sqliteColumns(ctx, q, name, t.CreateSQL); err != nil {
			return nil, &tableError{table: name, err: err}
		}
		fks, err := sqliteForeignKeys(ctx, q, name)
		if err != nil {
			return nil, &tableError{table: name, err: err}
		}
		for _, fk := range fks {
			for i := range t.Columns {
				if t.Columns[i].Name == fk.Column {
					t.Columns[i].HasForeignKey = true
				}
			}
		}
	}
	return ts.list(), nil
}

func sqliteColumns(ctx context.Context, q adapter.Querier, table, createSQL string) ([]core.ColumnInfo, error) {
	var cols []core.ColumnInfo
	pkCount := 0
	err := adapter.QueryOn(ctx, q, func(rows *sql.Rows) error {
		for rows.Next() {
			var (
				c       core.ColumnInfo
				notNull int
				dflt    sql.NullString
				pk      int
				hidden  int
			)
			if err := rows.Scan(&c.Name, &c.NativeType, &notNull, &dflt, &pk, &hidden); err != nil {
				return fmt.Errorf("failed to scan column: %w", err)
			}
			if hidden == 1 {
				continue
			}
			c.Type = dialect.NormalizeColumnType(core.SQLite, c.NativeType)
			c.Nullable = notNull == 0
			c.PrimaryKey = pk > 0
			c.Default = dflt.String
			c.AutoGenerated = hidden == 2 || hidden == 3
			if c.PrimaryKey {
				pkCount++
			}
			cols = append(cols, c)
		}
		return nil
	}, sqliteColumnsSQL, table)
	if err != nil {
		return nil, err
	}

	// A lone INTEGER PRIMARY KEY aliases the rowid and is filled in by
	// the engine, as is any AUTOINCREMENT column.
	autoinc := strings.Contains(strings.ToUpper(createSQL), "AUTOINCREMENT")
	for i := range cols {
		c := &cols[i]
		if c.PrimaryKey && pkCount == 1 && (strings.EqualFold(c.NativeType, "INTEGER") || autoinc) {
			c.AutoGenerated = true
			c.Nullable = false
		}
	}
	return cols, nil
}

func sqliteForeignKeys(ctx context.Context, q adapter.Querier, table string) ([]core.ForeignKey, error) {
	var fks []core.ForeignKey
	// seq is the position of each implicit reference within its key.
	seq := map[int]int{}
	err := adapter.QueryOn(ctx, q, func(rows *sql.Rows) error {
		for rows.Next() {
			var fk core.ForeignKey
			var n int
			var to sql.NullString
			if err := rows.Scan(&n, &fk.Column, &fk.ReferencedTable, &to); err != nil {
				return fmt.Errorf("failed to scan foreign key: %w", err)
			}
			fk.Table = table
			fk.ReferencedColumn = to.String
			if !to.Valid || to.String == "" {
				seq[len(fks)] = n
			}
			fks = append(fks, fk)
		}
		return nil
	}, sqliteForeignKeysSQL, table)
	if err != nil {
		return nil, err
	}

	// REFERENCES parent without a column list points at the parent's
	// primary key, column for column.
	keys := map[string][]string{}
	for i, n := range seq {
		parent := fks[i].ReferencedTable
		pk, ok := keys[parent]
		if !ok {
			if pk, err = sqlitePrimaryKey(ctx, q, parent); err != nil {
				return nil, err
			}
			keys[parent] = pk
		}
		if n < len(pk) {
			fks[i].ReferencedColumn = pk[n]
		}
	}
	return fks, nil
}

func sqlitePrimaryKey(ctx context.Context, q adapter.Querier, table string) ([]string, error) {
	var cols []string
	err := adapter.QueryOn(ctx, q, func(rows *sql.Rows) error {
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return fmt.Errorf("failed to scan primary key column: %w", err)
			}
			cols = append(cols, name)
		}
		return nil
	}, sqlitePrimaryKeySQL, table)
	return cols, err
}
