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
	mysqlTablesSQL = `SELECT table_name FROM information_schema.tables
WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
ORDER BY table_name`

	mysqlColumnsSQL = `SELECT table_name, column_name, column_type, is_nullable, column_default, column_key, extra
FROM information_schema.columns
WHERE table_schema = DATABASE()
ORDER BY table_name, ordinal_position`

	mysqlForeignKeysSQL = `SELECT table_name, column_name, referenced_table_name, referenced_column_name
FROM information_schema.key_column_usage
WHERE table_schema = DATABASE() AND referenced_table_name IS NOT NULL`

	mysqlForeignKeysOrder = `
ORDER BY table_name, constraint_name, ordinal_position`
)

func discoverMySQL(ctx context.Context, q adapter.Querier) ([]core.TableInfo, error) {
	names, err := scanStrings(ctx, q, mysqlTablesSQL)
	if err != nil {
		return nil, err
	}
	ts := newTableSet(names)

	fks, err := mysqlForeignKeys(ctx, q, "")
	if err != nil {
		return nil, err
	}
	fkCols := map[columnKey]bool{}
	for _, fk := range fks {
		fkCols[columnKey{fk.Table, fk.Column}] = true
	}

	err = adapter.QueryOn(ctx, q, func(rows *sql.Rows) error {
		for rows.Next() {
			var (
				table, nullable, key, extra string
				dflt                        sql.NullString
				c                           core.ColumnInfo
			)
			if err := rows.Scan(&table, &c.Name, &c.NativeType, &nullable, &dflt, &key, &extra); err != nil {
				return fmt.Errorf("failed to scan column: %w", err)
			}
			t := ts.get(table)
			if t == nil {
				continue
			}
			c.Type = dialect.NormalizeColumnType(core.MySQL, c.NativeType)
			c.Nullable = nullable == "YES"
			c.Default = dflt.String
			c.PrimaryKey = key == "PRI"
			c.HasForeignKey = fkCols[columnKey{table, c.Name}]
			c.AutoGenerated = mysqlAutoGenerated(extra)
			t.Columns = append(t.Columns, c)
		}
		return nil
	}, mysqlColumnsSQL)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		create, err := mysqlCreate(ctx, q, name)
		if err != nil {
			return nil, &tableError{table: name, err: err}
		}
		ts.get(name).CreateSQL = create
	}
	return ts.list(), nil
}

// mysqlAutoGenerated reads information_schema.columns.extra. DEFAULT_GENERATED
// marks an expression default, not a generated column.
func mysqlAutoGenerated(extra string) bool {
	e := strings.ToUpper(extra)
	return strings.Contains(e, "AUTO_INCREMENT") ||
		strings.Contains(e, "VIRTUAL GENERATED") ||
		strings.Contains(e, "STORED GENERATED")
}

func mysqlCreate(ctx context.Context, q adapter.Querier, table string) (string, error) {
	dl, _ := dialect.Get(core.MySQL)
	query := "SHOW CREATE TABLE " + dl.QuoteIdentifier(table)
	var name, create string
	if err := q.QueryRowContext(ctx, query).Scan(&name, &create); err != nil {
		return "", &core.QueryError{SQL: query, Err: err}
	}
	return create, nil
}

// mysqlForeignKeys lists foreign keys in the current database. An empty
// table lists every table's keys.
func mysqlForeignKeys(ctx context.Context, q adapter.Querier, table string) ([]core.ForeignKey, error) {
	query := mysqlForeignKeysSQL
	var args []any
	if table != "" {
		query += " AND table_name = ?"
		args = append(args, table)
	}
	query += mysqlForeignKeysOrder

	var fks []core.ForeignKey
	err := adapter.QueryOn(ctx, q, func(rows *sql.Rows) error {
		for rows.Next() {
			var fk core.ForeignKey
			if err := rows.Scan(&fk.Table, &fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
				return fmt.Errorf("failed to scan foreign key: %w", err)
			}
			fks = append(fks, fk)
		}
		return nil
	}, query, args...)
	return fks, err
}
