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
	postgresTablesSQL = `SELECT table_name FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name`

	postgresColumnsSQL = `SELECT c.table_name, c.column_name, c.data_type, c.udt_name,
       format_type(a.atttypid, a.atttypmod),
       c.is_nullable, c.column_default,
       c.is_identity, c.identity_generation,
       c.is_generated, c.generation_expression
FROM information_schema.columns c
JOIN pg_catalog.pg_namespace n ON n.nspname = c.table_schema
JOIN pg_catalog.pg_class cl ON cl.relname = c.table_name AND cl.relnamespace = n.oid
JOIN pg_catalog.pg_attribute a ON a.attrelid = cl.oid AND a.attname = c.column_name
WHERE c.table_schema = $1
ORDER BY c.table_name, c.ordinal_position`

	postgresPrimaryKeysSQL = `SELECT cl.relname, a.attname
FROM pg_catalog.pg_constraint con
JOIN pg_catalog.pg_class cl ON cl.oid = con.conrelid
JOIN pg_catalog.pg_namespace n ON n.oid = cl.relnamespace
CROSS JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS k(attnum, pos)
JOIN pg_catalog.pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
WHERE con.contype = 'p' AND n.nspname = $1
ORDER BY cl.relname, k.pos`

	postgresForeignKeysSQL = `SELECT cl.relname, a.attname, rcl.relname, ra.attname
FROM pg_catalog.pg_constraint con
JOIN pg_catalog.pg_class cl ON cl.oid = con.conrelid
JOIN pg_catalog.pg_namespace n ON n.oid = cl.relnamespace
JOIN pg_catalog.pg_class rcl ON rcl.oid = con.confrelid
CROSS JOIN LATERAL unnest(con.conkey, con.confkey) AS k(attnum, refnum)
JOIN pg_catalog.pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
JOIN pg_catalog.pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.refnum
WHERE con.contype = 'f' AND n.nspname = $1`

	postgresForeignKeysOrder = `
ORDER BY cl.relname, con.conname, a.attnum`
)

// pgColumn carries the catalog fields needed to render CREATE TABLE.
type pgColumn struct {
	core.ColumnInfo
	formatted  string
	identity   string
	generation string
}

func discoverPostgres(ctx context.Context, q adapter.Querier, namespace string) ([]core.TableInfo, error) {
	names, err := scanStrings(ctx, q, postgresTablesSQL, namespace)
	if err != nil {
		return nil, err
	}
	ts := newTableSet(names)

	pks := map[columnKey]bool{}
	err = adapter.QueryOn(ctx, q, func(rows *sql.Rows) error {
		for rows.Next() {
			var k columnKey
			if err := rows.Scan(&k.table, &k.column); err != nil {
				return fmt.Errorf("failed to scan primary key: %w", err)
			}
			pks[k] = true
		}
		return nil
	}, postgresPrimaryKeysSQL, namespace)
	if err != nil {
		return nil, err
	}

	fks, err := postgresForeignKeys(ctx, q, namespace, "")
	if err != nil {
		return nil, err
	}
	fkCols := map[columnKey]bool{}
	for _, fk := range fks {
		fkCols[columnKey{fk.Table, fk.Column}] = true
	}

	defs := map[string][]pgColumn{}
	err = adapter.QueryOn(ctx, q, func(rows *sql.Rows) error {
		for rows.Next() {
			var (
				table, dataType, nullable, isIdentity, isGenerated string
				dflt, identityGen, genExpr                         sql.NullString
				c                                                  pgColumn
			)
			if err := rows.Scan(&table, &c.Name, &dataType, &c.NativeType, &c.formatted,
				&nullable, &dflt, &isIdentity, &identityGen, &isGenerated, &genExpr); err != nil {
				return fmt.Errorf("failed to scan column: %w", err)
			}
			t := ts.get(table)
			if t == nil {
				continue
			}
			key := columnKey{table, c.Name}
			c.Type = dialect.NormalizeColumnType(core.PostgreSQL, dataType)
			c.Nullable = nullable == "YES"
			c.Default = dflt.String
			c.PrimaryKey = pks[key]
			c.HasForeignKey = fkCols[key]
			c.AutoGenerated = isIdentity == "YES" || isGenerated == "ALWAYS" ||
				strings.HasPrefix(c.Default, "nextval(")
			if isIdentity == "YES" {
				c.identity = identityGen.String
			}
			if isGenerated == "ALWAYS" {
				c.generation = genExpr.String
			}
			t.Columns = append(t.Columns, c.ColumnInfo)
			defs[table] = append(defs[table], c)
		}
		return nil
	}, postgresColumnsSQL, namespace)
	if err != nil {
		return nil, err
	}

	fksByTable := map[string][]core.ForeignKey{}
	for _, fk := range fks {
		fksByTable[fk.Table] = append(fksByTable[fk.Table], fk)
	}
	for _, name := range names {
		ts.get(name).CreateSQL = renderPostgresCreate(namespace, name, defs[name], fksByTable[name])
	}
	return ts.list(), nil
}

// postgresForeignKeys lists foreign keys in namespace. An empty table
// lists every table's keys.
func postgresForeignKeys(ctx context.Context, q adapter.Querier, namespace, table string) ([]core.ForeignKey, error) {
	query := postgresForeignKeysSQL
	args := []any{namespace}
	if table != "" {
		query += " AND cl.relname = $2"
		args = append(args, table)
	}
	query += postgresForeignKeysOrder

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

// renderPostgresCreate rebuilds CREATE TABLE text from the catalog, since
// PostgreSQL keeps no original DDL.
func renderPostgresCreate(namespace, table string, cols []pgColumn, fks []core.ForeignKey) string {
	dl, _ := dialect.Get(core.PostgreSQL)
	q := dl.QuoteIdentifier

	var lines []string
	var pk []string
	for _, c := range cols {
		var b strings.Builder
		b.WriteString(q(c.Name))
		b.WriteByte(' ')
		b.WriteString(c.formatted)
		switch {
		case c.identity != "":
			fmt.Fprintf(&b, " GENERATED %s AS IDENTITY", c.identity)
		case c.generation != "":
			fmt.Fprintf(&b, " GENERATED ALWAYS AS (%s) STORED", c.generation)
		case c.Default != "":
			b.WriteString(" DEFAULT ")
			b.WriteString(c.Default)
		}
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
		lines = append(lines, b.String())
		if c.PrimaryKey {
			pk = append(pk, q(c.Name))
		}
	}
	if len(pk) > 0 {
		lines = append(lines, "PRIMARY KEY ("+strings.Join(pk, ", ")+")")
	}
	for _, fk := range fks {
		lines = append(lines, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			q(fk.Column), dl.QuoteQualified(namespace, fk.ReferencedTable), q(fk.ReferencedColumn)))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n    %s\n);",
		dl.QuoteQualified(namespace, table), strings.Join(lines, ",\n    "))
}
