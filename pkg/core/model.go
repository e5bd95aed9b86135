package core

import (
	"bytes"
	"encoding/json"
	"time"
)

// ColumnInfo describes one column of a discovered table.
type ColumnInfo struct {
	Name          string     `json:"name" yaml:"name"`
	Type          ColumnType `json:"type" yaml:"type"`
	NativeType    string     `json:"native_type" yaml:"native_type"`
	Nullable      bool       `json:"nullable" yaml:"nullable"`
	PrimaryKey    bool       `json:"primary_key" yaml:"primary_key"`
	AutoGenerated bool       `json:"auto_generated" yaml:"auto_generated"`
	HasForeignKey bool       `json:"has_foreign_key" yaml:"has_foreign_key"`
	Default       string     `json:"default,omitempty" yaml:"default,omitempty"`
}

// TableInfo describes a table: its columns in ordinal order and the
// dialect-native CREATE TABLE text.
type TableInfo struct {
	Name      string       `json:"name" yaml:"name"`
	Columns   []ColumnInfo `json:"columns" yaml:"columns"`
	CreateSQL string       `json:"create_sql" yaml:"create_sql"`
}

// Column returns the named column.
func (t *TableInfo) Column(name string) (ColumnInfo, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnInfo{}, false
}

// PrimaryKey returns the primary key columns in ordinal order.
func (t *TableInfo) PrimaryKey() []ColumnInfo {
	var pk []ColumnInfo
	for _, c := range t.Columns {
		if c.PrimaryKey {
			pk = append(pk, c)
		}
	}
	return pk
}

// ColumnTypes maps column name to canonical type.
func (t *TableInfo) ColumnTypes() map[string]ColumnType {
	m := make(map[string]ColumnType, len(t.Columns))
	for _, c := range t.Columns {
		m[c.Name] = c.Type
	}
	return m
}

// Schema is a snapshot of every table visible to the connection.
// Table names are unique within a snapshot.
type Schema struct {
	Dialect      Dialect     `json:"dialect" yaml:"dialect"`
	Tables       []TableInfo `json:"tables" yaml:"tables"`
	DiscoveredAt time.Time   `json:"discovered_at" yaml:"discovered_at"`
}

// Table looks a table up by name.
func (s *Schema) Table(name string) (*TableInfo, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

// TableNames returns table names in snapshot order.
func (s *Schema) TableNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// ForeignKey is one column reference from Table.Column to
// ReferencedTable.ReferencedColumn.
type ForeignKey struct {
	Table            string `json:"table" yaml:"table"`
	Column           string `json:"column" yaml:"column"`
	ReferencedTable  string `json:"referenced_table" yaml:"referenced_table"`
	ReferencedColumn string `json:"referenced_column" yaml:"referenced_column"`
}

// FKRows holds the rows of a referenced table matching a foreign key value.
type FKRows struct {
	TableName string       `json:"table_name"`
	Rows      []DecodedRow `json:"rows"`
}

// RowRecord is an untyped caller cell: a column name, a raw JSON value and
// the column type the value must be read as.
type RowRecord struct {
	ColumnName string          `json:"column_name"`
	Value      json.RawMessage `json:"value"`
	ColumnType ColumnType      `json:"column_type"`
}

// DecodedRow is one result row. Column order is the query's column order.
type DecodedRow struct {
	Columns []string
	Values  []Value
}

// Append adds a cell at the end of the row.
func (r *DecodedRow) Append(column string, v Value) {
	r.Columns = append(r.Columns, column)
	r.Values = append(r.Values, v)
}

// Get returns the first cell with the given column name.
func (r DecodedRow) Get(column string) (Value, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return Value{}, false
}

// Len returns the number of cells.
func (r DecodedRow) Len() int { return len(r.Columns) }

// MarshalJSON encodes the row as an object whose keys keep column order.
func (r DecodedRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := r.Values[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ExecResult is returned by statements that do not produce rows.
type ExecResult struct {
	RowsAffected uint64 `json:"rows_affected"`
}

// PaginatedRows is one page of a table plus the page count for the
// current filter set.
type PaginatedRows struct {
	Data      []DecodedRow `json:"data"`
	PageCount uint64       `json:"page_count"`
	TotalRows uint64       `json:"total_rows"`
}

// RawQueryResult is the outcome of the last statement of a raw SQL script:
// either decoded rows or an exec result.
type RawQueryResult struct {
	Columns []string     `json:"columns,omitempty"`
	Rows    []DecodedRow `json:"rows,omitempty"`
	Exec    *ExecResult  `json:"exec,omitempty"`
}

// IsQuery reports whether the last statement produced rows.
func (r RawQueryResult) IsQuery() bool { return r.Exec == nil }

// ConnConfig is a stored connection record.
type ConnConfig struct {
	ID               string  `json:"id" yaml:"id"`
	Dialect          Dialect `json:"dialect" yaml:"dialect"`
	Name             string  `json:"name" yaml:"name"`
	ConnectionString string  `json:"connection_string" yaml:"connection_string"`
}

// SidecarStatus is the lifecycle state of the companion process.
type SidecarStatus string

// Sidecar states.
const (
	SidecarActive SidecarStatus = "active"
	SidecarPaused SidecarStatus = "paused"
	SidecarExited SidecarStatus = "exited"
)

// SidecarState is the status snapshot reported to callers.
type SidecarState struct {
	Status    SidecarStatus `json:"status"`
	PID       int           `json:"pid,omitempty"`
	StartedAt time.Time     `json:"started_at,omitzero"`
	LastError string        `json:"last_error,omitempty"`
}
