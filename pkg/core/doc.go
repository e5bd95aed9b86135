// Package core defines the shared language of tablex.
//
// This package contains:
//   - The closed Dialect set and URL scheme detection
//   - The canonical ColumnType tags and the Value tagged union
//   - Schema entities (Schema, TableInfo, ColumnInfo, ForeignKey)
//   - Result shapes (DecodedRow, ExecResult, PaginatedRows, RawQueryResult)
//   - The typed error taxonomy and its serializable ErrorPayload
//
// pkg/core imports only the standard library. Every other package depends
// on core, not the reverse.
package core
