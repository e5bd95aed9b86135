package codec

import (
	"database/sql"
	"fmt"

	"github.com/leapstack-labs/tablex/pkg/core"
)

// Decoder reads *sql.Rows into DecodedRows for one dialect.
type Decoder struct {
	dialect  core.Dialect
	hints    map[string]core.ColumnType
	lenient  bool
	warnings []error
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithHints supplies column types by result column name, usually from the
// discovered schema of the table being read. Hints win over the driver's
// reported type name.
func WithHints(hints map[string]core.ColumnType) DecoderOption {
	return func(d *Decoder) {
		d.hints = hints
	}
}

// Lenient makes a cell that fails to decode read as Null instead of failing
// the row. The error is kept and returned by Warnings.
func Lenient(on bool) DecoderOption {
	return func(d *Decoder) {
		d.lenient = on
	}
}

// NewDecoder creates a Decoder for the dialect.
func NewDecoder(d core.Dialect, opts ...DecoderOption) *Decoder {
	dec := &Decoder{dialect: d}
	for _, opt := range opts {
		opt(dec)
	}
	return dec
}

// Warnings returns the cell errors swallowed in lenient mode.
func (d *Decoder) Warnings() []error {
	return d.warnings
}

// DecodeRows drains rows. The caller still owns rows and must close it.
func (d *Decoder) DecodeRows(rows *sql.Rows) ([]string, []core.DecodedRow, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read column types: %w", err)
	}
	columns := make([]string, len(types))
	for i, ct := range types {
		columns[i] = ct.Name()
	}

	out := []core.DecodedRow{}
	for rows.Next() {
		row, err := d.scan(rows, columns, types)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return columns, out, nil
}

// DecodeRow reads the current row. rows.Next must have returned true.
func (d *Decoder) DecodeRow(rows *sql.Rows) (core.DecodedRow, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return core.DecodedRow{}, fmt.Errorf("failed to read column types: %w", err)
	}
	columns := make([]string, len(types))
	for i, ct := range types {
		columns[i] = ct.Name()
	}
	return d.scan(rows, columns, types)
}

func (d *Decoder) scan(rows *sql.Rows, columns []string, types []*sql.ColumnType) (core.DecodedRow, error) {
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return core.DecodedRow{}, fmt.Errorf("failed to scan row: %w", err)
	}

	row := core.DecodedRow{}
	for i, name := range columns {
		v, err := DecodeAs(d.dialect, values[i], types[i].DatabaseTypeName(), d.hints[name])
		if err != nil {
			err = withColumn(err, name)
			if !d.lenient {
				return core.DecodedRow{}, err
			}
			d.warnings = append(d.warnings, err)
			v = core.NullValue()
		}
		row.Append(name, v)
	}
	return row, nil
}
