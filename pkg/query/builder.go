package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/leapstack-labs/tablex/pkg/codec"
	"github.com/leapstack-labs/tablex/pkg/core"
	"github.com/leapstack-labs/tablex/pkg/dialect"
)

// Builder generates statements for one dialect.
type Builder struct {
	dialect *dialect.Dialect
	schema  string
}

// Option configures a Builder.
type Option func(*Builder)

// WithSchema qualifies every table name with the given schema.
func WithSchema(name string) Option {
	return func(b *Builder) {
		b.schema = name
	}
}

// New creates a Builder for d.
func New(d core.Dialect, opts ...Option) (*Builder, error) {
	dl, err := dialect.Get(d)
	if err != nil {
		return nil, err
	}
	b := &Builder{dialect: dl}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Dialect returns the builder's dialect.
func (b *Builder) Dialect() core.Dialect {
	return b.dialect.Name
}

// writer accumulates SQL text and arguments, numbering placeholders as
// values are bound.
type writer struct {
	d    *dialect.Dialect
	buf  bytes.Buffer
	args []any
}

func (w *writer) write(parts ...string) {
	for _, p := range parts {
		w.buf.WriteString(p)
	}
}

func (w *writer) ident(name string) {
	w.buf.WriteString(w.d.QuoteIdentifier(name))
}

// bind encodes a caller value and writes its placeholder.
func (w *writer) bind(column string, ct core.ColumnType, raw json.RawMessage) error {
	arg, err := codec.EncodeRecord(w.d.Name, core.RowRecord{ColumnName: column, Value: raw, ColumnType: ct})
	if err != nil {
		return err
	}
	w.args = append(w.args, arg)
	w.buf.WriteString(w.d.FormatPlaceholder(len(w.args)))
	return nil
}

func (w *writer) statement() Statement {
	return Statement{SQL: w.buf.String(), Args: w.args}
}

func (b *Builder) newWriter() *writer {
	return &writer{d: b.dialect}
}

func (b *Builder) table(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: table name is required", core.ErrInvalidRequest)
	}
	return b.dialect.QuoteQualified(b.schema, name), nil
}

// Select builds a filtered, sorted and paginated read. An empty projection
// selects every column.
func (b *Builder) Select(q SelectQuery) (Statement, error) {
	table, err := b.table(q.Table)
	if err != nil {
		return Statement{}, err
	}

	w := b.newWriter()
	w.write("SELECT ")
	if len(q.Columns) == 0 {
		w.write("*")
	}
	for i, c := range q.Columns {
		if c.Name == "" {
			return Statement{}, fmt.Errorf("%w: projected column %d has no name", core.ErrInvalidRequest, i)
		}
		if i > 0 {
			w.write(", ")
		}
		quoted := b.dialect.QuoteIdentifier(c.Name)
		expr := quoted
		if c.Type == core.TypeCustom {
			expr = b.dialect.CastToText(quoted)
		}
		w.write(expr)
		if expr != quoted {
			w.write(" AS ", quoted)
		}
	}
	w.write(" FROM ", table)

	if err := b.where(w, q.Filters, q.Groups); err != nil {
		return Statement{}, err
	}

	for i, s := range q.Sort {
		if s.Column == "" {
			return Statement{}, fmt.Errorf("%w: sort key %d has no column", core.ErrInvalidRequest, i)
		}
		if i == 0 {
			w.write(" ORDER BY ")
		} else {
			w.write(", ")
		}
		w.ident(s.Column)
		if s.Desc {
			w.write(" DESC")
		} else {
			w.write(" ASC")
		}
	}

	if q.Page.Size > 0 {
		offset, err := q.Page.Offset()
		if err != nil {
			return Statement{}, err
		}
		w.write(" LIMIT ", strconv.FormatUint(q.Page.Size, 10),
			" OFFSET ", strconv.FormatUint(offset, 10))
	}
	return w.statement(), nil
}

// Count builds a COUNT(*) over the rows Select would match without
// pagination.
func (b *Builder) Count(tableName string, filters []Filter, groups []FilterGroup) (Statement, error) {
	table, err := b.table(tableName)
	if err != nil {
		return Statement{}, err
	}
	w := b.newWriter()
	w.write("SELECT COUNT(*) FROM ", table)
	if err := b.where(w, filters, groups); err != nil {
		return Statement{}, err
	}
	return w.statement(), nil
}

// Insert builds a single-row INSERT. Column and value lists follow record
// order.
func (b *Builder) Insert(tableName string, records []core.RowRecord) (Statement, error) {
	table, err := b.table(tableName)
	if err != nil {
		return Statement{}, err
	}
	if len(records) == 0 {
		return Statement{}, fmt.Errorf("%w: insert into %s has no values", core.ErrInvalidRequest, tableName)
	}

	w := b.newWriter()
	w.write("INSERT INTO ", table, " (")
	for i, r := range records {
		if i > 0 {
			w.write(", ")
		}
		w.ident(r.ColumnName)
	}
	w.write(") VALUES (")
	for i, r := range records {
		if i > 0 {
			w.write(", ")
		}
		if err := w.bind(r.ColumnName, r.ColumnType, r.Value); err != nil {
			return Statement{}, err
		}
	}
	w.write(")")
	return w.statement(), nil
}

// Delete builds a DELETE matching any of the key sets. Each key set is a
// conjunction of column equalities.
func (b *Builder) Delete(tableName string, keySets [][]core.RowRecord) (Statement, error) {
	table, err := b.table(tableName)
	if err != nil {
		return Statement{}, err
	}
	if len(keySets) == 0 {
		return Statement{}, fmt.Errorf("%w: delete from %s has no key sets", core.ErrInvalidRequest, tableName)
	}

	w := b.newWriter()
	w.write("DELETE FROM ", table, " WHERE ")
	for i, keys := range keySets {
		if len(keys) == 0 {
			return Statement{}, fmt.Errorf("%w: key set %d is empty", core.ErrInvalidRequest, i)
		}
		if i > 0 {
			w.write(" OR ")
		}
		if err := b.keyMatch(w, keys); err != nil {
			return Statement{}, err
		}
	}
	return w.statement(), nil
}

// Update builds an UPDATE setting patch on the rows matching keys.
func (b *Builder) Update(tableName string, keys, patch []core.RowRecord) (Statement, error) {
	table, err := b.table(tableName)
	if err != nil {
		return Statement{}, err
	}
	if len(keys) == 0 {
		return Statement{}, fmt.Errorf("%w: update of %s has no key", core.ErrInvalidRequest, tableName)
	}
	if len(patch) == 0 {
		return Statement{}, fmt.Errorf("%w: update of %s has no changes", core.ErrInvalidRequest, tableName)
	}

	w := b.newWriter()
	w.write("UPDATE ", table, " SET ")
	for i, r := range patch {
		if i > 0 {
			w.write(", ")
		}
		w.ident(r.ColumnName)
		w.write(" = ")
		if err := w.bind(r.ColumnName, r.ColumnType, r.Value); err != nil {
			return Statement{}, err
		}
	}
	w.write(" WHERE ")
	if err := b.keyMatch(w, keys); err != nil {
		return Statement{}, err
	}
	return w.statement(), nil
}

func (b *Builder) keyMatch(w *writer, keys []core.RowRecord) error {
	w.write("(")
	for i, k := range keys {
		if i > 0 {
			w.write(" AND ")
		}
		if isNull(k.Value) {
			w.ident(k.ColumnName)
			w.write(" IS NULL")
			continue
		}
		w.ident(k.ColumnName)
		w.write(" = ")
		if err := w.bind(k.ColumnName, k.ColumnType, k.Value); err != nil {
			return err
		}
	}
	w.write(")")
	return nil
}

func (b *Builder) where(w *writer, filters []Filter, groups []FilterGroup) error {
	first := true
	next := func() {
		if first {
			w.write(" WHERE ")
			first = false
		} else {
			w.write(" AND ")
		}
	}

	for _, f := range filters {
		next()
		if err := b.predicate(w, f); err != nil {
			return err
		}
	}
	for _, g := range groups {
		if len(g.Filters) == 0 {
			continue
		}
		next()
		join := " AND "
		if g.Any {
			join = " OR "
		}
		w.write("(")
		for i, f := range g.Filters {
			if i > 0 {
				w.write(join)
			}
			if err := b.predicate(w, f); err != nil {
				return err
			}
		}
		w.write(")")
	}
	return nil
}

func (b *Builder) predicate(w *writer, f Filter) error {
	if f.Column == "" {
		return fmt.Errorf("%w: filter has no column", core.ErrInvalidRequest)
	}
	n := f.Op.Arity()
	switch {
	case n >= 0 && len(f.Values) != n:
		return fmt.Errorf("%w: %s filter on %s takes %d values, got %d", core.ErrInvalidRequest, f.Op, f.Column, n, len(f.Values))
	case n < 0 && len(f.Values) == 0:
		return fmt.Errorf("%w: %s filter on %s needs at least one value", core.ErrInvalidRequest, f.Op, f.Column)
	}

	w.write(b.filterColumn(f))
	switch f.Op {
	case OpIsNull:
		w.write(" IS NULL")
	case OpIsNotNull:
		w.write(" IS NOT NULL")
	case OpEq, OpNe:
		if isNull(f.Values[0]) {
			if f.Op == OpEq {
				w.write(" IS NULL")
			} else {
				w.write(" IS NOT NULL")
			}
			return nil
		}
		w.write(" ", f.Op.SQL(), " ")
		return w.bind(f.Column, f.ColumnType, f.Values[0])
	case OpGt, OpGte, OpLt, OpLte:
		w.write(" ", f.Op.SQL(), " ")
		return w.bind(f.Column, f.ColumnType, f.Values[0])
	case OpLike, OpNotLike:
		w.write(" ", f.Op.SQL(), " ")
		return w.bind(f.Column, core.TypeText, f.Values[0])
	case OpBetween:
		w.write(" BETWEEN ")
		if err := w.bind(f.Column, f.ColumnType, f.Values[0]); err != nil {
			return err
		}
		w.write(" AND ")
		return w.bind(f.Column, f.ColumnType, f.Values[1])
	case OpIn, OpNotIn:
		if f.Op == OpIn {
			w.write(" IN (")
		} else {
			w.write(" NOT IN (")
		}
		for i, v := range f.Values {
			if i > 0 {
				w.write(", ")
			}
			if err := w.bind(f.Column, f.ColumnType, v); err != nil {
				return err
			}
		}
		w.write(")")
	default:
		return fmt.Errorf("%w: unknown filter operator %q", core.ErrInvalidRequest, f.Op)
	}
	return nil
}

// filterColumn renders the filtered column. Custom columns compare as text,
// and LIKE patterns always match against the text form of the column.
func (b *Builder) filterColumn(f Filter) string {
	quoted := b.dialect.QuoteIdentifier(f.Column)
	like := f.Op == OpLike || f.Op == OpNotLike
	textual := f.ColumnType == core.TypeString || f.ColumnType == core.TypeText
	if f.ColumnType == core.TypeCustom || (like && !textual) {
		return b.dialect.CastToText(quoted)
	}
	return quoted
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
