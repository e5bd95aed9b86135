// Package query builds dialect-specific SQL for reading and writing table
// rows. Identifiers are quoted for the target dialect and caller values are
// always bound as parameters, encoded through the codec.
package query

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/leapstack-labs/tablex/pkg/core"
)

// Op is a filter predicate kind.
type Op string

// Filter predicate kinds.
const (
	OpGt        Op = "gt"
	OpGte       Op = "gte"
	OpLt        Op = "lt"
	OpLte       Op = "lte"
	OpEq        Op = "eq"
	OpNe        Op = "ne"
	OpBetween   Op = "between"
	OpLike      Op = "like"
	OpNotLike   Op = "not_like"
	OpIsNull    Op = "is_null"
	OpIsNotNull Op = "is_not_null"
	OpIn        Op = "in"
	OpNotIn     Op = "not_in"
)

// Ops lists every filter operator.
func Ops() []Op {
	return []Op{OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpBetween, OpLike, OpNotLike, OpIn, OpNotIn, OpIsNull, OpIsNotNull}
}

// Arity returns how many values the operator takes; -1 means one or more.
func (o Op) Arity() int {
	switch o {
	case OpIsNull, OpIsNotNull:
		return 0
	case OpBetween:
		return 2
	case OpIn, OpNotIn:
		return -1
	}
	return 1
}

var operators = map[Op]string{
	OpGt:        ">",
	OpGte:       ">=",
	OpLt:        "<",
	OpLte:       "<=",
	OpEq:        "=",
	OpNe:        "<>",
	OpBetween:   "BETWEEN",
	OpLike:      "LIKE",
	OpNotLike:   "NOT LIKE",
	OpIsNull:    "IS NULL",
	OpIsNotNull: "IS NOT NULL",
	OpIn:        "IN",
	OpNotIn:     "NOT IN",
}

// SQL returns the operator's SQL keyword, or "" for an unknown operator.
func (o Op) SQL() string {
	return operators[o]
}

// Filter is one predicate on a column. Values are untyped caller JSON read
// through ColumnType before binding.
type Filter struct {
	Column     string            `json:"column"`
	Op         Op                `json:"op"`
	ColumnType core.ColumnType   `json:"column_type"`
	Values     []json.RawMessage `json:"values,omitempty"`
}

// FilterGroup combines its filters with OR when Any is set, AND otherwise.
// A group is ANDed with the top-level filters.
type FilterGroup struct {
	Any     bool     `json:"any"`
	Filters []Filter `json:"filters"`
}

// Column is a projected column. Custom columns are cast to text.
type Column struct {
	Name string          `json:"name"`
	Type core.ColumnType `json:"column_type"`
}

// SortKey orders by one column.
type SortKey struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc"`
}

// Page is a zero-based page. Size 0 disables pagination.
type Page struct {
	Index uint64 `json:"page_index"`
	Size  uint64 `json:"page_size"`
}

// Offset returns the number of rows skipped before the page. Limits and
// offsets past the signed 64-bit range are rejected.
func (p Page) Offset() (uint64, error) {
	if p.Size > math.MaxInt64 {
		return 0, fmt.Errorf("%w: page size %d is out of range", core.ErrInvalidRequest, p.Size)
	}
	if p.Size > 0 && p.Index > math.MaxInt64/p.Size {
		return 0, fmt.Errorf("%w: page %d of size %d is out of range", core.ErrInvalidRequest, p.Index, p.Size)
	}
	return p.Index * p.Size, nil
}

// PageCount returns the number of pages needed for total rows.
func (p Page) PageCount(total uint64) uint64 {
	if p.Size == 0 {
		if total == 0 {
			return 0
		}
		return 1
	}
	n := total / p.Size
	if total%p.Size != 0 {
		n++
	}
	return n
}

// SelectQuery describes a paginated read of one table.
type SelectQuery struct {
	Table   string        `json:"table"`
	Columns []Column      `json:"columns,omitempty"`
	Filters []Filter      `json:"filters,omitempty"`
	Groups  []FilterGroup `json:"groups,omitempty"`
	Sort    []SortKey     `json:"sort,omitempty"`
	Page    Page          `json:"page"`
}

// Statement is SQL text plus its bound arguments in placeholder order.
type Statement struct {
	SQL  string
	Args []any
}
