// Package dialect holds the per-dialect SQL conventions: identifier quoting,
// placeholder syntax, text casts and the column type normalizer.
//
// The dialect set is closed. Get switches over core.Dialect and every rule
// below is data on the returned Dialect, so adding a dialect means filling in
// one more case here and in the normalizer tables.
package dialect

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/tablex/pkg/core"
)

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (MySQL, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. (PostgreSQL).
	PlaceholderDollar
)

// Dialect is the static SQL configuration of one engine.
type Dialect struct {
	Name core.Dialect

	// Quote and QuoteEnd delimit identifiers; Escape replaces QuoteEnd
	// inside a quoted identifier.
	Quote    string
	QuoteEnd string
	Escape   string

	Placeholder PlaceholderStyle

	// DefaultSchema is the catalog schema discovery looks at when the
	// caller does not name one. Empty means the connection's database.
	DefaultSchema string
}

var (
	sqliteDialect = &Dialect{
		Name:  core.SQLite,
		Quote: `"`, QuoteEnd: `"`, Escape: `""`,
		Placeholder:   PlaceholderQuestion,
		DefaultSchema: "main",
	}
	postgresDialect = &Dialect{
		Name:  core.PostgreSQL,
		Quote: `"`, QuoteEnd: `"`, Escape: `""`,
		Placeholder:   PlaceholderDollar,
		DefaultSchema: "public",
	}
	mysqlDialect = &Dialect{
		Name:  core.MySQL,
		Quote: "`", QuoteEnd: "`", Escape: "``",
		Placeholder: PlaceholderQuestion,
	}
)

// Get returns the configuration for d.
func Get(d core.Dialect) (*Dialect, error) {
	switch d {
	case core.SQLite:
		return sqliteDialect, nil
	case core.PostgreSQL:
		return postgresDialect, nil
	case core.MySQL:
		return mysqlDialect, nil
	}
	return nil, &core.UnsupportedDriverError{Prefix: string(d)}
}

// FormatPlaceholder returns the placeholder for the 1-based parameter index.
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default:
		return "?"
	}
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, d.QuoteEnd, d.Escape)
	return d.Quote + escaped + d.QuoteEnd
}

// QuoteQualified quotes each dot-separated part of a qualified name.
func (d *Dialect) QuoteQualified(parts ...string) string {
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		quoted = append(quoted, d.QuoteIdentifier(p))
	}
	return strings.Join(quoted, ".")
}

// CastToText wraps an already quoted column expression so the server returns
// it as text. SQLite values are dynamically typed and pass through.
func (d *Dialect) CastToText(expr string) string {
	switch d.Name {
	case core.PostgreSQL:
		return expr + "::text"
	case core.MySQL:
		return "CAST(" + expr + " AS CHAR)"
	default:
		return expr
	}
}
