package commands

import (
	"net/url"
	"strings"

	"github.com/leapstack-labs/tablex/pkg/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// displayDialect renders a dialect for humans.
func displayDialect(d core.Dialect) string {
	switch d {
	case core.PostgreSQL:
		return "PostgreSQL"
	case core.MySQL:
		return "MySQL"
	case core.SQLite:
		return "SQLite"
	}
	return titleCaser.String(string(d))
}

// redactURL masks the password of a connection URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

// columnFlags summarizes key and generation attributes of a column.
func columnFlags(c core.ColumnInfo) string {
	var parts []string
	if c.PrimaryKey {
		parts = append(parts, "PK")
	}
	if c.HasForeignKey {
		parts = append(parts, "FK")
	}
	if c.AutoGenerated {
		parts = append(parts, "auto")
	}
	return strings.Join(parts, ",")
}

// rowStrings flattens decoded rows into display cells.
func rowStrings(rows []core.DecodedRow) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		cells := make([]string, len(r.Values))
		for j, v := range r.Values {
			cells[j] = v.String()
		}
		out[i] = cells
	}
	return out
}

// resultColumns returns the column names of the first row, or fallback.
func resultColumns(rows []core.DecodedRow, fallback []string) []string {
	if len(fallback) > 0 || len(rows) == 0 {
		return fallback
	}
	return rows[0].Columns
}
