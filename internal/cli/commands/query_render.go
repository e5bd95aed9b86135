package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/tablex/pkg/core"
)

func renderResult(w io.Writer, res core.RawQueryResult, format string) error {
	if !res.IsQuery() {
		if format == "json" {
			return renderJSON(w, res.Exec)
		}
		_, _ = fmt.Fprintf(w, "OK, %d row(s) affected\n", res.Exec.RowsAffected)
		return nil
	}

	switch format {
	case "json":
		return renderJSON(w, res.Rows)
	case "csv":
		return renderCSV(w, res.Columns, res.Rows)
	case "md", "markdown":
		return renderMarkdown(w, res.Columns, res.Rows)
	default:
		return renderTable(w, res.Columns, res.Rows)
	}
}

func renderTable(w io.Writer, cols []string, rows []core.DecodedRow) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(headerRow(cols))
	for _, r := range rows {
		t.AppendRow(valueRow(r))
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func renderMarkdown(w io.Writer, cols []string, rows []core.DecodedRow) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(headerRow(cols))
	for _, r := range rows {
		t.AppendRow(valueRow(r))
	}
	t.RenderMarkdown()
	return nil
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderCSV(w io.Writer, cols []string, rows []core.DecodedRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	for _, r := range rows {
		record := make([]string, len(r.Values))
		for i, v := range r.Values {
			record[i] = formatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func headerRow(cols []string) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	return row
}

func valueRow(r core.DecodedRow) table.Row {
	row := make(table.Row, len(r.Values))
	for i, v := range r.Values {
		row[i] = formatValue(v)
	}
	return row
}

// formatValue renders a cell on one line.
func formatValue(v core.Value) string {
	return strings.ReplaceAll(v.String(), "\n", `\n`)
}
