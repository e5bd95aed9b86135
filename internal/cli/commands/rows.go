package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leapstack-labs/tablex/internal/cli/output"
	"github.com/leapstack-labs/tablex/pkg/core"
	"github.com/leapstack-labs/tablex/pkg/query"
	"github.com/spf13/cobra"
)

// RowsOptions holds options for the rows command.
type RowsOptions struct {
	Columns  []string
	Filters  []string
	AnyOf    []string
	Sort     []string
	Page     uint64
	PageSize uint64
}

// NewRowsCommand creates the rows command.
func NewRowsCommand() *cobra.Command {
	var t target
	opts := &RowsOptions{}
	cmd := &cobra.Command{
		Use:   "rows <table>",
		Short: "Browse a page of table rows",
		Long: `Read one page of a table with optional filters and sorting.

Filters take the form column:op[:value]. Operators are gt, gte, lt, lte,
eq, ne, like, not_like, is_null, is_not_null, in, not_in and between.
in, not_in and between take comma-separated values. The literal null
matches SQL NULL.`,
		Example: `  tablex rows users --filter age:gte:30 --sort -created_at
  tablex rows users --any name:like:a% --any email:is_null --page 2`,
		Args: cobra.ExactArgs(1),
		RunE: connectCommand(&t, func(cmd *cobra.Command, cc *CommandContext, args []string) error {
			s, err := cc.Session.Schema()
			if err != nil {
				return err
			}
			pageSize := opts.PageSize
			if !cmd.Flags().Changed("page-size") {
				pageSize = cc.Cfg.PageSize
			}
			req, err := buildSelect(s, args[0], opts, pageSize)
			if err != nil {
				return err
			}
			page, err := cc.Session.GetPaginatedRows(cmd.Context(), req)
			if err != nil {
				return err
			}
			return renderPage(cc.Renderer, req, page)
		}),
	}
	addTargetFlags(cmd, &t)
	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "Columns to select (default: all)")
	cmd.Flags().StringArrayVar(&opts.Filters, "filter", nil, "Filter column:op[:value], combined with AND")
	cmd.Flags().StringArrayVar(&opts.AnyOf, "any", nil, "Filter column:op[:value], combined with OR")
	cmd.Flags().StringSliceVar(&opts.Sort, "sort", nil, "Sort columns, prefix with - for descending")
	cmd.Flags().Uint64Var(&opts.Page, "page", 1, "Page number, starting at 1")
	cmd.Flags().Uint64Var(&opts.PageSize, "page-size", 0, "Rows per page (0 uses page_size from config)")
	return cmd
}

func buildSelect(s *core.Schema, table string, opts *RowsOptions, pageSize uint64) (query.SelectQuery, error) {
	t, ok := s.Table(table)
	if !ok {
		return query.SelectQuery{}, fmt.Errorf("table %q not found", table)
	}
	if opts.Page == 0 {
		return query.SelectQuery{}, fmt.Errorf("page numbers start at 1")
	}
	req := query.SelectQuery{
		Table: table,
		Page:  query.Page{Index: opts.Page - 1, Size: pageSize},
	}
	for _, name := range opts.Columns {
		c, ok := t.Column(name)
		if !ok {
			return query.SelectQuery{}, fmt.Errorf("column %q not found in %s", name, table)
		}
		req.Columns = append(req.Columns, query.Column{Name: c.Name, Type: c.Type})
	}
	for _, f := range opts.Filters {
		filter, err := parseFilter(t, f)
		if err != nil {
			return query.SelectQuery{}, err
		}
		req.Filters = append(req.Filters, filter)
	}
	if len(opts.AnyOf) > 0 {
		group := query.FilterGroup{Any: true}
		for _, f := range opts.AnyOf {
			filter, err := parseFilter(t, f)
			if err != nil {
				return query.SelectQuery{}, err
			}
			group.Filters = append(group.Filters, filter)
		}
		req.Groups = append(req.Groups, group)
	}
	for _, key := range opts.Sort {
		desc := strings.HasPrefix(key, "-")
		req.Sort = append(req.Sort, query.SortKey{Column: strings.TrimPrefix(key, "-"), Desc: desc})
	}
	return req, nil
}

// parseFilter reads column:op[:value].
func parseFilter(t *core.TableInfo, spec string) (query.Filter, error) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) < 2 {
		return query.Filter{}, fmt.Errorf("invalid filter %q: want column:op[:value]", spec)
	}
	c, ok := t.Column(parts[0])
	if !ok {
		return query.Filter{}, fmt.Errorf("invalid filter %q: column %q not found in %s", spec, parts[0], t.Name)
	}
	f := query.Filter{Column: c.Name, Op: query.Op(strings.ToLower(parts[1])), ColumnType: c.Type}
	if f.Op.SQL() == "" {
		ops := make([]string, 0, len(query.Ops()))
		for _, op := range query.Ops() {
			ops = append(ops, string(op))
		}
		return query.Filter{}, fmt.Errorf("invalid filter %q: unknown operator %q (want one of %s)", spec, parts[1], strings.Join(ops, ", "))
	}
	if len(parts) == 3 {
		raw := []string{parts[2]}
		switch f.Op {
		case query.OpIn, query.OpNotIn, query.OpBetween:
			raw = strings.Split(parts[2], ",")
		}
		for _, v := range raw {
			f.Values = append(f.Values, cellJSON(v))
		}
	}
	return f, nil
}

// cellJSON turns a command-line value into caller JSON. The word null is
// SQL NULL, everything else is a string read through the column type.
func cellJSON(s string) json.RawMessage {
	if s == "null" {
		return json.RawMessage("null")
	}
	b, _ := json.Marshal(s)
	return b
}

func renderPage(r *output.Renderer, req query.SelectQuery, page core.PaginatedRows) error {
	if r.Mode() == output.ModeJSON {
		return r.JSON(page)
	}
	var header []string
	for _, c := range req.Columns {
		header = append(header, c.Name)
	}
	r.Table(resultColumns(page.Data, header), rowStrings(page.Data))
	r.Println(r.Styles().Muted.Render(fmt.Sprintf("page %d of %d (%d rows)", req.Page.Index+1, page.PageCount, page.TotalRows)))
	return nil
}

// parseAssignments reads col=value pairs into row records typed from t.
func parseAssignments(t *core.TableInfo, pairs []string) ([]core.RowRecord, error) {
	out := make([]core.RowRecord, 0, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid assignment %q: want column=value", p)
		}
		c, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("column %q not found in %s", name, t.Name)
		}
		out = append(out, core.RowRecord{ColumnName: c.Name, Value: cellJSON(value), ColumnType: c.Type})
	}
	return out, nil
}

// parseKeySet reads one comma-separated key set such as a=1,b=2.
func parseKeySet(t *core.TableInfo, spec string) ([]core.RowRecord, error) {
	return parseAssignments(t, strings.Split(spec, ","))
}

func lookupTable(cc *CommandContext, name string) (*core.TableInfo, error) {
	s, err := cc.Session.Schema()
	if err != nil {
		return nil, err
	}
	t, ok := s.Table(name)
	if !ok {
		return nil, fmt.Errorf("table %q not found", name)
	}
	return t, nil
}

func renderExec(r *output.Renderer, verb string, res core.ExecResult) error {
	if r.Mode() == output.ModeJSON {
		return r.JSON(res)
	}
	r.Success(fmt.Sprintf("%s %d row(s)", verb, res.RowsAffected))
	return nil
}

// NewInsertCommand creates the insert command.
func NewInsertCommand() *cobra.Command {
	var t target
	var sets []string
	cmd := &cobra.Command{
		Use:     "insert <table>",
		Short:   "Insert one row",
		Example: `  tablex insert users --set name=alice --set age=30`,
		Args:    cobra.ExactArgs(1),
		RunE: connectCommand(&t, func(cmd *cobra.Command, cc *CommandContext, args []string) error {
			tbl, err := lookupTable(cc, args[0])
			if err != nil {
				return err
			}
			records, err := parseAssignments(tbl, sets)
			if err != nil {
				return err
			}
			res, err := cc.Session.CreateRow(cmd.Context(), tbl.Name, records)
			if err != nil {
				return err
			}
			return renderExec(cc.Renderer, "Inserted", res)
		}),
	}
	addTargetFlags(cmd, &t)
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Column value as column=value")
	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand() *cobra.Command {
	var t target
	var key string
	var sets []string
	cmd := &cobra.Command{
		Use:     "update <table>",
		Short:   "Update the row matching a key",
		Example: `  tablex update users --key id=3 --set name=carol`,
		Args:    cobra.ExactArgs(1),
		RunE: connectCommand(&t, func(cmd *cobra.Command, cc *CommandContext, args []string) error {
			tbl, err := lookupTable(cc, args[0])
			if err != nil {
				return err
			}
			keys, err := parseKeySet(tbl, key)
			if err != nil {
				return err
			}
			patch, err := parseAssignments(tbl, sets)
			if err != nil {
				return err
			}
			var res core.ExecResult
			if len(keys) == 1 {
				res, err = cc.Session.UpdateRow(cmd.Context(), tbl.Name, keys[0].ColumnName, keys[0].Value, patch)
			} else {
				res, err = cc.Session.UpdateRowByKeys(cmd.Context(), tbl.Name, keys, patch)
			}
			if err != nil {
				return err
			}
			return renderExec(cc.Renderer, "Updated", res)
		}),
	}
	addTargetFlags(cmd, &t)
	cmd.Flags().StringVar(&key, "key", "", "Row key as column=value[,column=value]")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "New value as column=value")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	var t target
	var keys []string
	cmd := &cobra.Command{
		Use:   "delete <table>",
		Short: "Delete rows by key",
		Long: `Delete every row matching one of the given keys. Each --key is one
key set; composite keys list their columns separated by commas.`,
		Example: `  tablex delete users --key id=1 --key id=2
  tablex delete tags --key post_id=1,name=go`,
		Args: cobra.ExactArgs(1),
		RunE: connectCommand(&t, func(cmd *cobra.Command, cc *CommandContext, args []string) error {
			tbl, err := lookupTable(cc, args[0])
			if err != nil {
				return err
			}
			sets := make([][]core.RowRecord, 0, len(keys))
			for _, k := range keys {
				set, err := parseKeySet(tbl, k)
				if err != nil {
					return err
				}
				sets = append(sets, set)
			}
			res, err := cc.Session.DeleteRows(cmd.Context(), tbl.Name, sets)
			if err != nil {
				return err
			}
			return renderExec(cc.Renderer, "Deleted", res)
		}),
	}
	addTargetFlags(cmd, &t)
	cmd.Flags().StringArrayVar(&keys, "key", nil, "Key set as column=value[,column=value]")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

// NewFKCommand creates the fk command.
func NewFKCommand() *cobra.Command {
	var t target
	cmd := &cobra.Command{
		Use:     "fk <table> <column> <value>",
		Short:   "Show rows referenced by a foreign key value",
		Example: `  tablex fk posts user_id 3`,
		Args:    cobra.ExactArgs(3),
		RunE: connectCommand(&t, func(cmd *cobra.Command, cc *CommandContext, args []string) error {
			related, err := cc.Session.GetFKRelations(cmd.Context(), args[0], args[1], cellJSON(args[2]))
			if err != nil {
				return err
			}
			r := cc.Renderer
			if r.Mode() == output.ModeJSON {
				return r.JSON(related)
			}
			if len(related) == 0 {
				r.Println(r.Styles().Muted.Render(fmt.Sprintf("%s.%s has no foreign keys", args[0], args[1])))
				return nil
			}
			for i, fk := range related {
				if i > 0 {
					r.Println()
				}
				r.Println(r.Styles().Header.Render(fk.TableName))
				r.Table(resultColumns(fk.Rows, nil), rowStrings(fk.Rows))
			}
			return nil
		}),
	}
	addTargetFlags(cmd, &t)
	return cmd
}
