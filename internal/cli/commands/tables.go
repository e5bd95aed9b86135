package commands

import (
	"fmt"

	"github.com/leapstack-labs/tablex/internal/cli/output"
	"github.com/leapstack-labs/tablex/pkg/core"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	var t target
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List tables of a connection",
		Args:  cobra.NoArgs,
		RunE: connectCommand(&t, func(cmd *cobra.Command, cc *CommandContext, _ []string) error {
			names, err := cc.Session.GetTables(cmd.Context())
			if err != nil {
				return err
			}
			if cc.Renderer.Mode() == output.ModeJSON {
				return cc.Renderer.JSON(names)
			}
			rows := make([][]string, len(names))
			for i, n := range names {
				rows[i] = []string{n}
			}
			cc.Renderer.Table([]string{"Table"}, rows)
			return nil
		}),
	}
	addTargetFlags(cmd, &t)
	return cmd
}

// SchemaOptions holds options for the schema command.
type SchemaOptions struct {
	Format string
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	var t target
	opts := &SchemaOptions{}
	cmd := &cobra.Command{
		Use:   "schema [table...]",
		Short: "Show discovered tables, columns and CREATE statements",
		Long: `Discover the schema of a connection and print it.

Formats:
  table  Column listing per table (default)
  sql    CREATE TABLE statements
  yaml   Full schema snapshot as YAML
  json   Full schema snapshot as JSON`,
		RunE: connectCommand(&t, func(cmd *cobra.Command, cc *CommandContext, args []string) error {
			s, err := cc.Session.Schema()
			if err != nil {
				return err
			}
			tables, err := selectTables(s, args)
			if err != nil {
				return err
			}
			format := opts.Format
			if cc.Renderer.Mode() == output.ModeJSON {
				format = "json"
			}
			return renderSchema(cc.Renderer, s, tables, format)
		}),
	}
	addTargetFlags(cmd, &t)
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, sql, yaml, json")
	return cmd
}

func selectTables(s *core.Schema, names []string) ([]core.TableInfo, error) {
	if len(names) == 0 {
		return s.Tables, nil
	}
	out := make([]core.TableInfo, 0, len(names))
	for _, n := range names {
		t, ok := s.Table(n)
		if !ok {
			return nil, fmt.Errorf("table %q not found", n)
		}
		out = append(out, *t)
	}
	return out, nil
}

func renderSchema(r *output.Renderer, s *core.Schema, tables []core.TableInfo, format string) error {
	snapshot := core.Schema{Dialect: s.Dialect, Tables: tables, DiscoveredAt: s.DiscoveredAt}
	switch format {
	case "json":
		return r.JSON(snapshot)
	case "yaml":
		enc := yaml.NewEncoder(r.Out())
		enc.SetIndent(2)
		if err := enc.Encode(snapshot); err != nil {
			return err
		}
		return enc.Close()
	case "sql":
		for _, t := range tables {
			r.Println(t.CreateSQL)
			r.Println()
		}
		return nil
	case "table", "":
		styles := r.Styles()
		for i, t := range tables {
			if i > 0 {
				r.Println()
			}
			r.Println(styles.Header.Render(fmt.Sprintf("%s (%d columns)", t.Name, len(t.Columns))))
			rows := make([][]string, len(t.Columns))
			for j, c := range t.Columns {
				rows[j] = []string{c.Name, c.Type.String(), c.NativeType, yesNo(c.Nullable), columnFlags(c), c.Default}
			}
			r.Table([]string{"Column", "Type", "Native", "Nullable", "Key", "Default"}, rows)
		}
		return nil
	}
	return fmt.Errorf("unknown schema format %q", format)
}
