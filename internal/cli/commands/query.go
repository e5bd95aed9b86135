package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	Input  string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	var t target
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run SQL against a connection",
		Long: `Run raw SQL against a connection.

A script may hold several statements separated by semicolons; they run in
order on one connection and the result of the last one is printed.

When invoked without arguments on a terminal, enters interactive REPL mode.`,
		Example: `  # Execute SQL directly
  tablex query -c local "SELECT * FROM users"

  # Run a script file
  tablex query -c local --input migrate.sql

  # Output as JSON
  tablex query -c local "SELECT * FROM users" --format json

  # Interactive mode
  tablex query -c local`,
		RunE: connectCommand(&t, func(cmd *cobra.Command, cc *CommandContext, args []string) error {
			return runQuery(cmd, cc, args, opts)
		}),
	}

	addTargetFlags(cmd, &t)
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json, csv, md")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json", "csv", "md"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func runQuery(cmd *cobra.Command, cc *CommandContext, args []string, opts *QueryOptions) error {
	var sqlText string

	switch {
	case len(args) > 0:
		sqlText = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlText = string(content)
	case !isTerminal(cmd.InOrStdin()):
		// Read from stdin (piped input)
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlText = string(content)
	default:
		// No input, TTY detected - enter REPL mode
		return runQueryREPL(cmd, cc, opts)
	}

	result, err := cc.Session.ExecuteRawQuery(cmd.Context(), sqlText)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return renderResult(cmd.OutOrStdout(), result, queryFormat(cc, opts))
}

// queryFormat lets a global --output json win over the table default.
func queryFormat(cc *CommandContext, opts *QueryOptions) string {
	if opts.Format == "table" && cc.Cfg.Output == "json" {
		return "json"
	}
	return opts.Format
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec
}
