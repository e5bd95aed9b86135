package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/tablex/internal/cli/config"
	"github.com/leapstack-labs/tablex/pkg/core"
	"github.com/spf13/cobra"
)

const (
	replPrompt         = "tablex> "
	replContinuePrompt = "   ...> "
)

func runQueryREPL(cmd *cobra.Command, cc *CommandContext, opts *QueryOptions) error {
	ctx := cmd.Context()

	historyFile := filepath.Join(config.DefaultConfigDir(), "query_history")
	if err := os.MkdirAll(filepath.Dir(historyFile), 0o750); err != nil {
		historyFile = ""
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newTableCompleter(cc),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	d, _ := cc.Session.Dialect()
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "tablex REPL (%s)\n", displayDialect(d))
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	repl := &repl{cc: cc, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr(), format: queryFormat(cc, opts)}

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := repl.dotCommand(ctx, line); quit {
				break
			}
			// Table names may have changed.
			rl.Config.AutoComplete = newTableCompleter(cc)
			continue
		}

		// Accumulate multi-line SQL until semicolon
		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString("\n")
			rl.SetPrompt(replContinuePrompt)
			continue
		}
		rl.SetPrompt(replPrompt)

		sqlText := buf.String()
		buf.Reset()
		repl.execute(ctx, sqlText)
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

// repl runs statements and dot-commands against the session.
type repl struct {
	cc     *CommandContext
	out    io.Writer
	errOut io.Writer
	format string
}

func (r *repl) errorf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.errOut, "Error: "+format+"\n", a...)
}

func (r *repl) execute(ctx context.Context, sqlText string) {
	res, err := r.cc.Session.ExecuteRawQuery(ctx, sqlText)
	if err != nil {
		r.errorf("%v", err)
		return
	}
	if err := renderResult(r.out, res, r.format); err != nil {
		r.errorf("%v", err)
	}
}

// dotCommand handles a REPL command and reports whether the REPL should exit.
func (r *repl) dotCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	renderer := r.cc.Renderer

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(r.out)

	case ".tables":
		names, err := r.cc.Session.GetTables(ctx)
		if err != nil {
			r.errorf("%v", err)
			return false
		}
		for _, n := range names {
			_, _ = fmt.Fprintln(r.out, n)
		}

	case ".schema":
		s, err := r.cc.Session.Schema()
		if err != nil {
			r.errorf("%v", err)
			return false
		}
		tables, err := selectTables(s, parts[1:])
		if err != nil {
			r.errorf("%v", err)
			return false
		}
		if err := renderSchema(renderer, s, tables, "sql"); err != nil {
			r.errorf("%v", err)
		}

	case ".refresh":
		s, err := r.cc.Session.RefreshSchema(ctx)
		if err != nil {
			r.errorf("%v", err)
			return false
		}
		_, _ = fmt.Fprintf(r.out, "%d tables\n", len(s.Tables))

	case ".sidecar":
		action := "status"
		if len(parts) > 1 {
			action = strings.ToLower(parts[1])
		}
		state, err := sidecarAction(ctx, r.cc, action)
		if err != nil {
			r.errorf("%v", err)
		}
		renderSidecarState(renderer, state)

	case ".clear":
		_, _ = fmt.Fprint(r.out, "\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(r.errOut, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help              Show this help message
  .tables            List all tables
  .schema [name...]  Show CREATE statements
  .refresh           Re-discover the schema
  .sidecar [action]  Sidecar status, start, kill, pause or resume
  .clear             Clear the screen
  .quit / .exit      Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Several statements may be entered at once; the last result is shown
  - Use arrow keys to navigate history
  - Tab completion works for table names
`
	_, _ = fmt.Fprintln(w, help)
}

// newTableCompleter creates a readline completer for table names from the
// cached schema.
func newTableCompleter(cc *CommandContext) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	if s, err := cc.Session.Schema(); err == nil {
		for _, name := range s.TableNames() {
			items = append(items, readline.PcItem(name))
		}
		items = append(items, readline.PcItem(".schema", tableItems(s)...))
	}

	sidecarItems := make([]readline.PrefixCompleterInterface, 0, len(sidecarActions))
	for _, a := range sidecarActions {
		sidecarItems = append(sidecarItems, readline.PcItem(a))
	}
	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".refresh"),
		readline.PcItem(".sidecar", sidecarItems...),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
	return readline.NewPrefixCompleter(items...)
}

func tableItems(s *core.Schema) []readline.PrefixCompleterInterface {
	names := s.TableNames()
	items := make([]readline.PrefixCompleterInterface, len(names))
	for i, n := range names {
		items[i] = readline.PcItem(n)
	}
	return items
}
