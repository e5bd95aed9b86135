package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/leapstack-labs/tablex/internal/cli/output"
	"github.com/leapstack-labs/tablex/internal/sidecar"
	"github.com/leapstack-labs/tablex/pkg/core"
	"github.com/spf13/cobra"
)

var sidecarActions = []string{"status", "start", "kill", "pause", "resume"}

// sidecarAction applies a sidecar command to the session and returns the
// resulting state.
func sidecarAction(ctx context.Context, cc *CommandContext, action string) (core.SidecarState, error) {
	var err error
	switch action {
	case "status":
	case "start":
		_, err = cc.Session.StartSidecar(ctx)
	case "kill", "stop":
		err = cc.Session.KillSidecar()
	case "pause":
		err = cc.Session.PauseSidecar()
	case "resume":
		err = cc.Session.ResumeSidecar()
	default:
		err = fmt.Errorf("unknown sidecar action %q (want %s)", action, strings.Join(sidecarActions, ", "))
	}
	return cc.Session.SidecarStatus(), err
}

func renderSidecarState(r *output.Renderer, s core.SidecarState) {
	if r.Mode() == output.ModeJSON {
		_ = r.JSON(s)
		return
	}
	styles := r.Styles()
	status := titleCaser.String(string(s.Status))
	switch s.Status {
	case core.SidecarActive:
		status = styles.Success.Render(status)
	case core.SidecarPaused:
		status = styles.Warning.Render(status)
	default:
		status = styles.Muted.Render(status)
	}
	line := "sidecar: " + status
	if s.PID != 0 {
		line += fmt.Sprintf(" pid=%d", s.PID)
	}
	if !s.StartedAt.IsZero() {
		line += " started=" + s.StartedAt.Format(time.RFC3339)
	}
	r.Println(line)
	if s.LastError != "" {
		r.Println(styles.Error.Render("last error: " + s.LastError))
	}
}

// NewSidecarCommand creates the sidecar command group.
func NewSidecarCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sidecar",
		Short: "Run the companion process for a connection",
		Long: `The sidecar is a companion process started next to a connection. It
receives the connection's address and runs until the connection is
dropped. Use .sidecar inside the query REPL to pause, resume or restart
it during a session.`,
	}
	cmd.AddCommand(newSidecarRunCommand())
	cmd.AddCommand(newSidecarArgsCommand())
	return cmd
}

func newSidecarRunCommand() *cobra.Command {
	var t target
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect and supervise the sidecar until it exits or is interrupted",
		Args:  cobra.NoArgs,
		RunE: connectCommand(&t, func(cmd *cobra.Command, cc *CommandContext, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			state := cc.Session.SidecarStatus()
			if state.Status != core.SidecarActive {
				var err error
				if state, err = cc.Session.StartSidecar(ctx); err != nil {
					renderSidecarState(cc.Renderer, state)
					return err
				}
			}
			renderSidecarState(cc.Renderer, state)

			select {
			case <-cc.Session.SidecarDone():
				state = cc.Session.SidecarStatus()
				renderSidecarState(cc.Renderer, state)
				if state.LastError != "" {
					return fmt.Errorf("sidecar exited: %s", state.LastError)
				}
				return nil
			case <-ctx.Done():
				if err := cc.Session.KillSidecar(); err != nil {
					return err
				}
				renderSidecarState(cc.Renderer, cc.Session.SidecarStatus())
				return nil
			}
		}),
	}
	addTargetFlags(cmd, &t)
	return cmd
}

func newSidecarArgsCommand() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "args [id|name]",
		Short: "Print the sidecar command line for a connection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			d, connString := core.Dialect(""), url
			switch {
			case url != "":
				if d, err = core.DialectFromURL(url); err != nil {
					return err
				}
			case len(args) == 1:
				rec, err := cc.Store.Lookup(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				d, connString = rec.Dialect, rec.ConnectionString
			default:
				return cmd.Usage()
			}

			argv, err := sidecar.Args(d, connString)
			if err != nil {
				return err
			}
			binary := cc.Cfg.Sidecar.Binary
			if binary == "" {
				binary = sidecar.DefaultBinary
			}
			if cc.Renderer.Mode() == output.ModeJSON {
				return cc.Renderer.JSON(append([]string{binary}, argv...))
			}
			cc.Renderer.Println(strings.Join(append([]string{binary}, argv...), " "))
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Connection URL instead of a stored connection")
	return cmd
}
