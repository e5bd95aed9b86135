package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/tablex/internal/cli/config"
	"github.com/leapstack-labs/tablex/internal/cli/output"
	"github.com/leapstack-labs/tablex/internal/session"
	"github.com/leapstack-labs/tablex/internal/store"
	"github.com/leapstack-labs/tablex/pkg/core"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Store    *store.Store
	Session  *session.Manager
}

// NewCommandContext opens the connection store and creates an idle session.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutStore(cmd)

	st, err := store.Open(cc.Cfg.StorePath)
	if err != nil {
		return nil, nil, err
	}
	sc, err := cc.Cfg.SessionConfig(st, cc.Logger)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	cc.Store = st
	cc.Session = session.New(sc)

	cleanup := func() {
		if err := cc.Session.Close(); err != nil {
			cc.Logger.Warn("failed to close session", slog.String("error", err.Error()))
		}
		_ = st.Close()
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutStore creates a CommandContext without the store
// or session. Useful for commands that don't touch the database.
func NewCommandContextWithoutStore(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.Output)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}
}

// target is where a command connects: a stored record or an ad-hoc URL.
type target struct {
	Ref string
	URL string
}

func addTargetFlags(cmd *cobra.Command, t *target) {
	cmd.Flags().StringVarP(&t.Ref, "conn", "c", "", "Stored connection id or name")
	cmd.Flags().StringVar(&t.URL, "url", "", "Connection URL (sqlite:, postgres://, mysql://)")
	cmd.MarkFlagsMutuallyExclusive("conn", "url")
}

// Connect establishes the session against the target.
func (cc *CommandContext) Connect(ctx context.Context, t target) (*core.Schema, error) {
	switch {
	case t.URL != "":
		d, err := core.DialectFromURL(t.URL)
		if err != nil {
			return nil, err
		}
		return cc.Session.EstablishConnection(ctx, t.URL, d)
	case t.Ref != "":
		rec, err := cc.Store.Lookup(ctx, t.Ref)
		if err != nil {
			return nil, err
		}
		cc.Logger.Debug("using stored connection", slog.String("name", rec.Name), slog.String("id", rec.ID))
		return cc.Session.EstablishStored(ctx, rec.ID)
	}

	// Fall back to the only stored connection.
	list, err := cc.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) != 1 {
		return nil, errors.New("no connection selected: pass --conn or --url")
	}
	return cc.Session.EstablishStored(ctx, list[0].ID)
}

// connectCommand wraps a command body that needs an established session.
func connectCommand(t *target, run func(cmd *cobra.Command, cc *CommandContext, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cc, cleanup, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if _, err := cc.Connect(cmd.Context(), *t); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		return run(cmd, cc, args)
	}
}
