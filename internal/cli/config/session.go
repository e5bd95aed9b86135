package config

import (
	"io"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/tablex/internal/session"
	"github.com/leapstack-labs/tablex/pkg/adapter"
	"github.com/leapstack-labs/tablex/pkg/schema"
)

// NewLogger builds the slog logger described by the log section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.LogLevel()
	if err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SessionConfig translates the configuration into session settings.
func (c *Config) SessionConfig(store session.ConnectionStore, logger *slog.Logger) (session.Config, error) {
	pool, err := adapter.DecodeOptions(c.Pool)
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		Pool:    pool,
		Schema:  schema.Options{Schema: c.Postgres.Schema},
		Lenient: c.Decode.Lenient,
		Sidecar: session.SidecarConfig{
			Enabled: c.Sidecar.Enabled,
			Binary:  c.Sidecar.Binary,
		},
		Store:  store,
		Logger: logger,
	}, nil
}
