package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/tablex/pkg/adapter"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Output {
	case OutputAuto, OutputText, OutputMarkdown, OutputJSON:
	default:
		return fmt.Errorf("invalid output format %q (want auto, text, markdown or json)", c.Output)
	}
	if c.StorePath == "" {
		return fmt.Errorf("store_path is required")
	}
	if c.PageSize == 0 {
		return fmt.Errorf("page_size must be positive")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (want text or json)", c.Log.Format)
	}
	if _, err := adapter.DecodeOptions(c.Pool); err != nil {
		return err
	}
	return nil
}

// LogLevel parses log.level. Verbose lowers it to debug.
func (c *Config) LogLevel() (slog.Level, error) {
	if c.Verbose {
		return slog.LevelDebug, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}
