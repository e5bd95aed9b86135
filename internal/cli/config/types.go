// Package config loads the tablex CLI configuration.
//
// Values are layered from built-in defaults, an optional tablex.yaml, TABLEX_
// environment variables and finally command-line flags.
package config

// Output modes.
const (
	OutputAuto     = "auto"
	OutputText     = "text"
	OutputMarkdown = "markdown"
	OutputJSON     = "json"
)

// Default configuration values.
const (
	DefaultOutput     = OutputAuto
	DefaultLogLevel   = "warn"
	DefaultLogFormat  = "text"
	DefaultStoreFile  = "connections.db"
	DefaultConfigName = "tablex.yaml"
	DefaultPageSize   = 50
	defaultConfigDir  = "tablex"
	envPrefix         = "TABLEX_"
	envNestSeparator  = "__"
)

// Config holds all CLI configuration options.
type Config struct {
	StorePath string         `koanf:"store_path"`
	Output    string         `koanf:"output"`
	Verbose   bool           `koanf:"verbose"`
	PageSize  uint64         `koanf:"page_size"`
	Pool      map[string]any `koanf:"pool"`
	Decode    DecodeConfig   `koanf:"decode"`
	Postgres  PostgresConfig `koanf:"postgres"`
	Sidecar   SidecarConfig  `koanf:"sidecar"`
	Log       LogConfig      `koanf:"log"`
}

// DecodeConfig controls how result cells are read.
type DecodeConfig struct {
	// Lenient turns undecodable cells into nulls instead of failing the query.
	Lenient bool `koanf:"lenient"`
}

// PostgresConfig holds PostgreSQL-only settings.
type PostgresConfig struct {
	Schema string `koanf:"schema"`
}

// SidecarConfig controls the companion process.
type SidecarConfig struct {
	Enabled bool   `koanf:"enabled"`
	Binary  string `koanf:"binary"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
