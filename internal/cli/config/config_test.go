package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config dir at a temp dir so a real tablex.yaml
// never leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	ResetConfig()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("store", "", "")
	flags.StringP("output", "o", "", "")
	flags.String("log-level", "", "")
	flags.String("schema", "", "")
	flags.Bool("sidecar", false, "")
	flags.Duration("acquire-timeout", 0, "")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "tablex", DefaultStoreFile), cfg.StorePath)
	assert.Equal(t, OutputAuto, cfg.Output)
	assert.Equal(t, uint64(DefaultPageSize), cfg.PageSize)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.False(t, cfg.Sidecar.Enabled)
	assert.False(t, cfg.Decode.Lenient)
	assert.Empty(t, GetConfigFileUsed())
}

func TestLoadConfig_File(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
store_path: /tmp/tablex-test.db
output: json
page_size: 20
decode:
  lenient: true
postgres:
  schema: app
sidecar:
  enabled: true
  binary: /opt/bin/sidecar
pool:
  acquire_timeout: 10s
  max_open: 4
log:
  level: debug
  format: json
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, GetConfigFileUsed())

	assert.Equal(t, "/tmp/tablex-test.db", cfg.StorePath)
	assert.Equal(t, OutputJSON, cfg.Output)
	assert.Equal(t, uint64(20), cfg.PageSize)
	assert.True(t, cfg.Decode.Lenient)
	assert.Equal(t, "app", cfg.Postgres.Schema)
	assert.True(t, cfg.Sidecar.Enabled)
	assert.Equal(t, "/opt/bin/sidecar", cfg.Sidecar.Binary)

	sc, err := cfg.SessionConfig(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, sc.Pool.AcquireTimeout)
	assert.Equal(t, 4, sc.Pool.MaxOpen)
	assert.Equal(t, "app", sc.Schema.Schema)
	assert.True(t, sc.Lenient)
	assert.True(t, sc.Sidecar.Enabled)
}

func TestLoadConfig_Precedence(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		flags map[string]string
		want  func(t *testing.T, cfg *Config)
	}{
		{
			name: "file only",
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "from_file", cfg.Postgres.Schema)
				assert.Equal(t, OutputMarkdown, cfg.Output)
			},
		},
		{
			name: "env overrides file",
			env: map[string]string{
				"TABLEX_POSTGRES__SCHEMA": "from_env",
				"TABLEX_OUTPUT":           "text",
			},
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "from_env", cfg.Postgres.Schema)
				assert.Equal(t, OutputText, cfg.Output)
			},
		},
		{
			name: "flag overrides env",
			env:  map[string]string{"TABLEX_POSTGRES__SCHEMA": "from_env"},
			flags: map[string]string{
				"schema": "from_flag",
				"output": "json",
			},
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "from_flag", cfg.Postgres.Schema)
				assert.Equal(t, OutputJSON, cfg.Output)
			},
		},
		{
			name:  "renamed flag keys",
			flags: map[string]string{"store": "/tmp/x.db", "sidecar": "true", "acquire-timeout": "2s"},
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/tmp/x.db", cfg.StorePath)
				assert.True(t, cfg.Sidecar.Enabled)
				opts, err := cfg.SessionConfig(nil, nil)
				require.NoError(t, err)
				assert.Equal(t, 2*time.Second, opts.Pool.AcquireTimeout)
			},
		},
		{
			name: "nested env",
			env:  map[string]string{"TABLEX_SIDECAR__BINARY": "/usr/local/bin/sc", "TABLEX_DECODE__LENIENT": "true"},
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/usr/local/bin/sc", cfg.Sidecar.Binary)
				assert.True(t, cfg.Decode.Lenient)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			path := writeConfig(t, "output: markdown\npostgres:\n  schema: from_file\n")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			flags := testFlags()
			for k, v := range tt.flags {
				require.NoError(t, flags.Set(k, v))
			}

			cfg, err := LoadConfig(path, flags)
			require.NoError(t, err)
			tt.want(t, cfg)
		})
	}
}

func TestLoadConfig_UnsetFlagKeepsFileValue(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "store_path: /from/file.db\n")

	cfg, err := LoadConfig(path, testFlags())
	require.NoError(t, err)
	assert.Equal(t, "/from/file.db", cfg.StorePath)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	isolate(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestFlagKeyEnvVar(t *testing.T) {
	tests := []struct {
		flag string
		key  string
		env  string
	}{
		{"store", "store_path", "TABLEX_STORE_PATH"},
		{"page-size", "page_size", "TABLEX_PAGE_SIZE"},
		{"lenient", "decode.lenient", "TABLEX_DECODE__LENIENT"},
		{"acquire-timeout", "pool.acquire_timeout", "TABLEX_POOL__ACQUIRE_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			key := FlagKey(tt.flag)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.env, EnvVar(key))
			assert.Equal(t, key, envKey(EnvVar(key)))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			StorePath: "x.db",
			Output:    OutputAuto,
			PageSize:  10,
			Log:       LogConfig{Level: "info", Format: "text"},
		}
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad output", mutate: func(c *Config) { c.Output = "xml" }, errSubstr: "invalid output format"},
		{name: "no store", mutate: func(c *Config) { c.StorePath = "" }, errSubstr: "store_path is required"},
		{name: "zero page size", mutate: func(c *Config) { c.PageSize = 0 }, errSubstr: "page_size"},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "loud" }, errSubstr: "invalid log level"},
		{name: "bad format", mutate: func(c *Config) { c.Log.Format = "xml" }, errSubstr: "invalid log format"},
		{name: "unknown pool key", mutate: func(c *Config) { c.Pool = map[string]any{"max_conns": 3} }, errSubstr: "invalid pool options"},
		{name: "negative pool limit", mutate: func(c *Config) { c.Pool = map[string]any{"max_open": -1} }, errSubstr: "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{Log: LogConfig{Level: "info", Format: "json"}}
	logger := cfg.NewLogger(&buf)

	logger.Debug("hidden")
	logger.Info("shown", slog.String("k", "v"))
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)

	buf.Reset()
	cfg = Config{Verbose: true, Log: LogConfig{Level: "error", Format: "text"}}
	cfg.NewLogger(&buf).Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := slog.New(slog.DiscardHandler)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
