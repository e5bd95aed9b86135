// Package sqlite opens SQLite databases through the pure-Go modernc driver.
//
// Accepted URLs are sqlite:path, sqlite://path, sqlite3:path and
// sqlite::memory:. A leading ~ expands to the home directory and query
// parameters are passed through to the driver.
package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DriverName is the database/sql driver name registered by modernc.org/sqlite.
const DriverName = "sqlite"

const memory = ":memory:"

// Path returns the file path of a SQLite URL, or ":memory:".
func Path(rawURL string) (string, error) {
	_, rest, ok := strings.Cut(rawURL, ":")
	if !ok {
		return "", fmt.Errorf("invalid sqlite url %q", rawURL)
	}
	rest, _, _ = strings.Cut(rest, "?")
	rest = strings.TrimPrefix(rest, "//")
	if rest == "" {
		return "", fmt.Errorf("sqlite url %q has no path", rawURL)
	}
	if rest == memory {
		return memory, nil
	}
	return expandHome(rest)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand ~: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// IsMemory reports whether the URL names an in-memory database.
func IsMemory(rawURL string) bool {
	path, err := Path(rawURL)
	return err == nil && path == memory
}

// DSN converts a SQLite URL into a modernc DSN with foreign keys enforced.
func DSN(rawURL string) (string, error) {
	path, err := Path(rawURL)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	if _, query, ok := strings.Cut(rawURL, "?"); ok {
		params, err = url.ParseQuery(query)
		if err != nil {
			return "", fmt.Errorf("invalid sqlite url parameters: %w", err)
		}
	}
	params.Add("_pragma", "foreign_keys(1)")

	// Parameters without the driver's _ prefix are SQLite URI parameters
	// (mode=ro, cache=shared) and only apply to file: names.
	uri := false
	for k := range params {
		if !strings.HasPrefix(k, "_") {
			uri = true
		}
	}
	if uri {
		path = "file:" + path
	}
	return path + "?" + params.Encode(), nil
}

// Open opens a pool for the URL. No connection is made until first use.
func Open(rawURL string) (*sql.DB, error) {
	dsn, err := DSN(rawURL)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return db, nil
}
