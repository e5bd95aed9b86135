package core

import (
	"fmt"
	"strings"
)

// Dialect identifies one of the supported database engines.
// The set is closed; every dialect-dependent function switches over it.
type Dialect string

// Supported dialects.
const (
	SQLite     Dialect = "sqlite"
	PostgreSQL Dialect = "postgresql"
	MySQL      Dialect = "mysql"
)

// Dialects lists every supported dialect in a stable order.
func Dialects() []Dialect {
	return []Dialect{SQLite, PostgreSQL, MySQL}
}

// Valid reports whether d is one of the supported dialects.
func (d Dialect) Valid() bool {
	switch d {
	case SQLite, PostgreSQL, MySQL:
		return true
	}
	return false
}

func (d Dialect) String() string {
	return string(d)
}

// ParseDialect resolves a dialect name, accepting the common aliases.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgresql", "postgres", "pg":
		return PostgreSQL, nil
	case "mysql":
		return MySQL, nil
	}
	return "", &UnsupportedDriverError{Prefix: name}
}

// DialectFromURL picks the dialect from a connection URL scheme.
func DialectFromURL(url string) (Dialect, error) {
	scheme, _, ok := strings.Cut(url, ":")
	if !ok || scheme == "" {
		return "", &UnsupportedDriverError{Prefix: url}
	}
	switch strings.ToLower(scheme) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql":
		return PostgreSQL, nil
	case "mysql":
		return MySQL, nil
	}
	return "", &UnsupportedDriverError{Prefix: scheme}
}

// CheckURL verifies that url belongs to dialect d.
func CheckURL(url string, d Dialect) error {
	if !d.Valid() {
		return &UnsupportedDriverError{Prefix: string(d)}
	}
	got, err := DialectFromURL(url)
	if err != nil {
		return err
	}
	if got != d {
		return &ConnectError{
			Dialect: d,
			Err:     fmt.Errorf("connection string is for %s, not %s", got, d),
		}
	}
	return nil
}
