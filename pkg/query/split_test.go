package query

import (
	"testing"

	"github.com/leapstack-labs/tablex/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name     string
		dialect  core.Dialect
		input    string
		expected []string
	}{
		{
			name:     "single without semicolon",
			dialect:  core.SQLite,
			input:    "SELECT 1",
			expected: []string{"SELECT 1"},
		},
		{
			name:     "several with blanks",
			dialect:  core.SQLite,
			input:    "CREATE TABLE t (a INT);\n\n INSERT INTO t VALUES (1);;  SELECT * FROM t;  ",
			expected: []string{"CREATE TABLE t (a INT)", "INSERT INTO t VALUES (1)", "SELECT * FROM t"},
		},
		{
			name:     "semicolons in literals and identifiers",
			dialect:  core.PostgreSQL,
			input:    `SELECT 'a;b', "c;d" FROM t; SELECT 'it''s;'`,
			expected: []string{`SELECT 'a;b', "c;d" FROM t`, `SELECT 'it''s;'`},
		},
		{
			name:     "comments",
			dialect:  core.SQLite,
			input:    "-- first; not a split\nSELECT 1; /* block; */ SELECT 2; -- trailing only",
			expected: []string{"-- first; not a split\nSELECT 1", "/* block; */ SELECT 2"},
		},
		{
			name:     "postgres dollar quoting",
			dialect:  core.PostgreSQL,
			input:    "CREATE FUNCTION f() RETURNS int AS $body$ SELECT 1; $body$ LANGUAGE sql; SELECT $1",
			expected: []string{"CREATE FUNCTION f() RETURNS int AS $body$ SELECT 1; $body$ LANGUAGE sql", "SELECT $1"},
		},
		{
			name:     "postgres escape string",
			dialect:  core.PostgreSQL,
			input:    `SELECT E'a\';b'; SELECT 2`,
			expected: []string{`SELECT E'a\';b'`, "SELECT 2"},
		},
		{
			name:     "postgres plain string keeps backslash",
			dialect:  core.PostgreSQL,
			input:    `SELECT 'C:\'; SELECT 2`,
			expected: []string{`SELECT 'C:\'`, "SELECT 2"},
		},
		{
			name:     "mysql backslash escapes and backticks",
			dialect:  core.MySQL,
			input:    "SELECT 'it\\'s;', `we;ird` FROM t # note; here\n; SELECT 2",
			expected: []string{"SELECT 'it\\'s;', `we;ird` FROM t # note; here", "SELECT 2"},
		},
		{
			name:     "only comments",
			dialect:  core.MySQL,
			input:    "-- nothing\n/* at all */",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitStatements(tt.dialect, tt.input))
		})
	}
}

func TestReturnsRows(t *testing.T) {
	tests := []struct {
		dialect core.Dialect
		stmt    string
		want    bool
	}{
		{core.SQLite, "select * from users", true},
		{core.SQLite, "  (SELECT 1) UNION (SELECT 2)", true},
		{core.SQLite, "-- comment\nSELECT 1", true},
		{core.SQLite, "PRAGMA table_info(users)", true},
		{core.SQLite, "PRAGMA foreign_keys = ON", false},
		{core.SQLite, "VALUES (1), (2)", true},
		{core.SQLite, "INSERT INTO users (name) VALUES ('x')", false},
		{core.SQLite, "INSERT INTO users (name) VALUES ('x') RETURNING id", true},
		{core.SQLite, "UPDATE users SET note = 'returning' WHERE id = 1", false},
		{core.PostgreSQL, "WITH x AS (SELECT 1) SELECT * FROM x", true},
		{core.PostgreSQL, "WITH gone AS (SELECT id FROM u) DELETE FROM u WHERE id IN (SELECT id FROM gone)", false},
		{core.PostgreSQL, "WITH gone AS (SELECT id FROM u) DELETE FROM u USING gone RETURNING u.id", true},
		{core.PostgreSQL, "TABLE users", true},
		{core.PostgreSQL, "EXPLAIN SELECT 1", true},
		{core.PostgreSQL, "CREATE TABLE returning_things (id int)", false},
		{core.MySQL, "SHOW TABLES", true},
		{core.MySQL, "DESCRIBE users", true},
		{core.MySQL, "DESC users", true},
		{core.MySQL, "DROP TABLE users", false},
	}

	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			assert.Equal(t, tt.want, ReturnsRows(tt.dialect, tt.stmt))
		})
	}
}
