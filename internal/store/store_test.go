package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/leapstack-labs/tablex/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Migrate(t *testing.T) {
	s := setupTestStore(t)

	version, err := s.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// Re-running is a no-op.
	require.NoError(t, s.Migrate())
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	local, err := s.Add(ctx, core.SQLite, "local", "sqlite:./app.db")
	require.NoError(t, err)
	_, err = uuid.Parse(local.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ConnConfig{
		ID: local.ID, Dialect: core.SQLite, Name: "local", ConnectionString: "sqlite:./app.db",
	}, local)

	prod, err := s.Add(ctx, core.PostgreSQL, "analytics", "postgres://u:p@db/analytics")
	require.NoError(t, err)
	assert.NotEqual(t, local.ID, prod.ID)

	got, err := s.Get(ctx, prod.ID)
	require.NoError(t, err)
	assert.Equal(t, prod, got)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.ConnConfig{prod, local}, list)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Delete(ctx, local.ID))
	_, err = s.Get(ctx, local.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, local.ID), ErrNotFound)

	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_AddValidates(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	tests := []struct {
		name    string
		dialect core.Dialect
		conn    string
		label   string
	}{
		{name: "scheme mismatch", dialect: core.MySQL, conn: "postgres://localhost/db", label: "x"},
		{name: "unknown scheme", dialect: core.SQLite, conn: "oracle://localhost", label: "x"},
		{name: "missing name", dialect: core.SQLite, conn: "sqlite::memory:", label: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Add(ctx, tt.dialect, tt.label, tt.conn)
			assert.Error(t, err)
		})
	}

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_PersistsToFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tablex.db")

	s, err := Open(path)
	require.NoError(t, err)
	added, err := s.Add(ctx, core.MySQL, "shop", "mysql://root@localhost/shop")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	assert.Equal(t, path, s.Path())

	got, err := s.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, added, got)
}

func TestStore_NotOpened(t *testing.T) {
	s := &Store{}
	_, err := s.List(context.Background())
	assert.EqualError(t, err, "database not opened")
	assert.NoError(t, s.Close())
}

func TestStore_Lookup(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	first, err := s.Add(ctx, core.SQLite, "dev", "sqlite::memory:")
	require.NoError(t, err)
	_, err = s.Add(ctx, core.MySQL, "reporting", "mysql://u:p@localhost:3306/r")
	require.NoError(t, err)

	byID, err := s.Lookup(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, byID)

	byName, err := s.Lookup(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, first, byName)

	_, err = s.Lookup(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
