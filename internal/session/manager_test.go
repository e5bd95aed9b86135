package session

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/tablex/internal/store"
	"github.com/leapstack-labs/tablex/internal/testutil"
	"github.com/leapstack-labs/tablex/pkg/core"
	"github.com/leapstack-labs/tablex/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = testutil.NewTestLogger(t)
	}
	m := New(cfg)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// connect opens an in-memory SQLite session and runs setup SQL.
func connect(t *testing.T, m *Manager, setup string) {
	t.Helper()
	ctx := context.Background()
	_, err := m.EstablishConnection(ctx, "sqlite::memory:", core.SQLite)
	require.NoError(t, err)
	if setup != "" {
		_, err = m.ExecuteRawQuery(ctx, setup)
		require.NoError(t, err)
		_, err = m.RefreshSchema(ctx)
		require.NoError(t, err)
	}
}

func rec(column, value string, ct core.ColumnType) core.RowRecord {
	return core.RowRecord{ColumnName: column, Value: json.RawMessage(value), ColumnType: ct}
}

func TestManager_UsersScenario(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, Config{})
	connect(t, m, `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, active BOOLEAN)`)

	tables, err := m.GetTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, tables)

	res, err := m.CreateRow(ctx, "users", []core.RowRecord{
		rec("id", "1", core.TypeInteger),
		rec("name", `"Alice"`, core.TypeText),
		rec("active", "true", core.TypeBoolean),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.RowsAffected)

	page, err := m.GetPaginatedRows(ctx, query.SelectQuery{Table: "users", Page: query.Page{Index: 0, Size: 10}})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, uint64(1), page.PageCount)
	assert.Equal(t, uint64(1), page.TotalRows)

	row := page.Data[0]
	assert.Equal(t, []string{"id", "name", "active"}, row.Columns)
	name, _ := row.Get("name")
	assert.True(t, name.Equal(core.TextValue("Alice")))
	active, _ := row.Get("active")
	assert.True(t, active.Equal(core.BoolValue(true)))

	res, err = m.DeleteRows(ctx, "users", [][]core.RowRecord{{rec("id", "1", core.TypeInteger)}})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.RowsAffected)

	page, err = m.GetPaginatedRows(ctx, query.SelectQuery{Table: "users", Page: query.Page{Size: 10}})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Zero(t, page.TotalRows)
	assert.Zero(t, page.PageCount)
}

func TestManager_PaginationIsPrefix(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, Config{})
	connect(t, m, `
		CREATE TABLE items (id INTEGER PRIMARY KEY, label TEXT NOT NULL);
		WITH RECURSIVE seq(n) AS (SELECT 1 UNION ALL SELECT n + 1 FROM seq WHERE n < 23)
		INSERT INTO items (id, label) SELECT n, 'item-' || printf('%02d', n) FROM seq;
	`)

	sort := []query.SortKey{{Column: "label", Desc: true}}
	const size, pages = 5, 5

	var paged []core.DecodedRow
	for i := uint64(0); i < pages; i++ {
		p, err := m.GetPaginatedRows(ctx, query.SelectQuery{
			Table: "items", Sort: sort, Page: query.Page{Index: i, Size: size},
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(5), p.PageCount)
		paged = append(paged, p.Data...)
	}

	all, err := m.GetPaginatedRows(ctx, query.SelectQuery{
		Table: "items", Sort: sort, Page: query.Page{Size: size * pages},
	})
	require.NoError(t, err)
	require.Len(t, all.Data, 23)
	assert.Equal(t, all.Data[:len(paged)], paged)

	first, _ := all.Data[0].Get("label")
	assert.Equal(t, "item-23", first.Text())
}

func TestManager_Filters(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, Config{})
	connect(t, m, `
		CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT, age INTEGER, email TEXT);
		INSERT INTO people VALUES (1, 'ann', 31, NULL), (2, 'bob', 17, 'b@x'), (3, 'cat', 45, 'c@x'), (4, 'dan', 45, NULL);
	`)

	p, err := m.GetPaginatedRows(ctx, query.SelectQuery{
		Table:   "people",
		Columns: []query.Column{{Name: "id", Type: core.TypeInteger}},
		Filters: []query.Filter{{Column: "age", Op: query.OpGte, ColumnType: core.TypeInteger, Values: []json.RawMessage{json.RawMessage(`"30"`)}}},
		Groups: []query.FilterGroup{{Any: true, Filters: []query.Filter{
			{Column: "email", Op: query.OpIsNull, ColumnType: core.TypeText},
			{Column: "name", Op: query.OpLike, ColumnType: core.TypeText, Values: []json.RawMessage{json.RawMessage(`"c%"`)}},
		}}},
		Sort: []query.SortKey{{Column: "id"}},
		Page: query.Page{Size: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), p.TotalRows)
	assert.Equal(t, uint64(2), p.PageCount)
	require.Len(t, p.Data, 2)
	assert.Equal(t, []string{"id"}, p.Data[0].Columns)
	id, _ := p.Data[1].Get("id")
	assert.Equal(t, int64(3), id.Int())
}

func TestManager_LikeOnIntegerColumn(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, Config{})
	connect(t, m, `
		CREATE TABLE codes (id INTEGER PRIMARY KEY, label TEXT);
		INSERT INTO codes VALUES (1, 'a'), (12, 'b'), (30, 'c'), (41, 'd');
	`)

	p, err := m.GetPaginatedRows(ctx, query.SelectQuery{
		Table:   "codes",
		Filters: []query.Filter{{Column: "id", Op: query.OpLike, ColumnType: core.TypeInteger, Values: []json.RawMessage{json.RawMessage(`"%1%"`)}}},
		Sort:    []query.SortKey{{Column: "id"}},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), p.TotalRows)
	var ids []int64
	for _, row := range p.Data {
		id, _ := row.Get("id")
		ids = append(ids, id.Int())
	}
	assert.Equal(t, []int64{1, 12, 41}, ids)
}

func TestManager_ExecuteRawQuery(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, Config{})
	connect(t, m, "")

	res, err := m.ExecuteRawQuery(ctx, `
		CREATE TABLE t (a INTEGER, b TEXT);
		INSERT INTO t VALUES (1, 'x;y'), (2, '-- not a comment');
		SELECT a, b, a * 2 AS doubled FROM t ORDER BY a;
	`)
	require.NoError(t, err)
	assert.True(t, res.IsQuery())
	assert.Equal(t, []string{"a", "b", "doubled"}, res.Columns)
	require.Len(t, res.Rows, 2)
	b, _ := res.Rows[0].Get("b")
	assert.Equal(t, "x;y", b.Text())
	doubled, _ := res.Rows[1].Get("doubled")
	assert.Equal(t, int64(4), doubled.Int())

	res, err = m.ExecuteRawQuery(ctx, "SELECT 1; UPDATE t SET b = 'z'")
	require.NoError(t, err)
	require.NotNil(t, res.Exec)
	assert.Equal(t, uint64(2), res.Exec.RowsAffected)

	res, err = m.ExecuteRawQuery(ctx, "DELETE FROM t WHERE a = 1 RETURNING a")
	require.NoError(t, err)
	assert.True(t, res.IsQuery())
	assert.Len(t, res.Rows, 1)

	res, err = m.ExecuteRawQuery(ctx, "SELECT * FROM t WHERE a > 100")
	require.NoError(t, err)
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)

	_, err = m.ExecuteRawQuery(ctx, "  ;  -- nothing\n")
	assert.ErrorIs(t, err, core.ErrInvalidRequest)

	_, err = m.ExecuteRawQuery(ctx, "SELEC 1")
	var qe *core.QueryError
	assert.ErrorAs(t, err, &qe)
}

func TestManager_Update(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, Config{})
	connect(t, m, `
		CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);
		CREATE TABLE memberships (org TEXT, user_id INTEGER, role TEXT, PRIMARY KEY (org, user_id));
		INSERT INTO users VALUES (1, 'alice'), (2, 'bob');
		INSERT INTO memberships VALUES ('acme', 1, 'member'), ('acme', 2, 'member');
	`)

	res, err := m.UpdateRow(ctx, "users", "id", json.RawMessage(`"2"`), []core.RowRecord{rec("name", `"robert"`, core.TypeText)})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.RowsAffected)

	res, err = m.UpdateRow(ctx, "users", "id", json.RawMessage("1"), nil)
	require.NoError(t, err)
	assert.Zero(t, res.RowsAffected)

	_, err = m.UpdateRow(ctx, "users", "nope", json.RawMessage("1"), []core.RowRecord{rec("name", `"x"`, core.TypeText)})
	assert.ErrorIs(t, err, core.ErrInvalidRequest)

	res, err = m.UpdateRowByKeys(ctx, "memberships",
		[]core.RowRecord{rec("org", `"acme"`, core.TypeText), rec("user_id", "1", core.TypeInteger)},
		[]core.RowRecord{rec("role", `"owner"`, core.TypeText)})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.RowsAffected)

	out, err := m.ExecuteRawQuery(ctx, "SELECT role FROM memberships ORDER BY user_id")
	require.NoError(t, err)
	role, _ := out.Rows[0].Get("role")
	assert.Equal(t, "owner", role.Text())
	role, _ = out.Rows[1].Get("role")
	assert.Equal(t, "member", role.Text())
}

func TestManager_GetFKRelations(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, Config{})
	connect(t, m, `
		CREATE TABLE authors (id INTEGER PRIMARY KEY, name TEXT);
		CREATE TABLE books (id INTEGER PRIMARY KEY, title TEXT, author_id INTEGER REFERENCES authors(id));
		INSERT INTO authors VALUES (1, 'Le Guin'), (2, 'Herbert');
		INSERT INTO books VALUES (10, 'Dune', 2);
	`)

	s, err := m.Schema()
	require.NoError(t, err)
	books, _ := s.Table("books")
	authorID, _ := books.Column("author_id")
	assert.True(t, authorID.HasForeignKey)

	rel, err := m.GetFKRelations(ctx, "books", "author_id", json.RawMessage("2"))
	require.NoError(t, err)
	require.Len(t, rel, 1)
	assert.Equal(t, "authors", rel[0].TableName)
	require.Len(t, rel[0].Rows, 1)
	name, _ := rel[0].Rows[0].Get("name")
	assert.Equal(t, "Herbert", name.Text())

	rel, err = m.GetFKRelations(ctx, "books", "title", json.RawMessage(`"Dune"`))
	require.NoError(t, err)
	assert.Empty(t, rel)
}

func TestManager_NotConnected(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, Config{})

	_, err := m.GetTables(ctx)
	assert.ErrorIs(t, err, core.ErrNotConnected)
	_, err = m.ExecuteRawQuery(ctx, "SELECT 1")
	assert.ErrorIs(t, err, core.ErrNotConnected)
	_, err = m.Schema()
	assert.ErrorIs(t, err, core.ErrNotConnected)
	_, err = m.UpdateRowByKeys(ctx, "t", nil, nil)
	assert.ErrorIs(t, err, core.ErrNotConnected)
	_, err = m.StartSidecar(ctx)
	assert.ErrorIs(t, err, core.ErrNotConnected)

	assert.NoError(t, m.DropConnection())
	assert.NoError(t, m.Close())
	assert.Equal(t, core.SidecarExited, m.SidecarStatus().Status)
}

func TestManager_ConnectionLifecycle(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, Config{})

	require.NoError(t, m.TestConnection(ctx, "sqlite::memory:", core.SQLite))
	assert.False(t, m.Connected())

	var ce *core.ConnectError
	err := m.TestConnection(ctx, "postgres://localhost/db", core.MySQL)
	assert.ErrorAs(t, err, &ce)

	connect(t, m, "CREATE TABLE a (id INTEGER PRIMARY KEY)")
	d, err := m.Dialect()
	require.NoError(t, err)
	assert.Equal(t, core.SQLite, d)

	// A failed replacement keeps the current connection.
	_, err = m.EstablishConnection(ctx, "sqlite3:mysql://nope", core.MySQL)
	require.Error(t, err)
	tables, err := m.GetTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, tables)

	// A successful one replaces it.
	path := filepath.Join(t.TempDir(), "other.db")
	_, err = m.EstablishConnection(ctx, "sqlite:"+path, core.SQLite)
	require.NoError(t, err)
	tables, err = m.GetTables(ctx)
	require.NoError(t, err)
	assert.Empty(t, tables)

	_, err = m.ExecuteRawQuery(ctx, "CREATE TABLE later (x TEXT)")
	require.NoError(t, err)
	s, err := m.Schema()
	require.NoError(t, err)
	assert.Empty(t, s.Tables, "cached schema is not refreshed implicitly")

	infos, err := m.DiscoverSchema(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "later", infos[0].Name)

	require.NoError(t, m.DropConnection())
	assert.False(t, m.Connected())
	require.NoError(t, m.DropConnection())
}

type memStore map[string]core.ConnConfig

func (s memStore) Get(_ context.Context, id string) (core.ConnConfig, error) {
	c, ok := s[id]
	if !ok {
		return core.ConnConfig{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return c, nil
}

func (s memStore) List(context.Context) ([]core.ConnConfig, error) {
	out := make([]core.ConnConfig, 0, len(s))
	for _, c := range s {
		out = append(out, c)
	}
	return out, nil
}

func TestManager_EstablishStored(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, Config{Store: memStore{
		"mem": {ID: "mem", Dialect: core.SQLite, Name: "scratch", ConnectionString: "sqlite::memory:"},
	}})

	s, err := m.EstablishStored(ctx, "mem")
	require.NoError(t, err)
	assert.Equal(t, core.SQLite, s.Dialect)

	_, err = m.EstablishStored(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.True(t, m.Connected())

	bare := newManager(t, Config{})
	_, err = bare.EstablishStored(ctx, "mem")
	assert.ErrorIs(t, err, core.ErrInvalidRequest)
}

func TestManager_EstablishStoredFromStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	cfg, err := st.Add(ctx, core.SQLite, "scratch", "sqlite::memory:")
	require.NoError(t, err)

	m := newManager(t, Config{Store: st})
	_, err = m.EstablishStored(ctx, cfg.ID)
	require.NoError(t, err)
	assert.True(t, m.Connected())
}

func TestManager_SidecarSpawnFailure(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, Config{Sidecar: SidecarConfig{
		Enabled: true,
		Binary:  filepath.Join(t.TempDir(), "missing-sidecar"),
	}})

	// The connection succeeds even though the sidecar cannot start.
	connect(t, m, "")
	state := m.SidecarStatus()
	assert.Equal(t, core.SidecarExited, state.Status)
	assert.NotEmpty(t, state.LastError)
	assert.Zero(t, state.PID)

	_, err := m.StartSidecar(ctx)
	var se *core.SpawnError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, core.SidecarExited, m.SidecarStatus().Status)

	assert.NoError(t, m.KillSidecar())
	assert.Error(t, m.PauseSidecar())
}
