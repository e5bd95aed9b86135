// Package session owns the active database connection and its sidecar, and
// exposes the commands the front end issues against them.
//
// One mutex guards the whole session. Every command holds it for its full
// duration, I/O included, so commands against the connection serialize.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/tablex/internal/sidecar"
	"github.com/leapstack-labs/tablex/pkg/adapter"
	"github.com/leapstack-labs/tablex/pkg/core"
	"github.com/leapstack-labs/tablex/pkg/query"
	"github.com/leapstack-labs/tablex/pkg/schema"
)

// ConnectionStore looks up stored connection records.
type ConnectionStore interface {
	Get(ctx context.Context, id string) (core.ConnConfig, error)
	List(ctx context.Context) ([]core.ConnConfig, error)
}

// SidecarConfig controls the companion process.
type SidecarConfig struct {
	// Enabled starts the sidecar after every successful connection.
	Enabled bool
	// Binary overrides sidecar.DefaultBinary.
	Binary string
}

// Config configures a Manager.
type Config struct {
	Pool    adapter.Options
	Schema  schema.Options
	Lenient bool
	Sidecar SidecarConfig
	Store   ConnectionStore
	Logger  *slog.Logger
}

// connection is the active pool plus its cached schema.
type connection struct {
	pool    *adapter.Pool
	url     string
	builder *query.Builder
	schema  *core.Schema
}

func (c *connection) dialect() core.Dialect { return c.pool.Dialect() }

// Manager is the session: at most one active connection and its sidecar.
type Manager struct {
	mu sync.Mutex

	cfg    Config
	logger *slog.Logger

	conn *connection

	sidecar     *sidecar.Handle
	lastSidecar core.SidecarState
	// generation is bumped on every teardown so exit callbacks from a
	// previous sidecar are ignored.
	generation uint64
}

// New creates a Manager with no active connection.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Pool.AcquireTimeout <= 0 {
		cfg.Pool.AcquireTimeout = adapter.DefaultAcquireTimeout
	}
	return &Manager{
		cfg:         cfg,
		logger:      logger,
		lastSidecar: core.SidecarState{Status: core.SidecarExited},
	}
}

// TestConnection opens a throwaway pool, probes it and closes it. The
// session is not touched.
func (m *Manager) TestConnection(ctx context.Context, url string, d core.Dialect) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pool, err := adapter.Open(d, url, m.cfg.Pool, m.logger)
	if err != nil {
		return err
	}
	defer func() { _ = pool.Close() }()
	return pool.Ping(ctx)
}

// EstablishConnection connects, probes and discovers the schema, then
// replaces the active connection. The new pool is opened before the old one
// is closed, so on failure the previous connection is left in place.
func (m *Manager) EstablishConnection(ctx context.Context, url string, d core.Dialect) (*core.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.establishLocked(ctx, url, d)
}

// EstablishStored connects using a record from the connection store.
func (m *Manager) EstablishStored(ctx context.Context, id string) (*core.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.Store == nil {
		return nil, fmt.Errorf("%w: no connection store configured", core.ErrInvalidRequest)
	}
	rec, err := m.cfg.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.establishLocked(ctx, rec.ConnectionString, rec.Dialect)
}

func (m *Manager) establishLocked(ctx context.Context, url string, d core.Dialect) (*core.Schema, error) {
	pool, err := adapter.Open(d, url, m.cfg.Pool, m.logger)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}

	opts := []query.Option{}
	if d == core.PostgreSQL && m.cfg.Schema.Schema != "" {
		opts = append(opts, query.WithSchema(m.cfg.Schema.Schema))
	}
	builder, err := query.New(d, opts...)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}

	conn := &connection{pool: pool, url: url, builder: builder}
	if err := m.discoverLocked(ctx, conn); err != nil {
		_ = pool.Close()
		return nil, err
	}

	if err := m.teardownLocked(); err != nil {
		m.logger.Warn("previous connection not closed cleanly", slog.String("error", err.Error()))
	}
	m.conn = conn
	m.logger.Info("connection established",
		slog.String("dialect", string(d)),
		slog.Int("tables", len(conn.schema.Tables)))

	if m.cfg.Sidecar.Enabled {
		if _, err := m.startSidecarLocked(ctx); err != nil {
			m.logger.Warn("sidecar not started", slog.String("error", err.Error()))
		}
	}
	return conn.schema, nil
}

func (m *Manager) discoverLocked(ctx context.Context, c *connection) error {
	return c.pool.WithConn(ctx, func(q *sql.Conn) error {
		s, err := schema.Discover(ctx, q, c.dialect(), m.cfg.Schema)
		if err != nil {
			return err
		}
		c.schema = s
		return nil
	})
}

// DropConnection tears the session down. Dropping with no connection is a
// no-op.
func (m *Manager) DropConnection() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.teardownLocked()
}

// Close is DropConnection; it is safe to call repeatedly.
func (m *Manager) Close() error {
	return m.DropConnection()
}

// teardownLocked detaches the sidecar exit callback, kills the sidecar and
// then closes the pool, in that order.
func (m *Manager) teardownLocked() error {
	m.generation++
	if m.sidecar != nil {
		if err := sidecar.Kill(m.sidecar); err != nil {
			m.logger.Warn("failed to stop sidecar", slog.String("error", err.Error()))
		}
		m.lastSidecar = m.sidecar.State()
		m.lastSidecar.Status = core.SidecarExited
		m.sidecar = nil
	}
	if m.conn == nil {
		return nil
	}
	err := m.conn.pool.Close()
	m.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

func (m *Manager) active() (*connection, error) {
	if m.conn == nil {
		return nil, core.ErrNotConnected
	}
	return m.conn, nil
}

// Connected reports whether a connection is active.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Dialect returns the active connection's dialect.
func (m *Manager) Dialect() (core.Dialect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.active()
	if err != nil {
		return "", err
	}
	return c.dialect(), nil
}

// Schema returns the cached schema without querying the database.
func (m *Manager) Schema() (*core.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.active()
	if err != nil {
		return nil, err
	}
	return c.schema, nil
}

// RefreshSchema re-runs discovery and replaces the cache.
func (m *Manager) RefreshSchema(ctx context.Context) (*core.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.active()
	if err != nil {
		return nil, err
	}
	if err := m.discoverLocked(ctx, c); err != nil {
		return nil, err
	}
	return c.schema, nil
}

// DiscoverSchema refreshes the cache and returns its tables.
func (m *Manager) DiscoverSchema(ctx context.Context) ([]core.TableInfo, error) {
	s, err := m.RefreshSchema(ctx)
	if err != nil {
		return nil, err
	}
	return s.Tables, nil
}

// GetTables lists table names live from the catalog.
func (m *Manager) GetTables(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.active()
	if err != nil {
		return nil, err
	}
	var names []string
	err = c.pool.WithConn(ctx, func(q *sql.Conn) error {
		var err error
		names, err = schema.Tables(ctx, q, c.dialect(), m.cfg.Schema)
		return err
	})
	return names, err
}
