package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/tablex/pkg/adapters/mysql"
	"github.com/leapstack-labs/tablex/pkg/adapters/postgres"
	"github.com/leapstack-labs/tablex/pkg/adapters/sqlite"
	"github.com/leapstack-labs/tablex/pkg/core"
)

var errClosed = errors.New("database connection not established")

// Pool is an open connection pool for one dialect.
type Pool struct {
	db      *sql.DB
	dialect core.Dialect
	opts    Options
	logger  *slog.Logger
}

// Open validates url against d and opens a pool through the dialect's
// driver. It does not connect; call Ping to probe the server.
func Open(d core.Dialect, url string, opts Options, logger *slog.Logger) (*Pool, error) {
	if err := core.CheckURL(url, d); err != nil {
		return nil, err
	}

	var (
		db  *sql.DB
		err error
	)
	switch d {
	case core.SQLite:
		db, err = sqlite.Open(url)
	case core.PostgreSQL:
		db, err = postgres.Open(url)
	case core.MySQL:
		db, err = mysql.Open(url)
	default:
		return nil, &core.UnsupportedDriverError{Prefix: string(d)}
	}
	if err != nil {
		return nil, &core.ConnectError{Dialect: d, Err: err}
	}

	p := FromDB(db, d, opts, logger)
	if d == core.SQLite && sqlite.IsMemory(url) {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}
	p.logger.Debug("opened pool", slog.String("dialect", string(d)))
	return p, nil
}

// FromDB wraps an already opened handle. Pool knobs from opts are applied.
// If logger is nil, a discard logger is used.
func FromDB(db *sql.DB, d core.Dialect, opts Options, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = DefaultAcquireTimeout
	}
	if opts.MaxOpen > 0 {
		db.SetMaxOpenConns(opts.MaxOpen)
	}
	if opts.MaxIdle > 0 {
		db.SetMaxIdleConns(opts.MaxIdle)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return &Pool{db: db, dialect: d, opts: opts, logger: logger}
}

// Dialect returns the pool's dialect.
func (p *Pool) Dialect() core.Dialect {
	return p.dialect
}

// Acquire obtains a connection, waiting at most the acquire timeout. The
// caller must close the returned connection.
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	if p == nil || p.db == nil {
		return nil, errClosed
	}
	actx, cancel := context.WithTimeout(ctx, p.opts.AcquireTimeout)
	defer cancel()
	conn, err := p.db.Conn(actx)
	if err != nil {
		return nil, &core.ConnectError{Dialect: p.dialect, Err: err}
	}
	return conn, nil
}

// WithConn runs fn on one acquired connection. Every statement fn issues
// sees the same session.
func (p *Pool) WithConn(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	return fn(conn)
}

// Ping probes the server. A connection that cannot be obtained yields a
// ConnectError; an unanswered probe yields a PingError.
func (p *Pool) Ping(ctx context.Context) error {
	return p.WithConn(ctx, func(conn *sql.Conn) error {
		if err := conn.PingContext(ctx); err != nil {
			return &core.PingError{Dialect: p.dialect, Err: err}
		}
		return nil
	})
}

// Exec runs a statement that returns no rows and reports the affected row
// count.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (uint64, error) {
	var affected uint64
	err := p.WithConn(ctx, func(conn *sql.Conn) error {
		n, err := ExecOn(ctx, conn, query, args...)
		affected = n
		return err
	})
	return affected, err
}

// Query runs a statement and hands the rows to fn. Rows are closed after fn
// returns.
func (p *Pool) Query(ctx context.Context, fn func(*sql.Rows) error, query string, args ...any) error {
	return p.WithConn(ctx, func(conn *sql.Conn) error {
		return QueryOn(ctx, conn, fn, query, args...)
	})
}

// QueryUint runs a single-value query such as COUNT(*).
func (p *Pool) QueryUint(ctx context.Context, query string, args ...any) (uint64, error) {
	var n uint64
	err := p.WithConn(ctx, func(conn *sql.Conn) error {
		if err := conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
			return &core.QueryError{SQL: query, Err: err}
		}
		return nil
	})
	return n, err
}

// ExecOn runs a statement on q and reports the affected row count.
func ExecOn(ctx context.Context, q Execer, query string, args ...any) (uint64, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, &core.QueryError{SQL: query, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &core.QueryError{SQL: query, Err: fmt.Errorf("failed to read affected rows: %w", err)}
	}
	if n < 0 {
		n = 0
	}
	return uint64(n), nil
}

// QueryOn runs a statement on q and hands the rows to fn.
func QueryOn(ctx context.Context, q Querier, fn func(*sql.Rows) error, query string, args ...any) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return &core.QueryError{SQL: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	if err := fn(rows); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return &core.QueryError{SQL: query, Err: err}
	}
	return nil
}

// Close drains the pool, waiting for in-use connections to be returned.
// Closing a closed pool is a no-op.
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	p.logger.Debug("closing database connection", slog.String("dialect", string(p.dialect)))
	err := p.db.Close()
	p.db = nil
	return err
}
