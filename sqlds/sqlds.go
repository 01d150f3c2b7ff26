// Package sqlds implements pools on top of database/sql and registers the
// MySQL driver under the name "mysql".
package sqlds

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/dronm/sqlhelper"
)

// Pool adapts *sql.DB to sqlhelper.Pool.
type Pool struct {
	db     *sql.DB
	closed atomic.Bool
}

// Open limits db to maxPoolSize open connections and pings it. db is
// closed if the ping fails.
func Open(ctx context.Context, db *sql.DB, maxPoolSize int) (*Pool, error) {
	if maxPoolSize > 0 {
		db.SetMaxOpenConns(maxPoolSize)
		db.SetMaxIdleConns(maxPoolSize)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &Pool{db: db}, nil
}

// DB returns the underlying handle.
func (p *Pool) DB() *sql.DB { return p.db }

func (p *Pool) Acquire(ctx context.Context) (sqlhelper.Conn, error) {
	c, err := p.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &conn{c: c}, nil
}

func (p *Pool) Stats() sqlhelper.PoolStats {
	s := p.db.Stats()
	return sqlhelper.PoolStats{
		MaxOpen: s.MaxOpenConnections,
		Open:    s.OpenConnections,
		InUse:   s.InUse,
		Idle:    s.Idle,
	}
}

func (p *Pool) IsClosed() bool { return p.closed.Load() }

func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.db.Close()
}

//
// ---------- Conn ----------
//

type conn struct {
	c      *sql.Conn
	closed atomic.Bool
}

func (c *conn) Prepare(ctx context.Context, query string) (sqlhelper.Stmt, error) {
	s, err := c.c.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return &stmt{s: s}, nil
}

func (c *conn) Ping(ctx context.Context) error {
	return c.c.PingContext(ctx)
}

func (c *conn) IsClosed() bool { return c.closed.Load() }

// Close returns the connection to the pool.
func (c *conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.c.Close()
}

//
// ---------- Stmt ----------
//

type stmt struct {
	s *sql.Stmt
}

func (s *stmt) Exec(ctx context.Context, args ...any) (sqlhelper.ExecResult, error) {
	r, err := s.s.ExecContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	return result{r}, nil
}

func (s *stmt) Query(ctx context.Context, args ...any) (sqlhelper.Rows, error) {
	rows, err := s.s.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *stmt) Close() error {
	return s.s.Close()
}

type result struct {
	sql.Result
}

// RowsAffected returns -1 when the driver cannot tell.
func (r result) RowsAffected() int64 {
	n, err := r.Result.RowsAffected()
	if err != nil {
		return -1
	}
	return n
}
