// Package pgds implements a PostgreSQL pool driver based on pgx/pgxpool
// and registers it under the name "pg". Placeholders are $1, $2, ...
//
// The statement cache properties map onto pgx:
//   - useServerPrepStmts=false: simple protocol, values interpolated client side.
//   - cachePrepStmts=true: per-connection statement cache of prepStmtCacheSize
//     entries; statements longer than prepStmtCacheSqlLimit bypass it.
//   - cachePrepStmts=false: every statement is prepared by name and
//     deallocated when closed.
package pgds

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dronm/sqlhelper"
)

const DriverID = "pg"

func init() {
	sqlhelper.Register(DriverID, Driver{})
}

// Driver opens pgxpool pools.
type Driver struct{}

func (Driver) Scheme() string { return "postgres" }

func (Driver) CountParams(sql string) int { return sqlhelper.CountDollarParams(sql) }

func (Driver) Open(ctx context.Context, cfg sqlhelper.PoolConfig) (sqlhelper.Pool, error) {
	pc, err := ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return &pool{p: p, so: statementOptions(cfg.Properties)}, nil
}

// stmtOptions decides how a statement is prepared on a connection.
type stmtOptions struct {
	serverPrepare bool
	cache         bool
	sqlLimit      int
}

func statementOptions(props sqlhelper.Options) stmtOptions {
	return stmtOptions{
		serverPrepare: props.Bool(sqlhelper.PropUseServerPrepStmts, true),
		cache:         props.Bool(sqlhelper.PropCachePrepStmts, true),
		sqlLimit:      props.Int(sqlhelper.PropPrepStmtCacheSQLLimit, 2048),
	}
}

// ParseConfig builds a pgxpool configuration from a pool configuration.
func ParseConfig(cfg sqlhelper.PoolConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("pgds: parse url: %w", err)
	}
	pc.ConnConfig.User = cfg.Username()
	pc.ConnConfig.Password = cfg.Password()
	if cfg.MaxPoolSize > 0 {
		pc.MaxConns = int32(cfg.MaxPoolSize)
	}

	props := cfg.Properties
	so := statementOptions(props)
	switch {
	case !so.serverPrepare:
		pc.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	case so.cache:
		pc.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
		pc.ConnConfig.StatementCacheCapacity = props.Int(sqlhelper.PropPrepStmtCacheSize, 250)
	default:
		pc.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeDescribeExec
		pc.ConnConfig.StatementCacheCapacity = 0
	}

	for k, v := range props.Extra() {
		pc.ConnConfig.RuntimeParams[k] = v
	}
	return pc, nil
}

// execMode returns the per-statement exec mode, or false when the
// statement must be prepared by name.
func (so stmtOptions) execMode(sql string) (pgx.QueryExecMode, bool) {
	switch {
	case !so.serverPrepare:
		return pgx.QueryExecModeSimpleProtocol, true
	case !so.cache:
		return 0, false
	case len(sql) > so.sqlLimit:
		return pgx.QueryExecModeDescribeExec, true
	default:
		return pgx.QueryExecModeCacheStatement, true
	}
}

//
// ---------- Pool ----------
//

type pool struct {
	p      *pgxpool.Pool
	so     stmtOptions
	closed atomic.Bool
}

func (p *pool) Acquire(ctx context.Context) (sqlhelper.Conn, error) {
	c, err := p.p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &poolConn{c: c, so: p.so}, nil
}

func (p *pool) Stats() sqlhelper.PoolStats {
	s := p.p.Stat()
	return sqlhelper.PoolStats{
		MaxOpen: int(s.MaxConns()),
		Open:    int(s.TotalConns()),
		InUse:   int(s.AcquiredConns()),
		Idle:    int(s.IdleConns()),
	}
}

func (p *pool) IsClosed() bool { return p.closed.Load() }

// Close marks the pool closed. pgxpool waits for borrowed connections
// before it closes, so with connections still out that wait runs in the
// background.
func (p *pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if p.p.Stat().AcquiredConns() == 0 {
		p.p.Close()
		return nil
	}
	go p.p.Close()
	return nil
}

//
// ---------- PoolConn ----------
//

var stmtSeq atomic.Uint64

type poolConn struct {
	c        *pgxpool.Conn
	so       stmtOptions
	released atomic.Bool
}

func (c *poolConn) Prepare(ctx context.Context, sql string) (sqlhelper.Stmt, error) {
	if mode, ok := c.so.execMode(sql); ok {
		return &pgStmt{conn: c.c.Conn(), sql: sql, mode: mode}, nil
	}
	name := fmt.Sprintf("sqlhelper_%d", stmtSeq.Add(1))
	if _, err := c.c.Conn().Prepare(ctx, name, sql); err != nil {
		return nil, err
	}
	return &pgStmt{conn: c.c.Conn(), sql: name, named: true}, nil
}

func (c *poolConn) Ping(ctx context.Context) error {
	return c.c.Ping(ctx)
}

func (c *poolConn) IsClosed() bool {
	return c.released.Load() || c.c.Conn().IsClosed()
}

// Close releases the connection back to the pool.
func (c *poolConn) Close() error {
	if c.released.CompareAndSwap(false, true) {
		c.c.Release()
	}
	return nil
}

//
// ---------- Stmt ----------
//

type pgStmt struct {
	conn  *pgx.Conn
	sql   string // statement name when named
	named bool
	mode  pgx.QueryExecMode
}

func (s *pgStmt) args(args []any) []any {
	if s.named {
		return args
	}
	return append([]any{s.mode}, args...)
}

func (s *pgStmt) Exec(ctx context.Context, args ...any) (sqlhelper.ExecResult, error) {
	tag, err := s.conn.Exec(ctx, s.sql, s.args(args)...)
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *pgStmt) Query(ctx context.Context, args ...any) (sqlhelper.Rows, error) {
	rows, err := s.conn.Query(ctx, s.sql, s.args(args)...)
	if err != nil {
		return nil, err
	}
	return &pgRows{rows: rows}, nil
}

// Close deallocates a named statement. Cached statements stay in the
// connection's cache.
func (s *pgStmt) Close() error {
	if !s.named || s.conn.IsClosed() {
		return nil
	}
	return s.conn.Deallocate(context.Background(), s.sql)
}

//
// ---------- Rows ----------
//

type pgRows struct {
	rows pgx.Rows
}

func (r *pgRows) Close() error {
	r.rows.Close()
	return r.rows.Err()
}

func (r *pgRows) Err() error {
	return r.rows.Err()
}

func (r *pgRows) Next() bool {
	return r.rows.Next()
}

func (r *pgRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *pgRows) Columns() ([]string, error) {
	fields := r.rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names, nil
}
