package sqlhelper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// fakeDriver opens in-memory pools keyed by host. Each test registers its
// own instance under its own name.
type fakeDriver struct {
	mu      sync.Mutex
	pools   map[string][]*fakePool
	down    map[string]bool
	configs []PoolConfig
}

func newFakeDriver(t *testing.T) (string, *fakeDriver) {
	t.Helper()
	name := "fake-" + strings.ReplaceAll(t.Name(), "/", "-")
	d := &fakeDriver{pools: map[string][]*fakePool{}, down: map[string]bool{}}
	Register(name, d)
	return name, d
}

func (d *fakeDriver) Scheme() string { return "fake" }

func (d *fakeDriver) Open(_ context.Context, cfg PoolConfig) (Pool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.configs = append(d.configs, cfg)
	if d.down[cfg.Endpoint.Host] {
		return nil, fmt.Errorf("dial %s: connection refused", cfg.Endpoint.Host)
	}
	p := &fakePool{host: cfg.Endpoint.Host, max: cfg.MaxPoolSize, affected: 1}
	d.pools[cfg.Endpoint.Host] = append(d.pools[cfg.Endpoint.Host], p)
	return p, nil
}

func (d *fakeDriver) setDown(host string, down bool) {
	d.mu.Lock()
	d.down[host] = down
	d.mu.Unlock()
}

// last returns the most recently opened pool for host.
func (d *fakeDriver) last(host string) *fakePool {
	d.mu.Lock()
	defer d.mu.Unlock()
	ps := d.pools[host]
	if len(ps) == 0 {
		return nil
	}
	return ps[len(ps)-1]
}

func (d *fakeDriver) opened(host string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pools[host])
}

func (d *fakeDriver) lastConfig() PoolConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configs[len(d.configs)-1]
}

type fakePool struct {
	host     string
	max      int
	inUse    atomic.Int32
	acquired atomic.Int32
	closed   atomic.Bool

	// knobs
	pingErr    error
	acquireErr error
	prepareErr error
	execErr    error
	queryErr   error
	closeErr   error
	affected   int64
	columns    []string
	rows       [][]any

	mu     sync.Mutex
	events []string
}

func (p *fakePool) record(ev string) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *fakePool) released() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func (p *fakePool) Acquire(ctx context.Context) (Conn, error) {
	if p.closed.Load() {
		return nil, errors.New("pool closed")
	}
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.inUse.Add(1)
	p.acquired.Add(1)
	return &fakeConn{pool: p}, nil
}

func (p *fakePool) Stats() PoolStats {
	in := int(p.inUse.Load())
	return PoolStats{MaxOpen: p.max, Open: in, InUse: in}
}

func (p *fakePool) IsClosed() bool { return p.closed.Load() }

func (p *fakePool) Close() error {
	p.closed.Store(true)
	return p.closeErr
}

type fakeConn struct {
	pool   *fakePool
	closed atomic.Bool
}

func (c *fakeConn) Prepare(_ context.Context, sql string) (Stmt, error) {
	if c.pool.prepareErr != nil {
		return nil, c.pool.prepareErr
	}
	return &fakeStmt{conn: c, sql: sql}, nil
}

func (c *fakeConn) Ping(context.Context) error { return c.pool.pingErr }

func (c *fakeConn) IsClosed() bool { return c.closed.Load() }

func (c *fakeConn) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.pool.inUse.Add(-1)
		c.pool.record("conn")
	}
	return nil
}

type fakeStmt struct {
	conn *fakeConn
	sql  string
	args []any
}

type fakeResult int64

func (r fakeResult) RowsAffected() int64 { return int64(r) }

func (s *fakeStmt) Exec(_ context.Context, args ...any) (ExecResult, error) {
	s.args = args
	if s.conn.pool.execErr != nil {
		return nil, s.conn.pool.execErr
	}
	return fakeResult(s.conn.pool.affected), nil
}

func (s *fakeStmt) Query(_ context.Context, args ...any) (Rows, error) {
	s.args = args
	if s.conn.pool.queryErr != nil {
		return nil, s.conn.pool.queryErr
	}
	return &fakeRows{pool: s.conn.pool, cur: -1}, nil
}

func (s *fakeStmt) Close() error {
	s.conn.pool.record("stmt")
	return nil
}

type fakeRows struct {
	pool *fakePool
	cur  int
}

func (r *fakeRows) Next() bool {
	r.cur++
	return r.cur < len(r.pool.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.pool.rows[r.cur]
	if len(dest) != len(row) {
		return fmt.Errorf("expected %d destinations, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *any:
			*p = row[i]
		case *int:
			*p = row[i].(int)
		case *string:
			*p = row[i].(string)
		default:
			return fmt.Errorf("unsupported destination %T", d)
		}
	}
	return nil
}

func (r *fakeRows) Columns() ([]string, error) { return r.pool.columns, nil }

func (r *fakeRows) Err() error { return nil }

func (r *fakeRows) Close() error {
	r.pool.record("rows")
	return nil
}

// closerFunc adapts a function to io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var _ io.Closer = closerFunc(nil)
