package sqlhelper

import "context"

// ---------- Query results ----------

type Rows interface {
	Close() error
	Err() error
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
}

type ExecResult interface {
	RowsAffected() int64
}

// ---------- Statements ----------

// Stmt is a statement prepared on one borrowed connection.
// It must be closed before the connection is released.
type Stmt interface {
	Exec(ctx context.Context, args ...any) (ExecResult, error)
	Query(ctx context.Context, args ...any) (Rows, error)
	Close() error
}

// ---------- Connections ----------

// Conn represents a connection leased from a pool.
// Close returns it to the pool.
type Conn interface {
	Prepare(ctx context.Context, sql string) (Stmt, error)
	Ping(ctx context.Context) error
	IsClosed() bool
	Close() error
}

// PoolStats is a point-in-time snapshot of a pool.
type PoolStats struct {
	MaxOpen int
	Open    int
	InUse   int
	Idle    int
}

// Pool owns the physical connections to one server.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
	Stats() PoolStats
	IsClosed() bool
	Close() error
}
