package sqlhelper

import (
	"context"
	"time"

	"github.com/dronm/sqlhelper/metrics"
)

// Query is a statement with positional parameters, bound to the Manager
// that created it. It is not safe for concurrent use.
type Query struct {
	m      *Manager
	sql    string
	params []any
	bound  []bool
	excess int // placeholder count when it exceeds MaxParams
}

// SQL returns the statement text.
func (q *Query) SQL() string { return q.sql }

// NumParams returns the number of placeholders found in the statement.
func (q *Query) NumParams() int { return len(q.params) }

// Bind sets the value of the placeholder at index, counting from 1
// left to right.
func (q *Query) Bind(index int, value any) error {
	if index < 1 || index > len(q.params) {
		return &BindingError{Index: index, Count: len(q.params), Reason: "index out of range"}
	}
	q.params[index-1] = value
	q.bound[index-1] = true
	return nil
}

// BindAll binds values to placeholders 1..len(values).
func (q *Query) BindAll(values ...any) error {
	for i, v := range values {
		if err := q.Bind(i+1, v); err != nil {
			return err
		}
	}
	return nil
}

// checkBound reports the first placeholder that has no value.
func (q *Query) checkBound() error {
	if q.excess > 0 {
		return &BindingError{Index: q.excess, Count: MaxParams, Reason: "too many placeholders"}
	}
	for i, ok := range q.bound {
		if !ok {
			return &BindingError{Index: i + 1, Count: len(q.params), Reason: "not bound"}
		}
	}
	return nil
}

// prepare borrows a connection and prepares the statement on it. Both are
// registered with c, so they are released by c on every path.
func (q *Query) prepare(ctx context.Context, c *Closer) (Stmt, error) {
	if err := q.checkBound(); err != nil {
		return nil, err
	}
	conn, err := q.m.GetConnection(ctx)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, &ConnectionError{Op: "acquire", Err: ErrNotConnected}
	}
	Acquire(c, conn)

	stmt, err := conn.Prepare(ctx, q.sql)
	if err != nil {
		return nil, &QueryError{Op: "prepare", SQL: q.sql, Err: err}
	}
	return Acquire(c, stmt), nil
}

// Execute runs the statement as an update or DDL statement and returns
// the number of affected rows. The connection and the statement are
// released before it returns, whether it fails or not.
func (q *Query) Execute(ctx context.Context) (n int64, err error) {
	start := time.Now()
	defer func() { metrics.ObserveQuery("exec", start, err) }()

	c := &Closer{}
	defer q.release(c)

	stmt, err := q.prepare(ctx, c)
	if err != nil {
		return 0, err
	}
	res, err := stmt.Exec(ctx, q.params...)
	if err != nil {
		return 0, &QueryError{Op: "execute", SQL: q.sql, Err: err}
	}
	return res.RowsAffected(), nil
}

// Results runs the statement as a row-producing query. On success the
// connection, the statement and the cursor belong to the returned Results
// and the caller must Close it. On failure everything acquired so far is
// released.
func (q *Query) Results(ctx context.Context) (res *Results, err error) {
	start := time.Now()
	defer func() { metrics.ObserveQuery("query", start, err) }()

	c := &Closer{}
	defer q.release(c)

	stmt, err := q.prepare(ctx, c)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(ctx, q.params...)
	if err != nil {
		return nil, &QueryError{Op: "query", SQL: q.sql, Err: err}
	}
	Acquire(c, rows)

	return newResults(rows, c.Transfer(), q.m.log), nil
}

func (q *Query) release(c *Closer) {
	if err := c.Close(); err != nil {
		q.m.log.Debug().Err(err).Str("sql", q.sql).Msg("release failed")
	}
}
