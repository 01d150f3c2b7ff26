package sqlhelper

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Results owns a cursor together with the statement and the connection
// that produced it. The rows stay readable until Close.
type Results struct {
	rows   Rows
	closer *Closer
	log    zerolog.Logger
	closed atomic.Bool
}

func newResults(rows Rows, closer *Closer, log zerolog.Logger) *Results {
	return &Results{rows: rows, closer: closer, log: log}
}

// Next advances to the next row. It returns false at the end of the rows,
// on error and after Close.
func (r *Results) Next() bool {
	if r.closed.Load() {
		return false
	}
	return r.rows.Next()
}

// Scan copies the columns of the current row into dest.
func (r *Results) Scan(dest ...any) error {
	if r.closed.Load() {
		return ErrResultsClosed
	}
	return r.rows.Scan(dest...)
}

// Columns returns the column names.
func (r *Results) Columns() ([]string, error) {
	if r.closed.Load() {
		return nil, ErrResultsClosed
	}
	return r.rows.Columns()
}

// Err returns the error that ended iteration, or ErrResultsClosed once
// the results have been closed.
func (r *Results) Err() error {
	if r.closed.Load() {
		return ErrResultsClosed
	}
	return r.rows.Err()
}

// Close releases the cursor, then the statement, then the connection.
// Release failures are logged and dropped. Only the first call has any
// effect.
func (r *Results) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := r.closer.Close(); err != nil {
		r.log.Debug().Err(err).Msg("results release failed")
	}
	return nil
}
