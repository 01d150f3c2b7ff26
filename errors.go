package sqlhelper

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected  = errors.New("sqlhelper: not connected")
	ErrResultsClosed = errors.New("sqlhelper: results are closed")
	ErrUnknownDriver = errors.New("sqlhelper: unknown driver")
)

// ConnectionError reports a failure to open a pool or to borrow from it.
type ConnectionError struct {
	Op  string
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("sqlhelper: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("sqlhelper: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError reports a failure to prepare or execute a statement.
type QueryError struct {
	Op  string
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("sqlhelper: %s %q: %v", e.Op, e.SQL, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// BindingError reports a parameter index that does not match a placeholder.
type BindingError struct {
	Index  int
	Count  int
	Reason string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("sqlhelper: parameter %d of %d: %s", e.Index, e.Count, e.Reason)
}

// ResourceReleaseError wraps a failure to close a resource.
// It is collected and logged, never returned from the query path.
type ResourceReleaseError struct {
	Resource string
	Err      error
}

func (e *ResourceReleaseError) Error() string {
	return fmt.Sprintf("sqlhelper: release %s: %v", e.Resource, e.Err)
}

func (e *ResourceReleaseError) Unwrap() error { return e.Err }
