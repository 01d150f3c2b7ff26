// Package sqliteds registers a SQLite pool driver under the name "sqlite".
// The endpoint database is the file name as given; host and port are
// ignored. An empty name opens a shared in-memory database.
package sqliteds

import (
	"context"
	"database/sql"
	"net/url"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dronm/sqlhelper"
	"github.com/dronm/sqlhelper/sqlds"
)

const (
	DriverID        = "sqlite"
	DefDriverName   = "sqlite3"
	defaultDatabase = "file::memory:?cache=shared"
)

func init() {
	sqlhelper.Register(DriverID, SQLite{})
}

// SQLite opens pools with github.com/mattn/go-sqlite3.
type SQLite struct{}

func (SQLite) Scheme() string { return "sqlite" }

func (SQLite) Open(ctx context.Context, cfg sqlhelper.PoolConfig) (sqlhelper.Pool, error) {
	db, err := sql.Open(DefDriverName, DSN(cfg))
	if err != nil {
		return nil, err
	}
	pool, err := sqlds.Open(ctx, db, cfg.MaxPoolSize)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// DSN returns the file name with the unrecognized properties appended as
// query parameters (for example _busy_timeout or _journal_mode).
func DSN(cfg sqlhelper.PoolConfig) string {
	name := cfg.Endpoint.Database
	if name == "" {
		name = defaultDatabase
	}

	extra := cfg.Properties.Extra()
	if len(extra) == 0 {
		return name
	}
	q := url.Values{}
	for k, v := range extra {
		q.Set(k, v)
	}
	sep := "?"
	if strings.Contains(name, "?") {
		sep = "&"
	}
	return name + sep + q.Encode()
}
