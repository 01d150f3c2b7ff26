package sqlds

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"github.com/dronm/sqlhelper"
)

const MySQLDriverID = "mysql"

func init() {
	sqlhelper.Register(MySQLDriverID, MySQL{})
}

// MySQL opens pools with github.com/go-sql-driver/mysql.
type MySQL struct{}

func (MySQL) Scheme() string { return "mysql" }

func (MySQL) Open(ctx context.Context, cfg sqlhelper.PoolConfig) (sqlhelper.Pool, error) {
	mc, err := MySQLConfig(cfg)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, err
	}
	if cfg.Properties.Bool(sqlhelper.PropCachePrepStmts, true) {
		log.Debug().
			Str("driver", MySQLDriverID).
			Int("cache_size", cfg.Properties.Int(sqlhelper.PropPrepStmtCacheSize, 0)).
			Msg("statement reuse is left to database/sql; cache size not applied")
	}
	pool, err := Open(ctx, sql.OpenDB(connector), cfg.MaxPoolSize)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// MySQLConfig translates a pool configuration into a driver configuration.
// useServerPrepStmts=false switches to client side interpolation. Properties
// that are not recognized are sent as session system variables.
func MySQLConfig(cfg sqlhelper.PoolConfig) (*mysql.Config, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("sqlds: parse url: %w", err)
	}
	if u.Scheme != "mysql" {
		return nil, fmt.Errorf("sqlds: unexpected url scheme %q", u.Scheme)
	}

	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = u.Host
	mc.DBName = strings.TrimPrefix(u.Path, "/")
	mc.User = cfg.Username()
	mc.Passwd = cfg.Password()
	mc.ParseTime = true
	mc.InterpolateParams = !cfg.Properties.Bool(sqlhelper.PropUseServerPrepStmts, true)

	if extra := cfg.Properties.Extra(); len(extra) > 0 {
		mc.Params = make(map[string]string, len(extra))
		for k, v := range extra {
			mc.Params[k] = v
		}
	}
	return mc, nil
}
