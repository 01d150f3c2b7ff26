package sqlhelper

import (
	"maps"
	"strconv"
)

// Pool property keys recognized by the bundled drivers.
const (
	PropCachePrepStmts        = "cachePrepStmts"
	PropPrepStmtCacheSize     = "prepStmtCacheSize"
	PropPrepStmtCacheSQLLimit = "prepStmtCacheSqlLimit"
	PropUseServerPrepStmts    = "useServerPrepStmts"
	PropMaximumPoolSize       = "maximumPoolSize"
)

const (
	DefaultDriver      = "mysql"
	DefaultMaxPoolSize = 20
)

// Options are caller supplied pool properties layered over the defaults.
type Options map[string]string

// DefaultOptions returns the prepared statement caching defaults.
func DefaultOptions() Options {
	return Options{
		PropCachePrepStmts:        "true",
		PropPrepStmtCacheSize:     "250",
		PropPrepStmtCacheSQLLimit: "2048",
		PropUseServerPrepStmts:    "true",
	}
}

// PoolConfig is what a Driver receives to open a pool.
type PoolConfig struct {
	Driver      string
	URL         string
	Endpoint    Endpoint
	MaxPoolSize int
	Properties  Options
}

func (c PoolConfig) Username() string { return c.Endpoint.Username }
func (c PoolConfig) Password() string { return c.Endpoint.Password }

// newPoolConfig layers opts over the defaults. maximumPoolSize is
// consumed into MaxPoolSize and removed from the properties.
func newPoolConfig(driver, url string, e Endpoint, opts Options) PoolConfig {
	props := DefaultOptions()
	maps.Copy(props, opts)

	cfg := PoolConfig{
		Driver:      driver,
		URL:         url,
		Endpoint:    e,
		MaxPoolSize: DefaultMaxPoolSize,
		Properties:  props,
	}
	if v, ok := props[PropMaximumPoolSize]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxPoolSize = n
		}
		delete(props, PropMaximumPoolSize)
	}
	return cfg
}

// Bool returns the boolean property key, or def when absent or malformed.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Int returns the integer property key, or def when absent or malformed.
func (o Options) Int(key string, def int) int {
	v, ok := o[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Extra returns the properties that are not one of the recognized keys.
func (o Options) Extra() Options {
	extra := Options{}
	for k, v := range o {
		switch k {
		case PropCachePrepStmts, PropPrepStmtCacheSize, PropPrepStmtCacheSQLLimit,
			PropUseServerPrepStmts, PropMaximumPoolSize:
			continue
		}
		extra[k] = v
	}
	return extra
}
