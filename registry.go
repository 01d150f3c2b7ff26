// Package sqlhelper manages a pooled connection to a relational server,
// runs parameterized statements against it and can fail over to a
// secondary server.
//
// Pool providers live in sub-packages and register themselves by name.
// The required provider must be imported with a blank import before use:
//
//	import _ "github.com/dronm/sqlhelper/sqlds" // "mysql"
//
//	m := sqlhelper.New(sqlhelper.Endpoint{Host: "db1", Port: "3306", Database: "orders"})
//	if err := m.Connect(ctx); err != nil {
//		return err
//	}
//	defer m.Disconnect()
package sqlhelper

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Driver opens pools for one kind of server.
type Driver interface {
	// Scheme is the URL scheme used when formatting connection URLs.
	Scheme() string
	Open(ctx context.Context, cfg PoolConfig) (Pool, error)
}

// ParamCounter is implemented by drivers whose placeholder syntax is not '?'.
type ParamCounter interface {
	CountParams(sql string) int
}

var (
	mu      sync.RWMutex
	drivers = map[string]Driver{}
)

// Register makes a pool driver available by the provided name.
// If Register is called twice with the same name or if driver is nil,
// it panics.
func Register(name string, driver Driver) {
	if driver == nil {
		panic("sqlhelper: driver is nil")
	}
	mu.Lock()
	defer mu.Unlock()

	if _, exists := drivers[name]; exists {
		panic("sqlhelper: driver already registered: " + name)
	}
	drivers[name] = driver
}

// Lookup returns the driver registered under name.
func Lookup(name string) (Driver, error) {
	mu.RLock()
	driver, ok := drivers[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w %q (forgotten import?)", ErrUnknownDriver, name)
	}
	return driver, nil
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
