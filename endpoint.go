package sqlhelper

import "strings"

// Endpoint holds the address and credentials of one server.
// Empty fields are formatted as empty strings.
type Endpoint struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	Database string `toml:"database"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// FormatURL returns <scheme>://<host>:<port>[/<database>].
// The database segment is added only when it is not empty and
// always starts with exactly one slash.
func FormatURL(scheme string, e Endpoint) string {
	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(e.Host)
	b.WriteByte(':')
	b.WriteString(e.Port)
	if e.Database != "" {
		if !strings.HasPrefix(e.Database, "/") {
			b.WriteByte('/')
		}
		b.WriteString(e.Database)
	}
	return b.String()
}

// Builder assembles a Manager field by field.
type Builder struct {
	endpoint Endpoint
	opts     []Option
}

// NewBuilder returns a Builder with every endpoint field empty.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Host(host string) *Builder {
	b.endpoint.Host = host
	return b
}

func (b *Builder) Port(port string) *Builder {
	b.endpoint.Port = port
	return b
}

func (b *Builder) Database(database string) *Builder {
	b.endpoint.Database = database
	return b
}

func (b *Builder) Username(username string) *Builder {
	b.endpoint.Username = username
	return b
}

func (b *Builder) Password(password string) *Builder {
	b.endpoint.Password = password
	return b
}

// Driver selects the registered pool driver by name.
func (b *Builder) Driver(name string) *Builder {
	b.opts = append(b.opts, WithDriver(name))
	return b
}

// With appends arbitrary manager options.
func (b *Builder) With(opts ...Option) *Builder {
	b.opts = append(b.opts, opts...)
	return b
}

// Endpoint returns the endpoint assembled so far.
func (b *Builder) Endpoint() Endpoint {
	return b.endpoint
}

// Build returns a new, disconnected Manager.
func (b *Builder) Build() *Manager {
	return New(b.endpoint, b.opts...)
}
