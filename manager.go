package sqlhelper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dronm/sqlhelper/metrics"
)

// Target selects which server statements are sent to.
type Target int

const (
	TargetNone Target = iota
	TargetPrimary
	TargetSecondary
)

func (t Target) String() string {
	switch t {
	case TargetPrimary:
		return "primary"
	case TargetSecondary:
		return "secondary"
	default:
		return "none"
	}
}

const (
	defaultProbeTimeout  = time.Second
	defaultNotifyTimeout = 5 * time.Second
)

// Option configures a Manager.
type Option func(*Manager)

// WithDriver selects the registered pool driver. The default is "mysql".
func WithDriver(name string) Option {
	return func(m *Manager) { m.driver = name }
}

// WithNotifier sets the sink for failover events.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithLogger replaces the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithSource names this system in failover notifications.
// The default is the host name.
func WithSource(name string) Option {
	return func(m *Manager) { m.source = name }
}

// WithProbeTimeout bounds the liveness probe of IsConnected.
func WithProbeTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.probeTimeout = d
		}
	}
}

// WithNotifyTimeout bounds one failover notification.
func WithNotifyTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.notifyTimeout = d
		}
	}
}

type server struct {
	endpoint Endpoint
	url      string
	pool     Pool
}

// Manager owns the primary pool, the optional secondary pool and the
// selector that decides which of them serves new connections.
// It is safe for concurrent use.
type Manager struct {
	endpoint      Endpoint
	driver        string
	source        string
	notifier      Notifier
	log           zerolog.Logger
	probeTimeout  time.Duration
	notifyTimeout time.Duration
	closeNotifier sync.Once

	mu        sync.RWMutex
	primary   *server
	secondary *server
	opts      Options
	active    Target
}

// New returns a disconnected Manager for endpoint.
func New(endpoint Endpoint, opts ...Option) *Manager {
	m := &Manager{
		endpoint:      endpoint,
		driver:        DefaultDriver,
		notifier:      NopNotifier{},
		log:           log.Logger,
		probeTimeout:  defaultProbeTimeout,
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.source == "" {
		m.source, _ = os.Hostname()
	}
	m.log = m.log.With().Str("component", "sqlhelper").Str("driver", m.driver).Logger()
	return m
}

// Endpoint returns the primary endpoint the manager was built with.
func (m *Manager) Endpoint() Endpoint { return m.endpoint }

// DriverName returns the name of the pool driver in use.
func (m *Manager) DriverName() string { return m.driver }

// URL returns the formatted primary URL, or "" if the driver is unknown.
func (m *Manager) URL() string {
	drv, err := Lookup(m.driver)
	if err != nil {
		return ""
	}
	return FormatURL(drv.Scheme(), m.endpoint)
}

// Connect opens the primary pool with the default properties.
func (m *Manager) Connect(ctx context.Context) error {
	return m.ConnectWithOptions(ctx, nil)
}

// ConnectWithOptions opens the primary pool with opts layered over the
// default properties. A pool opened by an earlier call is closed the way
// Disconnect closes it.
// On failure the manager is left disconnected.
func (m *Manager) ConnectWithOptions(ctx context.Context, opts Options) error {
	srv, err := m.open(ctx, m.endpoint, opts)

	m.mu.Lock()
	old := m.primary
	m.primary = srv
	m.opts = opts
	switch {
	case err != nil:
		m.active = TargetNone
	case m.active != TargetSecondary:
		m.active = TargetPrimary
	}
	m.mu.Unlock()

	if old != nil {
		m.closeServer(old, TargetPrimary)
	}
	if err != nil {
		m.log.Error().Err(err).Msg("connect failed")
		return err
	}
	m.log.Info().Str("url", srv.url).Int("max_pool_size", srv.pool.Stats().MaxOpen).Msg("connected")
	return nil
}

// open formats the URL of e and opens a pool for it.
func (m *Manager) open(ctx context.Context, e Endpoint, opts Options) (*server, error) {
	drv, err := Lookup(m.driver)
	if err != nil {
		return nil, &ConnectionError{Op: "connect", Err: err}
	}
	url := FormatURL(drv.Scheme(), e)
	pool, err := drv.Open(ctx, newPoolConfig(m.driver, url, e, opts))
	if err != nil {
		return nil, &ConnectionError{Op: "connect", URL: url, Err: err}
	}
	return &server{endpoint: e, url: url, pool: pool}, nil
}

func (m *Manager) closeServer(s *server, t Target) error {
	metrics.ResetPool(t.String())
	if s.pool.IsClosed() {
		return nil
	}
	if err := s.pool.Close(); err != nil {
		m.log.Warn().Err(err).Str("url", s.url).Str("target", t.String()).Msg("pool close failed")
		return &ConnectionError{Op: "disconnect", URL: s.url, Err: err}
	}
	return nil
}

// Disconnect closes the primary and secondary pools and clears the
// selector. Calling it on a disconnected manager does nothing.
// Connections still borrowed, such as those held by open Results, stay
// usable until they are returned; the drivers finish closing the pool
// then, without blocking Disconnect.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	primary, secondary := m.primary, m.secondary
	m.primary, m.secondary = nil, nil
	m.active = TargetNone
	m.mu.Unlock()

	var errs []error
	if primary != nil {
		errs = append(errs, m.closeServer(primary, TargetPrimary))
	}
	if secondary != nil {
		errs = append(errs, m.closeServer(secondary, TargetSecondary))
	}
	if primary != nil || secondary != nil {
		m.log.Info().Msg("disconnected")
	}
	return errors.Join(errs...)
}

// Close disconnects and releases the notifier if it implements io.Closer.
// A notifier passed with WithNotifier is owned by the manager from then on.
func (m *Manager) Close() error {
	err := m.Disconnect()
	m.closeNotifier.Do(func() {
		if c, ok := m.notifier.(io.Closer); ok {
			err = errors.Join(err, c.Close())
		}
	})
	return err
}

// current returns the server the selector points at.
func (m *Manager) current() *server {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch m.active {
	case TargetPrimary:
		return m.primary
	case TargetSecondary:
		return m.secondary
	}
	return nil
}

// IsConnected reports whether a connection can be borrowed from the
// active pool and answers a ping within the probe timeout. It never
// fails: any problem yields false.
func (m *Manager) IsConnected(ctx context.Context) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			m.log.Debug().Interface("panic", p).Msg("liveness probe panicked")
			ok = false
		}
	}()

	srv := m.current()
	if srv == nil || srv.pool.IsClosed() {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	c := &Closer{}
	defer c.Close()

	conn, err := srv.pool.Acquire(ctx)
	if err != nil {
		m.log.Debug().Err(err).Msg("liveness probe: acquire failed")
		return false
	}
	Acquire(c, conn)
	if conn.IsClosed() {
		return false
	}
	if err := conn.Ping(ctx); err != nil {
		m.log.Debug().Err(err).Msg("liveness probe: ping failed")
		return false
	}
	return true
}

// GetConnection borrows a connection from the active pool. It returns
// nil and no error when the manager is not connected. The caller owns the
// connection and must Close it to return it to the pool.
func (m *Manager) GetConnection(ctx context.Context) (Conn, error) {
	srv := m.current()
	if srv == nil {
		return nil, nil
	}
	conn, err := srv.pool.Acquire(ctx)
	if err != nil {
		return nil, &ConnectionError{Op: "acquire", URL: srv.url, Err: err}
	}
	return conn, nil
}

// RegisterSecondary opens a pool to e and keeps it as the failover
// candidate. It does not activate it. A previously registered secondary
// is closed.
func (m *Manager) RegisterSecondary(ctx context.Context, e Endpoint) error {
	m.mu.RLock()
	opts := m.opts
	m.mu.RUnlock()

	srv, err := m.open(ctx, e, opts)
	if err != nil {
		m.log.Error().Err(err).Msg("secondary registration failed")
		return err
	}

	m.mu.Lock()
	old := m.secondary
	m.secondary = srv
	m.mu.Unlock()

	if old != nil {
		m.closeServer(old, TargetSecondary)
	}
	m.log.Info().Str("url", srv.url).Msg("secondary registered")
	return nil
}

// HasSecondary reports whether a secondary pool is registered.
func (m *Manager) HasSecondary() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.secondary != nil
}

// Active returns the current selector state.
func (m *Manager) Active() Target {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Failover switches new connections to the secondary pool. Without a
// registered secondary, or when not connected, it does nothing.
// Observers are notified before the switch; their failures are ignored.
func (m *Manager) Failover(ctx context.Context) {
	m.mu.RLock()
	ready := m.secondary != nil && m.active == TargetPrimary
	m.mu.RUnlock()
	if !ready {
		return
	}

	m.notify(ctx, EventFailover, TargetPrimary, TargetSecondary)

	m.mu.Lock()
	switched := m.secondary != nil && m.active == TargetPrimary
	if switched {
		m.active = TargetSecondary
	}
	m.mu.Unlock()

	if switched {
		metrics.FailoverEventsTotal.WithLabelValues(string(EventFailover)).Inc()
		m.log.Warn().Str("target", TargetSecondary.String()).Msg("failed over")
	}
}

// Failback switches new connections back to the primary pool. The primary
// is re-resolved from the endpoint when its pool is gone or closed; an
// error is returned only if that re-open fails. A disconnected manager is
// left as it is.
func (m *Manager) Failback(ctx context.Context) error {
	m.mu.RLock()
	from := m.active
	primary := m.primary
	opts := m.opts
	m.mu.RUnlock()

	if from == TargetNone {
		return nil
	}

	var reopened *server
	if primary == nil || primary.pool.IsClosed() {
		srv, err := m.open(ctx, m.endpoint, opts)
		if err != nil {
			m.log.Error().Err(err).Msg("failback: primary re-open failed")
			return err
		}
		reopened = srv
	}

	if from == TargetSecondary {
		m.notify(ctx, EventFailback, TargetSecondary, TargetPrimary)
	}

	m.mu.Lock()
	if m.active == TargetNone {
		m.mu.Unlock()
		if reopened != nil {
			m.closeServer(reopened, TargetPrimary)
		}
		return nil
	}
	var stale *server
	if reopened != nil {
		stale, m.primary = m.primary, reopened
	}
	m.active = TargetPrimary
	m.mu.Unlock()

	if stale != nil {
		m.closeServer(stale, TargetPrimary)
	}
	if from == TargetSecondary {
		metrics.FailoverEventsTotal.WithLabelValues(string(EventFailback)).Inc()
		m.log.Info().Str("target", TargetPrimary.String()).Bool("reopened", reopened != nil).Msg("failed back")
	}
	return nil
}

// notify delivers one event, bounded by the notify timeout. It never
// fails.
func (m *Manager) notify(ctx context.Context, kind EventKind, from, to Target) {
	ev := Event{
		Kind:   kind,
		Source: m.source,
		Driver: m.driver,
		From:   from,
		To:     to,
		Time:   time.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, m.notifyTimeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("notifier panic: %v", p)
			}
		}()
		return m.notifier.Notify(ctx, ev)
	}()

	metrics.ObserveNotification(err)
	if err != nil {
		m.log.Warn().Err(err).Str("event", string(kind)).Msg("failover notification not delivered")
	}
}

// Stats returns a snapshot of the active pool.
func (m *Manager) Stats() (PoolStats, bool) {
	srv := m.current()
	if srv == nil {
		return PoolStats{}, false
	}
	return srv.pool.Stats(), true
}

// StartPoolMetrics publishes pool gauges every interval until ctx is done.
func (m *Manager) StartPoolMetrics(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.collectPoolStats()
			}
		}
	}()
}

func (m *Manager) collectPoolStats() {
	m.mu.RLock()
	primary, secondary := m.primary, m.secondary
	m.mu.RUnlock()

	for t, srv := range map[Target]*server{TargetPrimary: primary, TargetSecondary: secondary} {
		if srv == nil || srv.pool.IsClosed() {
			continue
		}
		s := srv.pool.Stats()
		metrics.SetPool(t.String(), s.MaxOpen, s.Open, s.InUse, s.Idle)
	}
}

// paramCounter returns the placeholder counter of the configured driver.
func (m *Manager) paramCounter() func(string) int {
	if drv, err := Lookup(m.driver); err == nil {
		if pc, ok := drv.(ParamCounter); ok {
			return pc.CountParams
		}
	}
	return CountQuestionParams
}

// Query returns a lazy executor for sql. Nothing touches the network
// until Execute or Results is called.
// Statements with more than MaxParams placeholders fail on execution.
func (m *Manager) Query(sql string) *Query {
	q := &Query{m: m, sql: sql}
	n := m.paramCounter()(sql)
	if n > MaxParams {
		q.excess, n = n, MaxParams
	}
	q.params = make([]any, n)
	q.bound = make([]bool, n)
	return q
}

// Exec binds args in order and executes sql as an update statement.
func (m *Manager) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	q := m.Query(sql)
	if err := q.BindAll(args...); err != nil {
		return 0, err
	}
	return q.Execute(ctx)
}

// QueryResults binds args in order and runs sql as a row-producing query.
// The caller must Close the returned Results.
func (m *Manager) QueryResults(ctx context.Context, sql string, args ...any) (*Results, error) {
	q := m.Query(sql)
	if err := q.BindAll(args...); err != nil {
		return nil, err
	}
	return q.Results(ctx)
}
