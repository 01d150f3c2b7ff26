// Package metrics exposes Prometheus collectors for connection pools,
// statement execution and failover events.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Statement metrics
var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlhelper_queries_total",
			Help: "Total number of executed statements.",
		},
		[]string{"kind", "status"}, // kind: "exec", "query"; status: "success", "failure"
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlhelper_query_duration_seconds",
			Help:    "Time from borrowing a connection to the end of execution.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"kind"},
	)
)

// Failover metrics
var (
	FailoverEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlhelper_failover_events_total",
			Help: "Total number of failover and failback transitions.",
		},
		[]string{"event"}, // event: "failover", "failback"
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlhelper_notifications_total",
			Help: "Failover notifications by delivery outcome.",
		},
		[]string{"status"},
	)
)

// Connection pool metrics
var (
	PoolMaxConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sqlhelper_pool_max_conns",
			Help: "Maximum number of connections in the pool.",
		},
		[]string{"target"}, // target: "primary", "secondary"
	)
	PoolOpenConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sqlhelper_pool_open_conns",
			Help: "Number of established connections in the pool.",
		},
		[]string{"target"},
	)
	PoolInUseConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sqlhelper_pool_in_use_conns",
			Help: "Number of connections currently borrowed.",
		},
		[]string{"target"},
	)
	PoolIdleConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sqlhelper_pool_idle_conns",
			Help: "Number of idle connections in the pool.",
		},
		[]string{"target"},
	)
)

// ObserveQuery records one statement execution.
func ObserveQuery(kind string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	QueriesTotal.WithLabelValues(kind, status).Inc()
	QueryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// ObserveNotification records the outcome of one failover notification.
func ObserveNotification(err error) {
	if err != nil {
		NotificationsTotal.WithLabelValues("failure").Inc()
		return
	}
	NotificationsTotal.WithLabelValues("success").Inc()
}

// SetPool publishes a pool snapshot for target.
func SetPool(target string, maxOpen, open, inUse, idle int) {
	PoolMaxConns.WithLabelValues(target).Set(float64(maxOpen))
	PoolOpenConns.WithLabelValues(target).Set(float64(open))
	PoolInUseConns.WithLabelValues(target).Set(float64(inUse))
	PoolIdleConns.WithLabelValues(target).Set(float64(idle))
}

// ResetPool clears the gauges of a pool that has been closed.
func ResetPool(target string) {
	SetPool(target, 0, 0, 0, 0)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
