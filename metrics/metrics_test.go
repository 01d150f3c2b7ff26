package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveQuery(t *testing.T) {
	before := testutil.ToFloat64(QueriesTotal.WithLabelValues("exec", "failure"))

	ObserveQuery("exec", time.Now(), errors.New("boom"))
	ObserveQuery("exec", time.Now(), nil)

	assert.Equal(t, before+1, testutil.ToFloat64(QueriesTotal.WithLabelValues("exec", "failure")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(QueriesTotal.WithLabelValues("exec", "success")), 1.0)
}

func TestObserveNotification(t *testing.T) {
	before := testutil.ToFloat64(NotificationsTotal.WithLabelValues("failure"))
	ObserveNotification(errors.New("unreachable"))
	assert.Equal(t, before+1, testutil.ToFloat64(NotificationsTotal.WithLabelValues("failure")))
}

func TestSetPool(t *testing.T) {
	SetPool("secondary", 20, 5, 3, 2)
	assert.Equal(t, 20.0, testutil.ToFloat64(PoolMaxConns.WithLabelValues("secondary")))
	assert.Equal(t, 5.0, testutil.ToFloat64(PoolOpenConns.WithLabelValues("secondary")))
	assert.Equal(t, 3.0, testutil.ToFloat64(PoolInUseConns.WithLabelValues("secondary")))
	assert.Equal(t, 2.0, testutil.ToFloat64(PoolIdleConns.WithLabelValues("secondary")))

	ResetPool("secondary")
	assert.Equal(t, 0.0, testutil.ToFloat64(PoolOpenConns.WithLabelValues("secondary")))
}

func TestHandler(t *testing.T) {
	FailoverEventsTotal.WithLabelValues("failover").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "sqlhelper_failover_events_total"))
}
