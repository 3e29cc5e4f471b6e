package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("dailyprompt", reg)

	m.Resolutions.WithLabelValues("queue").Inc()
	m.Resolutions.WithLabelValues("queue").Inc()
	m.Conflicts.WithLabelValues("usage").Inc()
	m.DuplicatesReconciled.Add(2)
	m.ObserveResolve(3 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Resolutions.WithLabelValues("queue")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Conflicts.WithLabelValues("usage")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DuplicatesReconciled))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ResolveLatency))
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("dailyprompt", reg)
	m.ResolveErrors.Inc()

	rec := httptest.NewRecorder()
	MetricsHandler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "dailyprompt_resolve_errors_total 1"))
}
