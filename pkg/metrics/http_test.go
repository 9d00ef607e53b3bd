package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsLabelsByRoute(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())
	m.Observe(http.MethodGet, "/api/v1/products/{slug}", http.StatusOK, 20*time.Millisecond)
	m.Observe(http.MethodGet, "/api/v1/products/{slug}", http.StatusOK, 30*time.Millisecond)
	m.Observe(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/v1/products/{slug}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "unmatched", "404")))
	assert.InDelta(t, 0.05, histogramSum(t, m.duration.WithLabelValues(http.MethodGet, "/api/v1/products/{slug}")), 1e-9)
}

func TestNilHTTPMetricsIsSafe(t *testing.T) {
	var m *HTTPMetrics
	m.Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	NewHTTPMetrics(nil).Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)
}
