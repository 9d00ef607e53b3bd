package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsExportsRunsAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	job := "abandoned_carts"
	m.ObserveDuration(job, 250*time.Millisecond)
	m.IncSuccess(job)
	m.IncFailure(job)
	m.IncFailure(job)
	m.IncSkipped()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(job, "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues(job, "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped))
	assert.Greater(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues(job)), 0.0)
	assert.InDelta(t, 0.25, histogramSum(t, m.duration.WithLabelValues(job)), 1e-9)

	count, err := testutil.GatherAndCount(reg, "storefront_cron_job_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCronJobMetricsLabelsBlankJobs(t *testing.T) {
	m := NewCronJobMetrics(prometheus.NewRegistry())
	m.IncFailure("")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("unknown", "failure")))
}

func TestNilCronJobMetricsIsSafe(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveDuration("x", time.Second)
	m.IncSuccess("x")
	m.IncFailure("x")
	m.IncSkipped()
	NewCronJobMetrics(nil).IncSkipped()
}

// histogramSum reads the sample sum of a single histogram child.
func histogramSum(t *testing.T, obs prometheus.Observer) float64 {
	t.Helper()
	metric, ok := obs.(prometheus.Metric)
	require.True(t, ok, "observer is not a metric")
	var out dto.Metric
	require.NoError(t, metric.Write(&out))
	return out.GetHistogram().GetSampleSum()
}
