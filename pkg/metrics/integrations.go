package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IntegrationMetrics tracks calls to outside providers: the carrier, the
// email API and search engine pings.
type IntegrationMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	emails   *prometheus.CounterVec
}

// NewIntegrationMetrics registers the integration metrics on reg.
func NewIntegrationMetrics(reg prometheus.Registerer) *IntegrationMetrics {
	if reg == nil {
		return &IntegrationMetrics{}
	}
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "integration_calls_total",
		Help:      "Outbound provider calls by provider, operation and outcome.",
	}, []string{"provider", "operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "integration_call_duration_seconds",
		Help:      "Latency of outbound provider calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider", "operation"})
	emails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_sent_total",
		Help:      "Email send attempts by type and status.",
	}, []string{"type", "status"})
	reg.MustRegister(calls, duration, emails)
	return &IntegrationMetrics{calls: calls, duration: duration, emails: emails}
}

// ObserveCall records one provider call.
func (m *IntegrationMetrics) ObserveCall(provider, operation string, started time.Time, err error) {
	if m == nil || m.calls == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.calls.WithLabelValues(normalizeLabel(provider), normalizeLabel(operation), outcome).Inc()
	m.duration.WithLabelValues(normalizeLabel(provider), normalizeLabel(operation)).Observe(time.Since(started).Seconds())
}

// IncEmail counts one email attempt.
func (m *IntegrationMetrics) IncEmail(emailType, status string) {
	if m == nil || m.emails == nil {
		return
	}
	m.emails.WithLabelValues(normalizeLabel(emailType), normalizeLabel(status)).Inc()
}
