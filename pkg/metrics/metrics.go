// Package metrics exposes the gateway's Prometheus counters and gauges at
// /admin/api/metrics, grounded on the teacher's telemetry/metrics wiring
// but rescoped to the signals SPEC_FULL.md §11 calls for: request outcomes,
// provider attempt outcomes, and the health tracker's penalty state.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors, registered against a
// private registry so the exposed endpoint carries only gateway signals.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal       *prometheus.CounterVec
	AttemptsTotal        *prometheus.CounterVec
	AttemptDuration       *prometheus.HistogramVec
	ProviderFailuresTotal *prometheus.CounterVec
	ProviderEffectiveWeight *prometheus.GaugeVec
}

// New creates and registers the gateway's metric collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Inbound inference requests by group and final status.",
		}, []string{"group", "status"}),
		AttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_upstream_attempts_total",
			Help: "Upstream attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		AttemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_upstream_attempt_duration_seconds",
			Help:    "Upstream attempt duration by provider.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		ProviderFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_provider_failures_total",
			Help: "Lifetime aggregate failure counter by provider.",
		}, []string{"provider"}),
		ProviderEffectiveWeight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_provider_effective_weight",
			Help: "Last-observed effective routing weight by provider.",
		}, []string{"provider"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.AttemptsTotal,
		m.AttemptDuration,
		m.ProviderFailuresTotal,
		m.ProviderEffectiveWeight,
	)
	return m
}

// Handler returns the HTTP handler that serves this registry's metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one inbound request's final outcome.
func (m *Metrics) ObserveRequest(group string, status int) {
	m.RequestsTotal.WithLabelValues(group, statusBucket(status)).Inc()
}

// ObserveAttempt records one upstream attempt's outcome and duration.
func (m *Metrics) ObserveAttempt(provider string, success bool, durationSeconds float64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.AttemptsTotal.WithLabelValues(provider, outcome).Inc()
	m.AttemptDuration.WithLabelValues(provider).Observe(durationSeconds)
}

// ObserveFailure bumps a provider's lifetime failure counter.
func (m *Metrics) ObserveFailure(provider string) {
	m.ProviderFailuresTotal.WithLabelValues(provider).Inc()
}

// SetEffectiveWeight records a provider's effective weight at selection time.
func (m *Metrics) SetEffectiveWeight(provider string, weight float64) {
	m.ProviderEffectiveWeight.WithLabelValues(provider).Set(weight)
}

func statusBucket(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "other"
	}
}
