package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Upstream outcomes recorded for every provider call.
const (
	OutcomeSuccess     = "success"
	OutcomeNotFound    = "not_found"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
)

// UpstreamMetrics records calls made to external providers.
type UpstreamMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// NewUpstreamMetrics registers the upstream metrics on the provided registerer.
func NewUpstreamMetrics(reg prometheus.Registerer) *UpstreamMetrics {
	if reg == nil {
		return &UpstreamMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_request_duration_seconds",
		Help:    "Duration of upstream provider calls in seconds, retries included.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 30},
	}, []string{"service", "outcome"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_requests_total",
		Help: "Upstream provider calls by outcome.",
	}, []string{"service", "outcome"})
	reg.MustRegister(duration, requests)
	return &UpstreamMetrics{
		duration: duration,
		requests: requests,
	}
}

// ObserveUpstream records one logical call to service.
func (m *UpstreamMetrics) ObserveUpstream(service, outcome string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	service, outcome = normalizeLabel(service), normalizeLabel(outcome)
	m.duration.WithLabelValues(service, outcome).Observe(duration.Seconds())
	m.requests.WithLabelValues(service, outcome).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
