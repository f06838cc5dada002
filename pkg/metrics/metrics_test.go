package metrics

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestUpstreamMetricsExportsCounterAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewUpstreamMetrics(reg)

	m.ObserveUpstream("geocoding", OutcomeSuccess, 250*time.Millisecond)
	m.ObserveUpstream("geocoding", OutcomeSuccess, 100*time.Millisecond)
	m.ObserveUpstream("viacep", OutcomeUnavailable, 8*time.Second)

	require.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("geocoding", OutcomeSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("viacep", OutcomeUnavailable)))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	sum, err := fetchHistogramSum(mfs, "upstream_request_duration_seconds", "service", "viacep")
	require.NoError(t, err)
	require.InDelta(t, 8.0, sum, 0.001)
}

func TestUpstreamMetricsNilSafe(t *testing.T) {
	var m *UpstreamMetrics
	m.ObserveUpstream("geocoding", OutcomeSuccess, time.Second)
	NewUpstreamMetrics(nil).ObserveUpstream("geocoding", OutcomeSuccess, time.Second)
}

func TestUpstreamMetricsNormalizesEmptyLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewUpstreamMetrics(reg)
	m.ObserveUpstream("", "", time.Millisecond)
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("unknown", "unknown")))
}

func TestHTTPMetricsStart(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	done := m.Start()
	require.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))
	done(http.MethodGet, "/api/contacts", http.StatusOK)
	require.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/contacts", "200")))

	NewHTTPMetrics(nil).Start()(http.MethodGet, "/", http.StatusOK)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
