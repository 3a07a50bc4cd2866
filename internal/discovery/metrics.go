package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricRequestsTotal   = "discovery_requests_total"
	MetricRequestDuration = "discovery_request_duration_seconds"
	MetricPoolSize        = "discovery_pool_size"
)

// Request outcomes recorded on MetricRequestsTotal.
const (
	OutcomeOK           = "ok"
	OutcomeNotFound     = "not_found"
	OutcomeUnauthorized = "unauthorized"
	OutcomeTransient    = "transient_io"
	OutcomeCanceled     = "canceled"
)

// Metrics contains Prometheus metrics for the ranking pipeline.
type Metrics struct {
	requests *prometheus.CounterVec
	duration prometheus.Histogram
	poolSize prometheus.Histogram
}

// NewMetrics creates unregistered discovery metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRequestsTotal,
			Help: "Total number of scored profile requests by outcome",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRequestDuration,
			Help:    "Histogram of scored profile request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}),
		poolSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricPoolSize,
			Help:    "Histogram of candidate pool sizes per request",
			Buckets: []float64{0, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all Prometheus collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requests,
		m.duration,
		m.poolSize,
	}
}

func (m *Metrics) observe(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.duration.Observe(seconds)
}

func (m *Metrics) observePool(size int) {
	if m == nil {
		return
	}
	m.poolSize.Observe(float64(size))
}
