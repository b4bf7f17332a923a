package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the platform-level HTTP metrics.
type Metrics struct {
	RequestLatency *prometheus.HistogramVec
	RequestsTotal  *prometheus.CounterVec
	PanicsTotal    prometheus.Counter
}

// New creates and registers the platform metrics.
func New() *Metrics {
	return &Metrics{
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idgov_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route pattern and method",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idgov_http_requests_total",
			Help: "Total HTTP requests by route pattern, method and status class",
		}, []string{"route", "method", "status"}),
		PanicsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idgov_http_panics_total",
			Help: "Total number of recovered handler panics",
		}),
	}
}

// ObserveRequest records latency and count for one finished request.
func (m *Metrics) ObserveRequest(route, method, statusClass string, seconds float64) {
	m.RequestLatency.WithLabelValues(route, method).Observe(seconds)
	m.RequestsTotal.WithLabelValues(route, method, statusClass).Inc()
}

// IncrementPanics increments the recovered panic counter by 1.
func (m *Metrics) IncrementPanics() {
	m.PanicsTotal.Inc()
}
