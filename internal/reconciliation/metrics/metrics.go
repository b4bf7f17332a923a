package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for dashboard computation.
type Metrics struct {
	DashboardDuration *prometheus.HistogramVec
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	CacheErrors       prometheus.Counter
	SharedComputes    prometheus.Counter
	ComplianceIndex   *prometheus.GaugeVec
	DivergentRecords  *prometheus.GaugeVec
}

// New registers the reconciliation metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the reconciliation metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DashboardDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idgov_dashboard_compute_duration_seconds",
			Help:    "Duration of snapshot load, reconciliation and aggregation by scope kind",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"scope_kind"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "idgov_dashboard_cache_hits_total",
			Help: "Dashboard documents served from the cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "idgov_dashboard_cache_misses_total",
			Help: "Dashboard requests that had to compute the document",
		}),
		CacheErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "idgov_dashboard_cache_errors_total",
			Help: "Cache read or write failures that were bypassed",
		}),
		SharedComputes: factory.NewCounter(prometheus.CounterOpts{
			Name: "idgov_dashboard_shared_computes_total",
			Help: "Dashboard requests satisfied by a concurrent identical computation",
		}),
		ComplianceIndex: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "idgov_compliance_index_percent",
			Help: "Last computed compliance index by scope",
		}, []string{"scope"}),
		DivergentRecords: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "idgov_divergent_records",
			Help: "Last computed number of unique divergent records and gaps by scope",
		}, []string{"scope"}),
	}
}

// ObserveCompute records one document computation. Call with time.Now() at the start.
func (m *Metrics) ObserveCompute(scopeKind string, start time.Time) {
	m.DashboardDuration.WithLabelValues(scopeKind).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementCacheHit() {
	m.CacheHits.Inc()
}

func (m *Metrics) IncrementCacheMiss() {
	m.CacheMisses.Inc()
}

func (m *Metrics) IncrementCacheError() {
	m.CacheErrors.Inc()
}

func (m *Metrics) IncrementSharedCompute() {
	m.SharedComputes.Inc()
}

// SetScopeFigures publishes the headline numbers of the latest document for scope.
func (m *Metrics) SetScopeFigures(scope string, compliance float64, divergent int) {
	m.ComplianceIndex.WithLabelValues(scope).Set(compliance)
	m.DivergentRecords.WithLabelValues(scope).Set(float64(divergent))
}
