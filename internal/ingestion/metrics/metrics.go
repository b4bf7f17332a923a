package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for partition imports.
type Metrics struct {
	ImportsTotal    *prometheus.CounterVec
	RecordsImported *prometheus.CounterVec
	ImportWarnings  prometheus.Counter
	ImportDuration  prometheus.Histogram
	EventsDropped   prometheus.Counter
}

// New registers the ingestion metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the ingestion metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ImportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idgov_imports_total",
			Help: "Partition imports by outcome",
		}, []string{"outcome"}),
		RecordsImported: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idgov_records_imported_total",
			Help: "Identity records written by successful imports, by partition kind",
		}, []string{"partition"}),
		ImportWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "idgov_import_warnings_total",
			Help: "Rows skipped or repaired during parsing",
		}),
		ImportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "idgov_import_duration_seconds",
			Help:    "Duration of parse, replace and provenance recording",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "idgov_import_events_dropped_total",
			Help: "Import completion events that could not be published",
		}),
	}
}

// ObserveImport records the outcome of one import. Call with time.Now() at the start.
func (m *Metrics) ObserveImport(outcome string, start time.Time) {
	m.ImportsTotal.WithLabelValues(outcome).Inc()
	m.ImportDuration.Observe(time.Since(start).Seconds())
}

// AddRecords counts records written; partition is "hr" or "target".
func (m *Metrics) AddRecords(partition string, n int) {
	m.RecordsImported.WithLabelValues(partition).Add(float64(n))
}

func (m *Metrics) AddWarnings(n int) {
	m.ImportWarnings.Add(float64(n))
}

func (m *Metrics) IncrementEventsDropped() {
	m.EventsDropped.Inc()
}
