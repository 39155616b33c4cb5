// Package metrics holds the Prometheus instruments of the audit pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit pipeline. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Classified entries by action
	Entries *prometheus.CounterVec

	// Entries no handler was registered for
	Unhandled prometheus.Counter

	// Handler failures by action and kind: shape_mismatch, not_implemented,
	// persistence, timeout, other
	HandlerFailures *prometheus.CounterVec

	// Discord deliveries by result: delivered, delivery_failed
	Deliveries *prometheus.CounterVec

	// Wall time of one entry from classification to delivery
	EntryDuration prometheus.Histogram
}

// New registers the pipeline metrics on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Entries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dragonlog_entries_total",
			Help: "Audit entries received, by action",
		}, []string{"action"}),

		Unhandled: f.NewCounter(prometheus.CounterOpts{
			Name: "dragonlog_entries_unhandled_total",
			Help: "Audit entries with no registered handler",
		}),

		HandlerFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dragonlog_handler_failures_total",
			Help: "Handler failures by action and kind",
		}, []string{"action", "kind"}),

		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dragonlog_deliveries_total",
			Help: "Notification deliveries to Discord log channels by result",
		}, []string{"result"}),

		EntryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dragonlog_entry_duration_seconds",
			Help:    "Duration of processing one audit entry",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

func (m *Metrics) IncEntry(action string) {
	if m != nil {
		m.Entries.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) IncUnhandled() {
	if m != nil {
		m.Unhandled.Inc()
	}
}

// IncFailure records a handler failure of the given kind.
func (m *Metrics) IncFailure(action, kind string) {
	if m != nil {
		m.HandlerFailures.WithLabelValues(action, kind).Inc()
	}
}

func (m *Metrics) IncDelivery(result string) {
	if m != nil {
		m.Deliveries.WithLabelValues(result).Inc()
	}
}

// ObserveEntry records the total processing time of one entry.
func (m *Metrics) ObserveEntry(d time.Duration) {
	if m != nil {
		m.EntryDuration.Observe(d.Seconds())
	}
}
