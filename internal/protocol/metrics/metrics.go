// Package metrics provides observability for the protocol module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks protocol lifecycle counts and critical path durations.
type Metrics struct {
	ProtocolsCreated  prometheus.Counter
	ReceiptsConfirmed prometheus.Counter
	ProtocolsRouted   prometheus.Counter
	NumberConflicts   prometheus.Counter
	SignatureFailures prometheus.Counter
	CreateDuration    prometheus.Histogram
	ListDuration      prometheus.Histogram
}

// New creates a Metrics instance with all protocol module metrics registered.
func New() *Metrics {
	return &Metrics{
		ProtocolsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sipro_protocols_created_total",
			Help: "Total number of protocols created",
		}),
		ReceiptsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sipro_receipts_confirmed_total",
			Help: "Total number of receipt confirmations",
		}),
		ProtocolsRouted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sipro_protocols_routed_total",
			Help: "Total number of onward routings",
		}),
		NumberConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sipro_number_conflicts_total",
			Help: "Protocol number collisions that triggered a regeneration retry",
		}),
		SignatureFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sipro_signature_failures_total",
			Help: "Receipt confirmations rejected for a credential mismatch",
		}),
		CreateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sipro_protocol_create_duration_seconds",
			Help:    "Duration of protocol creation including number assignment",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ListDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sipro_protocol_list_duration_seconds",
			Help:    "Duration of protocol list queries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveCreate records the duration of a Create operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	m.CreateDuration.Observe(time.Since(start).Seconds())
}

// ObserveList records the duration of a List operation.
func (m *Metrics) ObserveList(start time.Time) {
	m.ListDuration.Observe(time.Since(start).Seconds())
}
