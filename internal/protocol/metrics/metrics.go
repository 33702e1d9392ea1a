package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the protocol lifecycle.
// Tracks submissions, transitions, number collisions and dispatch latency.
type Metrics struct {
	Submitted         *prometheus.CounterVec
	Transitions       *prometheus.CounterVec
	NumberCollisions  *prometheus.CounterVec
	DispatchDuration  *prometheus.HistogramVec
	DocumentsReviewed *prometheus.CounterVec
}

// New creates a new Metrics instance registered with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civitas_protocols_submitted_total",
			Help: "Protocols submitted, by module type",
		}, []string{"module"}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civitas_protocol_transitions_total",
			Help: "Protocol status transitions",
		}, []string{"from", "to"}),
		NumberCollisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civitas_number_collisions_total",
			Help: "Submissions retried after a tracking number collision",
		}, []string{"module"}),
		DispatchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "civitas_dispatch_duration_seconds",
			Help:    "Duration of module handler execution",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"module", "entity"}),
		DocumentsReviewed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civitas_documents_reviewed_total",
			Help: "Document review decisions",
		}, []string{"decision"}),
	}
}

func (m *Metrics) IncSubmitted(moduleType string) {
	if m == nil {
		return
	}
	m.Submitted.WithLabelValues(moduleType).Inc()
}

func (m *Metrics) IncTransition(from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncCollision(moduleType string) {
	if m == nil {
		return
	}
	m.NumberCollisions.WithLabelValues(moduleType).Inc()
}

// ObserveDispatch records handler latency. It matches the registry's
// observer signature once the key is split.
func (m *Metrics) ObserveDispatch(moduleType, entity string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DispatchDuration.WithLabelValues(moduleType, entity).Observe(elapsed.Seconds())
}

func (m *Metrics) IncDocumentReviewed(decision string) {
	if m == nil {
		return
	}
	m.DocumentsReviewed.WithLabelValues(decision).Inc()
}
