// Package compliance provides a fail-closed audit publisher for protocol
// decisions, link changes and household changes.
//
// Emit writes synchronously through the store. With a postgres outbox store
// the write joins the caller's transaction; if it fails the caller must fail
// its operation so the change and its audit record commit together.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	audit "civitas/pkg/platform/audit"
	"civitas/pkg/requestcontext"
)

type Metrics struct {
	emitted  prometheus.Counter
	failures prometheus.Counter
	duration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		emitted: f.NewCounter(prometheus.CounterOpts{
			Name: "civitas_audit_compliance_events_total",
			Help: "Compliance audit events persisted.",
		}),
		failures: f.NewCounter(prometheus.CounterOpts{
			Name: "civitas_audit_compliance_failures_total",
			Help: "Compliance audit events that failed to persist.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "civitas_audit_compliance_persist_seconds",
			Help:    "Time to persist a compliance audit event.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Publisher emits compliance events with fail-closed semantics.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit validates and persists event. Timestamp and request ID are filled
// from ctx when absent.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	start := time.Now()
	if event.Action == "" {
		return fmt.Errorf("compliance event requires Action")
	}
	if event.Subject == "" {
		return fmt.Errorf("compliance event requires Subject")
	}
	event.Category = audit.CategoryCompliance
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if err := p.store.Append(ctx, event); err != nil {
		if p.metrics != nil {
			p.metrics.failures.Inc()
		}
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "compliance audit failed",
				"action", event.Action,
				"subject", event.Subject,
				"error", err,
			)
		}
		return fmt.Errorf("compliance audit persistence failed: %w", err)
	}

	if p.metrics != nil {
		p.metrics.duration.Observe(time.Since(start).Seconds())
		p.metrics.emitted.Inc()
	}
	return nil
}
