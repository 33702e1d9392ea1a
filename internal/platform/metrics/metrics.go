package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-wide Prometheus metrics shared by infrastructure
// components (sequence counters, directory client, outbox relay).
// All methods are safe on a nil receiver so components can run unobserved.
type Metrics struct {
	NumberAllocations     *prometheus.CounterVec
	NumberAllocLatency    *prometheus.HistogramVec
	DirectoryLookups      *prometheus.CounterVec
	OutboxPublished       prometheus.Counter
	OutboxPublishFailures prometheus.Counter
	HTTPRequestDuration   *prometheus.HistogramVec
	RateLimited           *prometheus.CounterVec
}

// New creates and registers the metrics with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		NumberAllocations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civitas_number_allocations_total",
			Help: "Tracking numbers allocated, by counter backend",
		}, []string{"backend"}),
		NumberAllocLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "civitas_number_allocation_duration_seconds",
			Help:    "Latency of counter increments, by backend",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"backend"}),
		DirectoryLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civitas_directory_lookups_total",
			Help: "Citizen directory lookups, by outcome",
		}, []string{"outcome"}),
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "civitas_outbox_published_total",
			Help: "Outbox rows published to Kafka",
		}),
		OutboxPublishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "civitas_outbox_publish_failures_total",
			Help: "Outbox publish attempts that failed",
		}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "civitas_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civitas_rate_limited_total",
			Help: "Requests rejected by the anonymous endpoint limiter, by class",
		}, []string{"class"}),
	}
}

// ObserveAllocation records one counter increment. Call with the start time.
func (m *Metrics) ObserveAllocation(backend string, start time.Time) {
	if m == nil {
		return
	}
	m.NumberAllocations.WithLabelValues(backend).Inc()
	m.NumberAllocLatency.WithLabelValues(backend).Observe(time.Since(start).Seconds())
}

// IncDirectoryLookup records a directory lookup outcome (hit, miss, error, fallback).
func (m *Metrics) IncDirectoryLookup(outcome string) {
	if m == nil {
		return
	}
	m.DirectoryLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncOutboxPublished(n int) {
	if m == nil {
		return
	}
	m.OutboxPublished.Add(float64(n))
}

func (m *Metrics) IncOutboxFailure() {
	if m == nil {
		return
	}
	m.OutboxPublishFailures.Inc()
}

// ObserveHTTP records request latency for a chi route pattern.
func (m *Metrics) ObserveHTTP(route, method string, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncRateLimited(class string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(class).Inc()
}
