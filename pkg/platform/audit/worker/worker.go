// Package worker relays outbox rows to Kafka.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "civitas/pkg/platform/audit"
)

// Source is the outbox side of the relay.
type Source interface {
	FetchPending(ctx context.Context, limit int) ([]audit.OutboxEntry, error)
	MarkProcessed(ctx context.Context, ids []string) error
}

// Producer is satisfied by *kgo.Client.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Observer receives relay outcomes.
type Observer interface {
	IncOutboxPublished(n int)
	IncOutboxFailure()
}

// Relay polls the outbox and publishes each row keyed by its aggregate, so
// events of one protocol stay ordered within a partition. Delivery is
// at-least-once: rows are marked only after the broker acknowledged them.
type Relay struct {
	source    Source
	producer  Producer
	topic     string
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
	observer  Observer
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithObserver(o Observer) Option {
	return func(r *Relay) {
		r.observer = o
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func NewRelay(source Source, producer Producer, topic string, opts ...Option) *Relay {
	r := &Relay{
		source:    source,
		producer:  producer,
		topic:     topic,
		batchSize: 100,
		interval:  2 * time.Second,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run publishes until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		for {
			n, err := r.PublishOnce(ctx)
			if err != nil {
				r.logger.WarnContext(ctx, "outbox relay failed", "error", err)
				break
			}
			if n < r.batchSize {
				break
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// PublishOnce relays one batch and returns how many rows were published.
func (r *Relay) PublishOnce(ctx context.Context) (int, error) {
	entries, err := r.source.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	records := make([]*kgo.Record, len(entries))
	ids := make(map[*kgo.Record]string, len(entries))
	for i, e := range entries {
		records[i] = &kgo.Record{
			Topic: r.topic,
			Key:   []byte(e.AggregateID),
			Value: e.Payload,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(e.EventType)},
				{Key: "aggregate_type", Value: []byte(e.AggregateType)},
				{Key: "outbox_id", Value: []byte(e.ID)},
			},
			Timestamp: e.CreatedAt,
		}
		ids[records[i]] = e.ID
	}

	results := r.producer.ProduceSync(ctx, records...)
	published := make([]string, 0, len(entries))
	for _, res := range results {
		if res.Err == nil {
			published = append(published, ids[res.Record])
		}
	}
	if err := results.FirstErr(); err != nil {
		if r.observer != nil {
			r.observer.IncOutboxFailure()
		}
		r.logger.WarnContext(ctx, "outbox publish partially failed", "published", len(published), "batch", len(entries), "error", err)
	}
	if len(published) == 0 {
		return 0, results.FirstErr()
	}
	if err := r.source.MarkProcessed(ctx, published); err != nil {
		return 0, fmt.Errorf("mark outbox processed: %w", err)
	}
	if r.observer != nil {
		r.observer.IncOutboxPublished(len(published))
	}
	return len(published), nil
}

// EnsureTopic creates topic when it does not exist.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replication int16) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}
