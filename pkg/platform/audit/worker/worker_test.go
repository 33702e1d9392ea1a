package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "civitas/pkg/platform/audit"
	"civitas/pkg/platform/audit/store/memory"
)

type fakeProducer struct {
	produced []*kgo.Record
	failKey  string
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		var err error
		if string(r.Key) == p.failKey {
			err = errors.New("broker unavailable")
		} else {
			p.produced = append(p.produced, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: err})
	}
	return results
}

type counter struct {
	published int
	failures  int
}

func (c *counter) IncOutboxPublished(n int) { c.published += n }
func (c *counter) IncOutboxFailure()        { c.failures++ }

func TestPublishOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes keyed by aggregate and marks rows", func(t *testing.T) {
		outbox := memory.NewOutbox()
		require.NoError(t, outbox.Append(ctx, audit.Event{Action: "protocol_submitted", SubjectType: "protocol", Subject: "p-1"}))
		require.NoError(t, outbox.Append(ctx, audit.Event{Action: "protocol_approved", SubjectType: "protocol", Subject: "p-1"}))
		producer := &fakeProducer{}
		obs := &counter{}
		relay := NewRelay(outbox, producer, "civitas.audit", WithObserver(obs))

		n, err := relay.PublishOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		require.Len(t, producer.produced, 2)
		assert.Equal(t, "p-1", string(producer.produced[0].Key))
		assert.Equal(t, "civitas.audit", producer.produced[0].Topic)
		assert.Equal(t, 2, obs.published)

		pending, err := outbox.FetchPending(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("failed rows stay pending", func(t *testing.T) {
		outbox := memory.NewOutbox()
		require.NoError(t, outbox.Append(ctx, audit.Event{Action: "a", Subject: "ok"}))
		require.NoError(t, outbox.Append(ctx, audit.Event{Action: "b", Subject: "bad"}))
		obs := &counter{}
		relay := NewRelay(outbox, &fakeProducer{failKey: "bad"}, "t", WithObserver(obs))

		n, err := relay.PublishOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, 1, obs.failures)

		pending, err := outbox.FetchPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "bad", pending[0].AggregateID)
	})

	t.Run("all failed returns the error", func(t *testing.T) {
		outbox := memory.NewOutbox()
		require.NoError(t, outbox.Append(ctx, audit.Event{Action: "a", Subject: "bad"}))
		relay := NewRelay(outbox, &fakeProducer{failKey: "bad"}, "t")
		_, err := relay.PublishOnce(ctx)
		assert.Error(t, err)
	})

	t.Run("empty outbox is a no-op", func(t *testing.T) {
		n, err := NewRelay(memory.NewOutbox(), &fakeProducer{}, "t").PublishOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
