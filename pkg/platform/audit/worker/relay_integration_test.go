//go:build integration

package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "civitas/pkg/platform/audit"
	auditpg "civitas/pkg/platform/audit/store/postgres"
	"civitas/pkg/platform/audit/worker"
	"civitas/pkg/testutil/containers"
)

func TestRelayPublishesOutboxToKafka(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	mgr := containers.GetManager()
	pg := mgr.GetPostgres(t)
	broker := mgr.GetRedpanda(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	require.NoError(t, pg.TruncateTables(ctx, "outbox"))

	const topic = "civitas.audit.relay-test"
	producer, err := kgo.NewClient(kgo.SeedBrokers(broker.Brokers...))
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, worker.EnsureTopic(ctx, producer, topic, 1, 1))
	require.NoError(t, worker.EnsureTopic(ctx, producer, topic, 1, 1), "second call tolerates an existing topic")

	outbox := auditpg.New(pg.DB)
	base := time.Now().Truncate(time.Millisecond)
	for i, action := range []string{"protocol_submitted", "protocol_approved"} {
		require.NoError(t, outbox.Append(ctx, audit.Event{
			Action:         action,
			SubjectType:    "protocol",
			Subject:        "5f1c8d9e-0000-4000-8000-000000000001",
			TrackingNumber: "PROT-2025-00001",
			Timestamp:      base.Add(time.Duration(i) * time.Millisecond),
		}))
	}

	relay := worker.NewRelay(outbox, producer, topic)
	n, err := relay.PublishOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pending, err := outbox.FetchPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	var records []*kgo.Record
	for len(records) < 2 {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, ctx.Err(), "timed out waiting for relayed events")
		fetches.EachRecord(func(r *kgo.Record) {
			records = append(records, r)
		})
	}

	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, "5f1c8d9e-0000-4000-8000-000000000001", string(r.Key))
	}
	assert.Equal(t, "protocol_submitted", header(records[0], "event_type"))
	assert.Equal(t, "protocol_approved", header(records[1], "event_type"))
}

func header(r *kgo.Record, key string) string {
	for _, h := range r.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
