package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	audit "civitas/pkg/platform/audit"
)

type row struct {
	entry     audit.OutboxEntry
	event     audit.Event
	processed bool
}

// Outbox keeps audit events in process memory. It takes part in the
// in-memory unit of work through Snapshot.
type Outbox struct {
	mu   sync.RWMutex
	rows []row
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Append(_ context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rows = append(o.rows, row{
		entry: audit.OutboxEntry{
			ID:            uuid.NewString(),
			AggregateType: event.SubjectType,
			AggregateID:   event.Subject,
			EventType:     event.Action,
			Payload:       payload,
			CreatedAt:     event.Timestamp,
		},
		event: event,
	})
	return nil
}

// Events returns every appended event in order.
func (o *Outbox) Events() []audit.Event {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]audit.Event, len(o.rows))
	for i, r := range o.rows {
		out[i] = r.event
	}
	return out
}

func (o *Outbox) FetchPending(_ context.Context, limit int) ([]audit.OutboxEntry, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []audit.OutboxEntry
	for _, r := range o.rows {
		if r.processed {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, r.entry)
	}
	return out, nil
}

func (o *Outbox) MarkProcessed(_ context.Context, ids []string) error {
	done := make(map[string]bool, len(ids))
	for _, id := range ids {
		done[id] = true
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.rows {
		if done[o.rows[i].entry.ID] {
			o.rows[i].processed = true
		}
	}
	return nil
}

// Snapshot captures the current rows and returns a function restoring them.
func (o *Outbox) Snapshot() func() {
	o.mu.RLock()
	saved := append([]row(nil), o.rows...)
	o.mu.RUnlock()
	return func() {
		o.mu.Lock()
		o.rows = saved
		o.mu.Unlock()
	}
}
