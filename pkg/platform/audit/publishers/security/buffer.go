// Package security publishes security audit events asynchronously. Denied
// actions and feedback-code guessing are buffered in a bounded ring and
// flushed to the store by a background loop, so a slow store never blocks
// a request.
package security

import (
	"sync"

	audit "civitas/pkg/platform/audit"
)

// RingBuffer is a bounded, thread-safe FIFO. When full the oldest event is
// dropped.
type RingBuffer struct {
	mu      sync.Mutex
	events  []audit.Event
	head    int
	count   int
	dropped int64
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1024
	}
	return &RingBuffer{events: make([]audit.Event, capacity)}
}

func (b *RingBuffer) Enqueue(event audit.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	capacity := len(b.events)
	if b.count == capacity {
		b.head = (b.head + 1) % capacity
		b.count--
		b.dropped++
	}
	b.events[(b.head+b.count)%capacity] = event
	b.count++
}

// DequeueBatch removes up to n events, oldest first.
func (b *RingBuffer) DequeueBatch(n int) []audit.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > b.count {
		n = b.count
	}
	if n == 0 {
		return nil
	}
	out := make([]audit.Event, n)
	for i := range out {
		out[i] = b.events[b.head]
		b.events[b.head] = audit.Event{}
		b.head = (b.head + 1) % len(b.events)
	}
	b.count -= n
	return out
}

func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
