package tx

import (
	"context"
	"sync"
	"time"

	dErrors "civitas/pkg/domain-errors"
)

// Snapshotter is an in-memory store that can take part in a Memory unit of
// work. Snapshot captures the current state and returns a function that
// restores it.
type Snapshotter interface {
	Snapshot() (restore func())
}

const defaultMemoryTxTimeout = 5 * time.Second

type memoryTxKey struct{}

// Memory is the in-memory unit of work. Transactions are serialized by a
// single lock; on error every participant is restored to the state it had
// when the transaction began. Readers outside a transaction may observe
// uncommitted writes.
type Memory struct {
	mu           sync.Mutex
	participants []Snapshotter
	timeout      time.Duration
}

// NewMemory builds a unit of work over participants. A zero timeout uses
// the default.
func NewMemory(timeout time.Duration, participants ...Snapshotter) *Memory {
	return &Memory{participants: participants, timeout: timeout}
}

// Join adds participants. It must be called before the first transaction.
func (m *Memory) Join(participants ...Snapshotter) {
	m.participants = append(m.participants, participants...)
}

func (m *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memoryTxKey{}) == m {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := m.timeout
	if timeout == 0 {
		timeout = defaultMemoryTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	restores := make([]func(), 0, len(m.participants))
	for _, p := range m.participants {
		restores = append(restores, p.Snapshot())
	}
	if err := fn(context.WithValue(ctx, memoryTxKey{}, m)); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		return err
	}
	return nil
}
