package security

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	audit "civitas/pkg/platform/audit"
	"civitas/pkg/requestcontext"
)

const defaultFlushInterval = time.Second

// Publisher buffers security events and flushes them in the background.
type Publisher struct {
	store    audit.Store
	buffer   *RingBuffer
	interval time.Duration
	logger   *slog.Logger

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithCapacity(n int) Option {
	return func(p *Publisher) {
		p.buffer = NewRingBuffer(n)
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.interval = d
		}
	}
}

// New starts the flush loop. Call Close to drain and stop it.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:    store,
		buffer:   NewRingBuffer(0),
		interval: defaultFlushInterval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.loop()
	return p
}

// Emit never blocks and never fails.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) {
	event.Category = audit.CategorySecurity
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	p.buffer.Enqueue(event)
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Publisher) loop() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			p.flush()
			return
		case <-p.wake:
			p.flush()
		case <-ticker.C:
			p.flush()
		}
	}
}

func (p *Publisher) flush() {
	ctx := context.Background()
	for {
		batch := p.buffer.DequeueBatch(64)
		if len(batch) == 0 {
			return
		}
		for _, e := range batch {
			if err := p.store.Append(ctx, e); err != nil {
				p.logger.Warn("security audit write failed", "action", e.Action, "error", err)
			}
		}
	}
}

// Close drains the buffer and stops the loop.
func (p *Publisher) Close() error {
	p.once.Do(func() {
		close(p.stop)
	})
	<-p.done
	return nil
}

// Dropped reports events lost to buffer overflow.
func (p *Publisher) Dropped() int64 {
	return p.buffer.Dropped()
}
