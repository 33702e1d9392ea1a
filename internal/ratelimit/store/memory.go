package store

import (
	"context"
	"math"
	"sync"
	"time"

	"civitas/internal/ratelimit"
)

// sweepEvery is how many checks pass between sweeps of idle keys.
const sweepEvery = 1024

type window struct {
	stamps []time.Time
	span   time.Duration
}

// Memory is a per-process sliding window. Use Redis when more than one
// instance serves traffic.
type Memory struct {
	mu      sync.Mutex
	windows map[string]*window
	checks  int
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{windows: make(map[string]*window), now: time.Now}
}

func (s *Memory) Allow(_ context.Context, key string, limit ratelimit.Limit) (*ratelimit.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.checks++
	if s.checks%sweepEvery == 0 {
		s.sweep(now)
	}

	w := s.windows[key]
	if w == nil {
		w = &window{}
		s.windows[key] = w
	}
	w.span = limit.Window
	w.stamps = prune(w.stamps, now.Add(-limit.Window))

	if len(w.stamps) >= limit.Requests {
		resetAt := w.stamps[0].Add(limit.Window)
		return &ratelimit.Result{
			Allowed:    false,
			Limit:      limit.Requests,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(now, resetAt),
		}, nil
	}

	w.stamps = append(w.stamps, now)
	return &ratelimit.Result{
		Allowed:   true,
		Limit:     limit.Requests,
		Remaining: limit.Requests - len(w.stamps),
		ResetAt:   w.stamps[0].Add(limit.Window),
	}, nil
}

// sweep drops keys whose window is empty. Must be called with the lock held.
func (s *Memory) sweep(now time.Time) {
	for key, w := range s.windows {
		if len(prune(w.stamps, now.Add(-w.span))) == 0 {
			delete(s.windows, key)
		}
	}
}

// prune drops timestamps at or before cutoff. stamps is ordered.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	return stamps[i:]
}

func retryAfter(now, resetAt time.Time) int {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
