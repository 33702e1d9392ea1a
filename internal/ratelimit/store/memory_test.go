package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"civitas/internal/ratelimit"
)

var testLimit = ratelimit.Limit{Requests: 3, Window: time.Minute}

type MemorySuite struct {
	suite.Suite
	store *Memory
	clock time.Time
	ctx   context.Context
}

func TestMemorySuite(t *testing.T) {
	suite.Run(t, new(MemorySuite))
}

func (s *MemorySuite) SetupTest() {
	s.store = NewMemory()
	s.clock = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	s.store.now = func() time.Time { return s.clock }
	s.ctx = context.Background()
}

func (s *MemorySuite) TestAllow() {
	s.Run("requests up to the limit pass", func() {
		for i := range testLimit.Requests {
			res, err := s.store.Allow(s.ctx, "k:limit", testLimit)
			s.Require().NoError(err)
			s.True(res.Allowed)
			s.Equal(testLimit.Requests-i-1, res.Remaining)
		}
	})

	s.Run("request over the limit is rejected with a retry hint", func() {
		for range testLimit.Requests {
			_, err := s.store.Allow(s.ctx, "k:over", testLimit)
			s.Require().NoError(err)
		}
		s.clock = s.clock.Add(20 * time.Second)
		res, err := s.store.Allow(s.ctx, "k:over", testLimit)
		s.Require().NoError(err)
		s.False(res.Allowed)
		s.Equal(0, res.Remaining)
		s.Equal(40, res.RetryAfter)
	})

	s.Run("window slides", func() {
		for range testLimit.Requests {
			_, err := s.store.Allow(s.ctx, "k:slide", testLimit)
			s.Require().NoError(err)
		}
		s.clock = s.clock.Add(testLimit.Window + time.Second)
		res, err := s.store.Allow(s.ctx, "k:slide", testLimit)
		s.Require().NoError(err)
		s.True(res.Allowed)
	})

	s.Run("keys are independent", func() {
		for range testLimit.Requests {
			_, err := s.store.Allow(s.ctx, "k:a", testLimit)
			s.Require().NoError(err)
		}
		res, err := s.store.Allow(s.ctx, "k:b", testLimit)
		s.Require().NoError(err)
		s.True(res.Allowed)
	})
}

func (s *MemorySuite) TestSweepDropsIdleKeys() {
	_, err := s.store.Allow(s.ctx, "k:idle", testLimit)
	s.Require().NoError(err)
	s.clock = s.clock.Add(2 * testLimit.Window)

	s.store.mu.Lock()
	s.store.sweep(s.clock)
	_, kept := s.store.windows["k:idle"]
	s.store.mu.Unlock()
	s.False(kept)
}

func (s *MemorySuite) TestConcurrentRequestsNeverExceedLimit() {
	limit := ratelimit.Limit{Requests: 50, Window: time.Minute}
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.store.Allow(s.ctx, "k:race", limit)
			if err == nil && res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(limit.Requests, allowed)
}
