//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civitas/internal/ratelimit"
	"civitas/internal/ratelimit/store"
	"civitas/pkg/testutil/containers"
)

func TestRedisSlidingWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	s := store.NewRedis(rc.Client)
	limit := ratelimit.Limit{Requests: 2, Window: 500 * time.Millisecond}

	for i := range limit.Requests {
		res, err := s.Allow(ctx, "tip_lookup:abc", limit)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, limit.Requests-i-1, res.Remaining)
	}

	res, err := s.Allow(ctx, "tip_lookup:abc", limit)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 1, res.RetryAfter)

	other, err := s.Allow(ctx, "tip_lookup:def", limit)
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	time.Sleep(limit.Window + 100*time.Millisecond)
	res, err = s.Allow(ctx, "tip_lookup:abc", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
