package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"civitas/internal/ratelimit"
	"civitas/pkg/platform/sentinel"
)

const redisKeyPrefix = "ratelimit:"

// slidingWindow trims the sorted set to the window, then admits the request
// when there is room. Scores are unix milliseconds. It returns
// {allowed, count, oldest score}.
var slidingWindow = redis.NewScript(`
	local now = tonumber(ARGV[1])
	local span = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", now - span)
	local count = redis.call("ZCARD", KEYS[1])
	local allowed = 0
	if count < limit then
		redis.call("ZADD", KEYS[1], now, ARGV[4])
		redis.call("PEXPIRE", KEYS[1], span)
		count = count + 1
		allowed = 1
	end
	local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
	local first = now
	if oldest[2] then
		first = tonumber(oldest[2])
	end
	return {allowed, count, first}
`)

// Redis shares the window between every instance using the same server.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

func (s *Redis) Allow(ctx context.Context, key string, limit ratelimit.Limit) (*ratelimit.Result, error) {
	now := s.now()
	res, err := slidingWindow.Run(ctx, s.client, []string{redisKeyPrefix + key},
		now.UnixMilli(), limit.Window.Milliseconds(), limit.Requests, uuid.NewString()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("rate limit %s: unexpected script reply %v", key, res)
	}

	resetAt := time.UnixMilli(res[2]).Add(limit.Window)
	result := &ratelimit.Result{
		Allowed: res[0] == 1,
		Limit:   limit.Requests,
		ResetAt: resetAt,
	}
	if result.Allowed {
		result.Remaining = limit.Requests - int(res[1])
	} else {
		result.RetryAfter = retryAfter(now, resetAt)
	}
	return result, nil
}
