package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"civitas/internal/platform/metrics"
	"civitas/pkg/platform/sentinel"
)

const redisKeyPrefix = "seq:"

// RedisCounter uses INCR, which is atomic across every node sharing the
// redis instance. Values are not returned on rollback, leaving gaps.
type RedisCounter struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

type RedisOption func(*RedisCounter)

func WithRedisMetrics(m *metrics.Metrics) RedisOption {
	return func(c *RedisCounter) {
		c.metrics = m
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisCounter {
	c := &RedisCounter{client: client}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// raiseScript sets the counter to ARGV[1] unless it is already higher.
var raiseScript = redis.NewScript(`
	local current = tonumber(redis.call("GET", KEYS[1]) or "0")
	if current < tonumber(ARGV[1]) then
		redis.call("SET", KEYS[1], ARGV[1])
	end
	return 1
`)

func redisKey(prefix string, year int) string {
	return fmt.Sprintf("%s%s:%d", redisKeyPrefix, prefix, year)
}

func (c *RedisCounter) Next(ctx context.Context, prefix string, year int) (int64, error) {
	start := time.Now()
	value, err := c.client.Incr(ctx, redisKey(prefix, year)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w: %w", redisKey(prefix, year), sentinel.ErrUnavailable, err)
	}
	c.metrics.ObserveAllocation("redis", start)
	return value, nil
}

// Seed raises the counter to last if it is lower.
func (c *RedisCounter) Seed(ctx context.Context, prefix string, year int, last int64) error {
	if err := raiseScript.Run(ctx, c.client, []string{redisKey(prefix, year)}, last).Err(); err != nil {
		return fmt.Errorf("seed %s: %w: %w", redisKey(prefix, year), sentinel.ErrUnavailable, err)
	}
	return nil
}
