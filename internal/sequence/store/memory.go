// Package store holds the Counter backends: process-local memory, a postgres
// counter table and redis INCR.
package store

import (
	"context"
	"fmt"
	"sync"
)

type scope struct {
	prefix string
	year   int
}

// InMemoryCounter is a mutex-guarded counter map for tests and single-node runs.
type InMemoryCounter struct {
	mu     sync.Mutex
	values map[scope]int64
}

func NewInMemory() *InMemoryCounter {
	return &InMemoryCounter{values: make(map[scope]int64)}
}

func (c *InMemoryCounter) Next(_ context.Context, prefix string, year int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := scope{prefix: prefix, year: year}
	c.values[k]++
	return c.values[k], nil
}

// Seed sets the last issued value for a scope, e.g. when importing legacy numbers.
func (c *InMemoryCounter) Seed(_ context.Context, prefix string, year int, last int64) error {
	if last < 0 {
		return fmt.Errorf("seed %s/%d: negative value", prefix, year)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	k := scope{prefix: prefix, year: year}
	if last > c.values[k] {
		c.values[k] = last
	}
	return nil
}
