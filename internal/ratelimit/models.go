// Package ratelimit throttles the endpoints anonymous callers can reach:
// protocol submission and tip status lookups. Feedback codes are short, so
// lookups are limited per client to keep them from being enumerated.
package ratelimit

import "time"

// Class groups endpoints that share a budget.
type Class string

const (
	ClassSubmit    Class = "submit"
	ClassTipLookup Class = "tip_lookup"
)

// Limit is a sliding-window budget.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result is the outcome of one check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds, only set when not allowed
}
