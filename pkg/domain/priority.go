package domain

import (
	"strings"

	dErrors "civitas/pkg/domain-errors"
)

// Priority ranks protocols, pendencies and specialized records.
// Invariant: the value must be one of the supported priorities.
//
// Usage: construct via ParsePriority at trust boundaries; handlers derive it
// from payload heuristics and use the constants directly.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var priorityRank = map[Priority]int{
	PriorityLow:    1,
	PriorityNormal: 2,
	PriorityHigh:   3,
	PriorityUrgent: 4,
}

// ParsePriority validates external input. Empty input yields PriorityNormal.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriorityNormal, nil
	}
	p := Priority(s)
	if !p.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid priority")
	}
	return p, nil
}

func (p Priority) IsValid() bool {
	_, ok := priorityRank[p]
	return ok
}

// AtLeast reports whether p ranks at or above other.
func (p Priority) AtLeast(other Priority) bool {
	return priorityRank[p] >= priorityRank[other]
}

func (p Priority) String() string {
	return string(p)
}
