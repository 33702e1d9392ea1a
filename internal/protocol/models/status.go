package models

import (
	"strings"

	dErrors "civitas/pkg/domain-errors"
)

// Status is the lifecycle state of a protocol.
type Status string

const (
	StatusReceived         Status = "RECEIVED"
	StatusUnderAnalysis    Status = "UNDER_ANALYSIS"
	StatusPendingDocuments Status = "PENDING_DOCUMENTS"
	StatusApproved         Status = "APPROVED"
	StatusCompleted        Status = "COMPLETED"
	StatusRejected         Status = "REJECTED"
	StatusCancelled        Status = "CANCELLED"
)

// transitions lists the forward edges. REJECTED and CANCELLED are added for
// every non-terminal state by CanTransitionTo.
var transitions = map[Status][]Status{
	StatusReceived:         {StatusUnderAnalysis, StatusPendingDocuments, StatusApproved},
	StatusUnderAnalysis:    {StatusPendingDocuments, StatusApproved},
	StatusPendingDocuments: {StatusUnderAnalysis, StatusApproved},
	StatusApproved:         {StatusCompleted},
}

// ParseStatus accepts any casing.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown protocol status %q", s)
	}
	return st, nil
}

func (s Status) IsValid() bool {
	switch s {
	case StatusReceived, StatusUnderAnalysis, StatusPendingDocuments,
		StatusApproved, StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s Status) CanTransitionTo(next Status) bool {
	if s.IsTerminal() || !next.IsValid() || s == next {
		return false
	}
	if next == StatusRejected || next == StatusCancelled {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RequiresDocumentGate reports whether entering s needs every required
// document approved.
func (s Status) RequiresDocumentGate() bool {
	return s == StatusApproved || s == StatusCompleted
}

func (s Status) String() string {
	return string(s)
}
