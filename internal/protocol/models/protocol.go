package models

import (
	"time"

	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
)

// Protocol is the aggregate root for a citizen's service request.
//
// Invariants:
//   - TrackingNumber is assigned at creation and never changes
//   - CitizenID is nil for anonymous submissions
//   - Status only moves along the edges accepted by Status.CanTransitionTo
//   - ClosedAt is set exactly when Status becomes terminal
//
// Documents, Pendencies and Interactions are populated on read; stores
// persist them through their own repositories.
type Protocol struct {
	ID             id.ProtocolID  `json:"id"`
	TrackingNumber string         `json:"trackingNumber"`
	Status         Status         `json:"status"`
	ServiceID      id.ServiceID   `json:"serviceId"`
	CitizenID      *id.CitizenID  `json:"citizenId"`
	Priority       id.Priority    `json:"priority"`
	Anonymous      bool           `json:"isAnonymous"`
	CustomData     map[string]any `json:"customData,omitempty"`
	RecordID       *id.RecordID   `json:"recordId,omitempty"`
	RecordNumber   string         `json:"recordNumber,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	ClosedAt       *time.Time     `json:"closedAt,omitempty"`

	Documents    []*Document    `json:"documents,omitempty"`
	Pendencies   []*Pendency    `json:"pendencies,omitempty"`
	Interactions []*Interaction `json:"interactions,omitempty"`
}

func NewProtocol(
	protocolID id.ProtocolID,
	trackingNumber string,
	serviceID id.ServiceID,
	citizenID *id.CitizenID,
	priority id.Priority,
	customData map[string]any,
	now time.Time,
) (*Protocol, error) {
	if protocolID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "protocol id cannot be nil")
	}
	if trackingNumber == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tracking number cannot be empty")
	}
	if serviceID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "service id cannot be nil")
	}
	if !priority.IsValid() {
		priority = id.PriorityNormal
	}
	return &Protocol{
		ID:             protocolID,
		TrackingNumber: trackingNumber,
		Status:         StatusReceived,
		ServiceID:      serviceID,
		CitizenID:      citizenID,
		Priority:       priority,
		Anonymous:      citizenID == nil,
		CustomData:     customData,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// TransitionTo moves the protocol to next and returns the previous status.
// The document gate is checked by the caller, which owns the documents.
func (p *Protocol) TransitionTo(next Status, now time.Time) (Status, error) {
	from := p.Status
	if err := p.CheckTransition(next); err != nil {
		return from, err
	}
	p.Status = next
	p.UpdatedAt = now
	if next.IsTerminal() {
		closed := now
		p.ClosedAt = &closed
	}
	return from, nil
}

// CheckTransition fails with CodeInvalidTransition when next is not
// reachable from the current status.
func (p *Protocol) CheckTransition(next Status) error {
	if !p.Status.CanTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvalidTransition,
			"protocol %s cannot move from %s to %s", p.TrackingNumber, p.Status, next)
	}
	return nil
}

// EnsureOpen fails when the protocol already reached a terminal status.
func (p *Protocol) EnsureOpen() error {
	if p.Status.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvalidTransition,
			"protocol %s is closed (%s)", p.TrackingNumber, p.Status)
	}
	return nil
}

// AttachRecord links the specialized record materialized at submission.
func (p *Protocol) AttachRecord(recordID id.RecordID, number string, now time.Time) {
	rid := recordID
	p.RecordID = &rid
	p.RecordNumber = number
	p.UpdatedAt = now
}

// Raise lifts the priority to at least pr. It never lowers it.
func (p *Protocol) Raise(pr id.Priority) {
	if pr.IsValid() && !p.Priority.AtLeast(pr) {
		p.Priority = pr
	}
}
