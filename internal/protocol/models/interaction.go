package models

import (
	"time"

	"github.com/google/uuid"

	id "civitas/pkg/domain"
)

// InteractionKind classifies entries of a protocol's trail.
type InteractionKind string

const (
	InteractionSubmitted         InteractionKind = "submitted"
	InteractionStatusChanged     InteractionKind = "status_changed"
	InteractionDocumentRequested InteractionKind = "document_requested"
	InteractionDocumentUploaded  InteractionKind = "document_uploaded"
	InteractionDocumentReviewed  InteractionKind = "document_reviewed"
	InteractionPendencyCreated   InteractionKind = "pendency_created"
	InteractionPendencyResolved  InteractionKind = "pendency_resolved"
	InteractionComment           InteractionKind = "comment"
	InteractionLinkAdded         InteractionKind = "link_added"
	InteractionLinkVerified      InteractionKind = "link_verified"
	InteractionLinkRemoved       InteractionKind = "link_removed"
)

// Interaction is one append-only entry of a protocol's trail. Internal
// entries are hidden from citizens.
type Interaction struct {
	ID         id.InteractionID `json:"id"`
	ProtocolID id.ProtocolID    `json:"protocolId"`
	Kind       InteractionKind  `json:"kind"`
	ActorID    *id.UserID       `json:"actorId,omitempty"`
	ActorRole  Role             `json:"actorRole,omitempty"`
	FromStatus Status           `json:"fromStatus,omitempty"`
	ToStatus   Status           `json:"toStatus,omitempty"`
	Message    string           `json:"message,omitempty"`
	Internal   bool             `json:"internal"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// NewInteraction builds a trail entry attributed to actor.
func NewInteraction(protocolID id.ProtocolID, kind InteractionKind, actor Actor, message string, now time.Time) *Interaction {
	return &Interaction{
		ID:         id.InteractionID(uuid.New()),
		ProtocolID: protocolID,
		Kind:       kind,
		ActorID:    actor.UserRef(),
		ActorRole:  actor.Role,
		Message:    message,
		CreatedAt:  now,
	}
}

// NewTransition builds a status_changed entry.
func NewTransition(protocolID id.ProtocolID, from, to Status, actor Actor, message string, now time.Time) *Interaction {
	in := NewInteraction(protocolID, InteractionStatusChanged, actor, message, now)
	in.FromStatus = from
	in.ToStatus = to
	return in
}

// VisibleTo filters out internal entries for citizens.
func VisibleTo(actor Actor, trail []*Interaction) []*Interaction {
	if actor.IsStaff() {
		return trail
	}
	out := make([]*Interaction, 0, len(trail))
	for _, in := range trail {
		if !in.Internal {
			out = append(out, in)
		}
	}
	return out
}
