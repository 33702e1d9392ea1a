// Package domain holds typed identifiers and small value types shared across
// bounded contexts.
package domain

import (
	"github.com/google/uuid"

	dErrors "civitas/pkg/domain-errors"
)

// Typed IDs keep protocol, citizen and record identifiers from being mixed up
// at compile time. All are UUIDs underneath.
type (
	ProtocolID    uuid.UUID
	CitizenID     uuid.UUID
	UserID        uuid.UUID
	ServiceID     uuid.UUID
	DocumentID    uuid.UUID
	PendencyID    uuid.UUID
	InteractionID uuid.UUID
	RecordID      uuid.UUID
	LinkID        uuid.UUID
	FamilyEdgeID  uuid.UUID
)

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return u, nil
}

func ParseProtocolID(s string) (ProtocolID, error) {
	u, err := parseUUID(s, "protocol id")
	return ProtocolID(u), err
}

func ParseCitizenID(s string) (CitizenID, error) {
	u, err := parseUUID(s, "citizen id")
	return CitizenID(u), err
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParseServiceID(s string) (ServiceID, error) {
	u, err := parseUUID(s, "service id")
	return ServiceID(u), err
}

func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document id")
	return DocumentID(u), err
}

func ParsePendencyID(s string) (PendencyID, error) {
	u, err := parseUUID(s, "pendency id")
	return PendencyID(u), err
}

func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record id")
	return RecordID(u), err
}

func ParseLinkID(s string) (LinkID, error) {
	u, err := parseUUID(s, "link id")
	return LinkID(u), err
}

func (id ProtocolID) String() string { return uuid.UUID(id).String() }
func (id CitizenID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string { return uuid.UUID(id).String() }
func (id ServiceID) String() string { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id PendencyID) String() string { return uuid.UUID(id).String() }
func (id InteractionID) String() string { return uuid.UUID(id).String() }
func (id RecordID) String() string { return uuid.UUID(id).String() }
func (id LinkID) String() string { return uuid.UUID(id).String() }
func (id FamilyEdgeID) String() string { return uuid.UUID(id).String() }

func (id ProtocolID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CitizenID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ServiceID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs serialize as plain UUID strings in JSON.
func (id ProtocolID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id CitizenID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id UserID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ServiceID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id DocumentID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id PendencyID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id RecordID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id LinkID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id InteractionID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id FamilyEdgeID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *ProtocolID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CitizenID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *UserID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ServiceID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DocumentID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RecordID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
