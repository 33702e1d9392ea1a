// Package ports declares the stores and collaborators of the citizen link
// manager.
package ports

import (
	"context"

	"civitas/internal/citizen/models"
	protocol "civitas/internal/protocol/models"
	id "civitas/pkg/domain"
	"civitas/pkg/platform/audit"
)

// LinkStore persists citizen links. Create returns sentinel.ErrConflict when
// the (protocol, citizen, link type) triple already exists.
type LinkStore interface {
	Create(ctx context.Context, l *models.CitizenLink) error
	Update(ctx context.Context, l *models.CitizenLink) error
	Delete(ctx context.Context, linkID id.LinkID) error
	FindByID(ctx context.Context, linkID id.LinkID) (*models.CitizenLink, error)
	ListByProtocol(ctx context.Context, protocolID id.ProtocolID) ([]*models.CitizenLink, error)
	// ListByCitizen returns the citizen's links across protocols. An empty
	// types slice matches every link type.
	ListByCitizen(ctx context.Context, citizenID id.CitizenID, types []models.LinkType) ([]*models.CitizenLink, error)
}

// FamilyStore persists household edges. Add returns sentinel.ErrConflict
// for an existing (head, member) pair.
type FamilyStore interface {
	Add(ctx context.Context, m *models.FamilyMember) error
	Remove(ctx context.Context, headID, memberID id.CitizenID) error
	Find(ctx context.Context, headID, memberID id.CitizenID) (*models.FamilyMember, error)
	ListByHead(ctx context.Context, headID id.CitizenID) ([]*models.FamilyMember, error)
}

// ProtocolReader is the part of the protocol store links depend on.
type ProtocolReader interface {
	FindByID(ctx context.Context, protocolID id.ProtocolID) (*protocol.Protocol, error)
}

// Trail appends entries to a protocol's interaction trail.
type Trail interface {
	Append(ctx context.Context, in *protocol.Interaction) error
}

// Directory resolves citizen identities. Lookup returns a not_found coded
// error for unknown citizens.
type Directory interface {
	Lookup(ctx context.Context, citizenID id.CitizenID) (*models.DirectoryEntry, error)
}

type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type SecurityAuditor interface {
	Emit(ctx context.Context, event audit.Event)
}
