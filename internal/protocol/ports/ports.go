// Package ports declares what the protocol lifecycle needs from the outside:
// repositories, a unit of work, the service catalog, the module dispatcher
// and audit sinks.
package ports

import (
	"context"

	"civitas/internal/catalog"
	"civitas/internal/module"
	"civitas/internal/protocol/models"
	id "civitas/pkg/domain"
	"civitas/pkg/platform/audit"
)

// ProtocolStore persists protocol aggregates without their children.
// Create returns sentinel.ErrDuplicateNumber when the tracking number is
// already taken; finders return sentinel.ErrNotFound.
type ProtocolStore interface {
	Create(ctx context.Context, p *models.Protocol) error
	Update(ctx context.Context, p *models.Protocol) error
	FindByID(ctx context.Context, protocolID id.ProtocolID) (*models.Protocol, error)
	// FindByIDForUpdate locks the row for the rest of the transaction.
	FindByIDForUpdate(ctx context.Context, protocolID id.ProtocolID) (*models.Protocol, error)
	FindByTrackingNumber(ctx context.Context, number string) (*models.Protocol, error)
}

type DocumentStore interface {
	Create(ctx context.Context, d *models.Document) error
	Update(ctx context.Context, d *models.Document) error
	FindByID(ctx context.Context, protocolID id.ProtocolID, docID id.DocumentID) (*models.Document, error)
	ListByProtocol(ctx context.Context, protocolID id.ProtocolID) ([]*models.Document, error)
}

type PendencyStore interface {
	Create(ctx context.Context, p *models.Pendency) error
	Update(ctx context.Context, p *models.Pendency) error
	FindByID(ctx context.Context, protocolID id.ProtocolID, pendencyID id.PendencyID) (*models.Pendency, error)
	ListByProtocol(ctx context.Context, protocolID id.ProtocolID) ([]*models.Pendency, error)
}

// InteractionStore is append-only.
type InteractionStore interface {
	Append(ctx context.Context, in *models.Interaction) error
	ListByProtocol(ctx context.Context, protocolID id.ProtocolID) ([]*models.Interaction, error)
}

// RecordStore persists specialized records for every module. Create
// returns sentinel.ErrDuplicateNumber on a number collision.
type RecordStore interface {
	Create(ctx context.Context, rec *module.Record) error
	Update(ctx context.Context, rec *module.Record) error
	FindByID(ctx context.Context, recordID id.RecordID) (*module.Record, error)
	FindByFeedbackHash(ctx context.Context, hash string) (*module.Record, error)
}

// NumberIndex reports the largest stored sequence suffix for a scope,
// across protocol tracking numbers and record numbers.
type NumberIndex interface {
	LastIssued(ctx context.Context, prefix string, year int) (int64, error)
}

// Repositories groups the stores the lifecycle writes through. Every
// implementation must join the transaction carried by ctx.
type Repositories struct {
	Protocols    ProtocolStore
	Documents    DocumentStore
	Pendencies   PendencyStore
	Interactions InteractionStore
	Records      RecordStore
	Numbers      NumberIndex
}

// UnitOfWork runs fn atomically. When fn returns an error every write made
// through ctx is discarded. Nested calls join the outer transaction.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NumberGenerator allocates numbers. Raise lifts a scope's counter to a
// floor after a collision showed it is behind the stored numbers.
type NumberGenerator interface {
	Next(ctx context.Context, prefix string) (string, error)
	Raise(ctx context.Context, prefix string, year int, last int64) error
}

type ServiceCatalog interface {
	Service(ctx context.Context, serviceID id.ServiceID) (*catalog.Service, error)
}

// Dispatcher is implemented by *module.Registry.
type Dispatcher interface {
	Lookup(key module.Key) (module.Handler, bool)
	Dispatch(ctx context.Context, a module.Action, scope module.Scope) (*module.Result, error)
	Notify(ctx context.Context, rec *module.Record, protocolStatus string, scope module.Scope) (bool, error)
}

// AuditPublisher writes compliance events inside the caller's transaction.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// SecurityAuditor records denials and lookup abuse best-effort.
type SecurityAuditor interface {
	Emit(ctx context.Context, event audit.Event)
}
