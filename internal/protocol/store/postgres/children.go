package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"civitas/internal/protocol/models"
	id "civitas/pkg/domain"
)

type DocumentStore struct {
	db *sql.DB
}

const documentColumns = `id, protocol_id, document_type, description, required, status, file_ref,
	rejection_reason, reviewed_by, reviewed_at, created_at, updated_at`

func (s *DocumentStore) Create(ctx context.Context, d *models.Document) error {
	query := `
		INSERT INTO protocol_documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(d.ID), uuid.UUID(d.ProtocolID), d.Type, d.Description, d.Required, string(d.Status),
		d.FileRef, d.RejectionReason, nullUUID(d.ReviewedBy), d.ReviewedAt, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *DocumentStore) Update(ctx context.Context, d *models.Document) error {
	query := `
		UPDATE protocol_documents
		SET status = $3, file_ref = $4, rejection_reason = $5, reviewed_by = $6,
			reviewed_at = $7, updated_at = $8
		WHERE id = $1 AND protocol_id = $2
	`
	res, err := exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(d.ID), uuid.UUID(d.ProtocolID), string(d.Status), d.FileRef, d.RejectionReason,
		nullUUID(d.ReviewedBy), d.ReviewedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return checkAffected(res, "document")
}

func (s *DocumentStore) FindByID(ctx context.Context, protocolID id.ProtocolID, docID id.DocumentID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM protocol_documents WHERE id = $1 AND protocol_id = $2`
	d, err := scanDocument(exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(docID), uuid.UUID(protocolID)))
	if err != nil {
		return nil, notFound(err, "document")
	}
	return d, nil
}

func (s *DocumentStore) ListByProtocol(ctx context.Context, protocolID id.ProtocolID) ([]*models.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM protocol_documents
		WHERE protocol_id = $1
		ORDER BY created_at, document_type
	`
	rows, err := exec(ctx, s.db).QueryContext(ctx, query, uuid.UUID(protocolID))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []*models.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func scanDocument(row scanner) (*models.Document, error) {
	var (
		d          models.Document
		did, pid   uuid.UUID
		status     string
		reviewedBy uuid.NullUUID
	)
	err := row.Scan(&did, &pid, &d.Type, &d.Description, &d.Required, &status, &d.FileRef,
		&d.RejectionReason, &reviewedBy, &d.ReviewedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.ID = id.DocumentID(did)
	d.ProtocolID = id.ProtocolID(pid)
	d.Status = models.DocumentStatus(status)
	d.ReviewedBy = fromNull[id.UserID](reviewedBy)
	return &d, nil
}

type PendencyStore struct {
	db *sql.DB
}

const pendencyColumns = `id, protocol_id, description, items, priority, due_date, created_by,
	created_at, resolved_at, resolved_by`

func (s *PendencyStore) Create(ctx context.Context, p *models.Pendency) error {
	query := `
		INSERT INTO protocol_pendencies (` + pendencyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.ID), uuid.UUID(p.ProtocolID), p.Description, pq.Array(p.Items), string(p.Priority),
		p.DueDate, nullUUID(p.CreatedBy), p.CreatedAt, p.ResolvedAt, nullUUID(p.ResolvedBy),
	)
	if err != nil {
		return fmt.Errorf("insert pendency: %w", err)
	}
	return nil
}

func (s *PendencyStore) Update(ctx context.Context, p *models.Pendency) error {
	query := `
		UPDATE protocol_pendencies
		SET resolved_at = $3, resolved_by = $4
		WHERE id = $1 AND protocol_id = $2
	`
	res, err := exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.ID), uuid.UUID(p.ProtocolID), p.ResolvedAt, nullUUID(p.ResolvedBy),
	)
	if err != nil {
		return fmt.Errorf("update pendency: %w", err)
	}
	return checkAffected(res, "pendency")
}

func (s *PendencyStore) FindByID(ctx context.Context, protocolID id.ProtocolID, pendencyID id.PendencyID) (*models.Pendency, error) {
	query := `SELECT ` + pendencyColumns + ` FROM protocol_pendencies WHERE id = $1 AND protocol_id = $2`
	p, err := scanPendency(exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(pendencyID), uuid.UUID(protocolID)))
	if err != nil {
		return nil, notFound(err, "pendency")
	}
	return p, nil
}

func (s *PendencyStore) ListByProtocol(ctx context.Context, protocolID id.ProtocolID) ([]*models.Pendency, error) {
	query := `
		SELECT ` + pendencyColumns + `
		FROM protocol_pendencies
		WHERE protocol_id = $1
		ORDER BY created_at, description
	`
	rows, err := exec(ctx, s.db).QueryContext(ctx, query, uuid.UUID(protocolID))
	if err != nil {
		return nil, fmt.Errorf("list pendencies: %w", err)
	}
	defer rows.Close()

	out := []*models.Pendency{}
	for rows.Next() {
		p, err := scanPendency(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pendency: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPendency(row scanner) (*models.Pendency, error) {
	var (
		p                     models.Pendency
		pid, protocolID       uuid.UUID
		priority              string
		createdBy, resolvedBy uuid.NullUUID
		items                 pq.StringArray
	)
	err := row.Scan(&pid, &protocolID, &p.Description, &items, &priority, &p.DueDate, &createdBy,
		&p.CreatedAt, &p.ResolvedAt, &resolvedBy)
	if err != nil {
		return nil, err
	}
	p.ID = id.PendencyID(pid)
	p.ProtocolID = id.ProtocolID(protocolID)
	p.Priority = id.Priority(priority)
	p.CreatedBy = fromNull[id.UserID](createdBy)
	p.ResolvedBy = fromNull[id.UserID](resolvedBy)
	p.Items = []string(items)
	if p.Items == nil {
		p.Items = []string{}
	}
	return &p, nil
}

// InteractionStore is append-only.
type InteractionStore struct {
	db *sql.DB
}

func (s *InteractionStore) Append(ctx context.Context, in *models.Interaction) error {
	query := `
		INSERT INTO protocol_interactions (id, protocol_id, kind, actor_id, actor_role, from_status,
			to_status, message, internal, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(in.ID), uuid.UUID(in.ProtocolID), string(in.Kind), nullUUID(in.ActorID), string(in.ActorRole),
		string(in.FromStatus), string(in.ToStatus), in.Message, in.Internal, in.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

func (s *InteractionStore) ListByProtocol(ctx context.Context, protocolID id.ProtocolID) ([]*models.Interaction, error) {
	query := `
		SELECT id, protocol_id, kind, actor_id, actor_role, from_status, to_status, message, internal, created_at
		FROM protocol_interactions
		WHERE protocol_id = $1
		ORDER BY seq
	`
	rows, err := exec(ctx, s.db).QueryContext(ctx, query, uuid.UUID(protocolID))
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	out := []*models.Interaction{}
	for rows.Next() {
		var (
			in                   models.Interaction
			iid, pid             uuid.UUID
			actor                uuid.NullUUID
			kind, role, from, to string
		)
		if err := rows.Scan(&iid, &pid, &kind, &actor, &role, &from, &to, &in.Message, &in.Internal, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		in.ID = id.InteractionID(iid)
		in.ProtocolID = id.ProtocolID(pid)
		in.Kind = models.InteractionKind(kind)
		in.ActorID = fromNull[id.UserID](actor)
		in.ActorRole = models.Role(role)
		in.FromStatus = models.Status(from)
		in.ToStatus = models.Status(to)
		out = append(out, &in)
	}
	return out, rows.Err()
}
