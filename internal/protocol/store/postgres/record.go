package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"civitas/internal/module"
	platformpg "civitas/internal/platform/postgres"
	id "civitas/pkg/domain"
	"civitas/pkg/platform/sentinel"
)

// RecordStore keeps every module's specialized records in one table.
// Handler-specific fields travel in the attributes and extensions columns.
type RecordStore struct {
	db *sql.DB
}

const recordColumns = `id, module_type, entity, number, status, priority, category, service_id,
	protocol_id, citizen_id, anonymous, ip_hash, feedback_hash, attributes, extensions, created_at, updated_at`

func (s *RecordStore) Create(ctx context.Context, rec *module.Record) error {
	attrs, err := marshalJSON(rec.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}
	var ext []byte
	if rec.Extensions != nil {
		if ext, err = marshalJSON(rec.Extensions); err != nil {
			return fmt.Errorf("marshal extensions: %w", err)
		}
	}
	feedback := sql.NullString{String: rec.FeedbackHash, Valid: rec.FeedbackHash != ""}

	query := `
		INSERT INTO module_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(rec.ID), rec.ModuleType, rec.Entity, rec.Number, rec.Status, string(rec.Priority),
		rec.Category, uuid.UUID(rec.ServiceID), nullUUID(rec.ProtocolID), nullUUID(rec.CitizenID),
		rec.Anonymous, rec.IPHash, feedback, attrs, ext, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if dup := duplicate(err, recordNumberKey, rec.Number); dup != nil {
			return dup
		}
		if platformpg.IsUniqueViolation(err, feedbackHashKey) {
			return fmt.Errorf("feedback code: %w", sentinel.ErrDuplicateCode)
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *RecordStore) Update(ctx context.Context, rec *module.Record) error {
	attrs, err := marshalJSON(rec.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}
	query := `
		UPDATE module_records
		SET status = $2, priority = $3, category = $4, attributes = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(rec.ID), rec.Status, string(rec.Priority), rec.Category, attrs, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return checkAffected(res, "record")
}

func (s *RecordStore) FindByID(ctx context.Context, recordID id.RecordID) (*module.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM module_records WHERE id = $1`
	rec, err := scanRecord(exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(recordID)))
	if err != nil {
		return nil, notFound(err, "record")
	}
	return rec, nil
}

func (s *RecordStore) FindByFeedbackHash(ctx context.Context, hash string) (*module.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM module_records WHERE feedback_hash = $1`
	rec, err := scanRecord(exec(ctx, s.db).QueryRowContext(ctx, query, hash))
	if err != nil {
		return nil, notFound(err, "record")
	}
	return rec, nil
}

func scanRecord(row scanner) (*module.Record, error) {
	var (
		rec               module.Record
		rid, serviceID    uuid.UUID
		protocol, citizen uuid.NullUUID
		priority          string
		feedback          sql.NullString
		attrs, ext        []byte
	)
	err := row.Scan(&rid, &rec.ModuleType, &rec.Entity, &rec.Number, &rec.Status, &priority, &rec.Category,
		&serviceID, &protocol, &citizen, &rec.Anonymous, &rec.IPHash, &feedback, &attrs, &ext,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.ID = id.RecordID(rid)
	rec.ServiceID = id.ServiceID(serviceID)
	rec.ProtocolID = fromNull[id.ProtocolID](protocol)
	rec.CitizenID = fromNull[id.CitizenID](citizen)
	rec.Priority = id.Priority(priority)
	rec.FeedbackHash = feedback.String
	if rec.Attributes, err = unmarshalJSON(attrs); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	if rec.Extensions, err = unmarshalJSON(ext); err != nil {
		return nil, fmt.Errorf("decode extensions: %w", err)
	}
	return &rec, nil
}
