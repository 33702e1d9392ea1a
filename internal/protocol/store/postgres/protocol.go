package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"civitas/internal/protocol/models"
	id "civitas/pkg/domain"
)

type ProtocolStore struct {
	db *sql.DB
}

const protocolColumns = `id, tracking_number, status, service_id, citizen_id, priority, anonymous,
	custom_data, record_id, record_number, created_at, updated_at, closed_at`

func (s *ProtocolStore) Create(ctx context.Context, p *models.Protocol) error {
	data, err := marshalJSON(p.CustomData)
	if err != nil {
		return fmt.Errorf("marshal custom data: %w", err)
	}
	query := `
		INSERT INTO protocols (` + protocolColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.ID),
		p.TrackingNumber,
		string(p.Status),
		uuid.UUID(p.ServiceID),
		nullUUID(p.CitizenID),
		string(p.Priority),
		p.Anonymous,
		data,
		nullUUID(p.RecordID),
		p.RecordNumber,
		p.CreatedAt,
		p.UpdatedAt,
		p.ClosedAt,
	)
	if err != nil {
		if dup := duplicate(err, trackingNumberKey, p.TrackingNumber); dup != nil {
			return dup
		}
		return fmt.Errorf("insert protocol: %w", err)
	}
	return nil
}

// Update writes the mutable columns. Tracking number, service and citizen
// never change after creation.
func (s *ProtocolStore) Update(ctx context.Context, p *models.Protocol) error {
	data, err := marshalJSON(p.CustomData)
	if err != nil {
		return fmt.Errorf("marshal custom data: %w", err)
	}
	query := `
		UPDATE protocols
		SET status = $2, priority = $3, custom_data = $4, record_id = $5,
			record_number = $6, updated_at = $7, closed_at = $8
		WHERE id = $1
	`
	res, err := exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.ID),
		string(p.Status),
		string(p.Priority),
		data,
		nullUUID(p.RecordID),
		p.RecordNumber,
		p.UpdatedAt,
		p.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("update protocol: %w", err)
	}
	return checkAffected(res, "protocol")
}

func (s *ProtocolStore) FindByID(ctx context.Context, protocolID id.ProtocolID) (*models.Protocol, error) {
	query := `SELECT ` + protocolColumns + ` FROM protocols WHERE id = $1`
	return s.findOne(ctx, query, uuid.UUID(protocolID))
}

// FindByIDForUpdate locks the row until the surrounding transaction ends.
func (s *ProtocolStore) FindByIDForUpdate(ctx context.Context, protocolID id.ProtocolID) (*models.Protocol, error) {
	query := `SELECT ` + protocolColumns + ` FROM protocols WHERE id = $1 FOR UPDATE`
	return s.findOne(ctx, query, uuid.UUID(protocolID))
}

func (s *ProtocolStore) FindByTrackingNumber(ctx context.Context, number string) (*models.Protocol, error) {
	query := `SELECT ` + protocolColumns + ` FROM protocols WHERE tracking_number = $1`
	return s.findOne(ctx, query, number)
}

func (s *ProtocolStore) findOne(ctx context.Context, query string, arg any) (*models.Protocol, error) {
	p, err := scanProtocol(exec(ctx, s.db).QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, notFound(err, "protocol")
	}
	return p, nil
}

func scanProtocol(row scanner) (*models.Protocol, error) {
	var (
		p                models.Protocol
		pid, serviceID   uuid.UUID
		citizen, record  uuid.NullUUID
		status, priority string
		data             []byte
		recordNumber     sql.NullString
	)
	err := row.Scan(&pid, &p.TrackingNumber, &status, &serviceID, &citizen, &priority, &p.Anonymous,
		&data, &record, &recordNumber, &p.CreatedAt, &p.UpdatedAt, &p.ClosedAt)
	if err != nil {
		return nil, err
	}
	p.ID = id.ProtocolID(pid)
	p.ServiceID = id.ServiceID(serviceID)
	p.CitizenID = fromNull[id.CitizenID](citizen)
	p.RecordID = fromNull[id.RecordID](record)
	p.RecordNumber = recordNumber.String
	p.Status = models.Status(status)
	p.Priority = id.Priority(priority)
	if p.CustomData, err = unmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("decode custom data: %w", err)
	}
	return &p, nil
}
