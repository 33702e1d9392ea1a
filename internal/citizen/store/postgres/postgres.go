// Package postgres persists citizen links and household edges. Statements
// join the transaction carried by the context when there is one.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"civitas/internal/citizen/models"
	platformpg "civitas/internal/platform/postgres"
	id "civitas/pkg/domain"
	"civitas/pkg/platform/sentinel"
	txcontext "civitas/pkg/platform/tx"
)

const (
	linkKey   = "citizen_links_protocol_id_citizen_id_link_type_key"
	familyKey = "family_members_head_id_member_id_key"
)

type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, sentinel.ErrNotFound)
	}
	return fmt.Errorf("find %s: %w", what, err)
}

func checkAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, sentinel.ErrNotFound)
	}
	return nil
}

// LinkStore persists citizen_links rows.
type LinkStore struct {
	db *sql.DB
}

func NewLinkStore(db *sql.DB) *LinkStore {
	return &LinkStore{db: db}
}

const linkColumns = `id, protocol_id, citizen_id, link_type, role, relationship, is_verified,
	verified_at, verified_by, context_data, created_at`

func (s *LinkStore) Create(ctx context.Context, l *models.CitizenLink) error {
	data, err := marshalContext(l.ContextData)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO citizen_links (` + linkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(l.ID), uuid.UUID(l.ProtocolID), uuid.UUID(l.CitizenID), string(l.LinkType), string(l.Role),
		l.Relationship, l.IsVerified, l.VerifiedAt, verifiedBy(l.VerifiedBy), data, l.CreatedAt,
	)
	if err != nil {
		if platformpg.IsUniqueViolation(err, linkKey) {
			return fmt.Errorf("link %s: %w", l.LinkType, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

func (s *LinkStore) Update(ctx context.Context, l *models.CitizenLink) error {
	data, err := marshalContext(l.ContextData)
	if err != nil {
		return err
	}
	query := `
		UPDATE citizen_links
		SET role = $2, relationship = $3, is_verified = $4, verified_at = $5, verified_by = $6, context_data = $7
		WHERE id = $1
	`
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(l.ID), string(l.Role), l.Relationship, l.IsVerified, l.VerifiedAt, verifiedBy(l.VerifiedBy), data,
	)
	if err != nil {
		return fmt.Errorf("update link: %w", err)
	}
	return checkAffected(res, "link")
}

func (s *LinkStore) Delete(ctx context.Context, linkID id.LinkID) error {
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, `DELETE FROM citizen_links WHERE id = $1`, uuid.UUID(linkID))
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return checkAffected(res, "link")
}

func (s *LinkStore) FindByID(ctx context.Context, linkID id.LinkID) (*models.CitizenLink, error) {
	query := `SELECT ` + linkColumns + ` FROM citizen_links WHERE id = $1`
	l, err := scanLink(txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(linkID)))
	if err != nil {
		return nil, notFound(err, "link")
	}
	return l, nil
}

func (s *LinkStore) ListByProtocol(ctx context.Context, protocolID id.ProtocolID) ([]*models.CitizenLink, error) {
	query := `SELECT ` + linkColumns + ` FROM citizen_links WHERE protocol_id = $1 ORDER BY created_at, link_type`
	return s.query(ctx, query, uuid.UUID(protocolID))
}

func (s *LinkStore) ListByCitizen(ctx context.Context, citizenID id.CitizenID, types []models.LinkType) ([]*models.CitizenLink, error) {
	if len(types) == 0 {
		query := `SELECT ` + linkColumns + ` FROM citizen_links WHERE citizen_id = $1 ORDER BY created_at, link_type`
		return s.query(ctx, query, uuid.UUID(citizenID))
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	query := `SELECT ` + linkColumns + ` FROM citizen_links
		WHERE citizen_id = $1 AND link_type = ANY($2)
		ORDER BY created_at, link_type`
	return s.query(ctx, query, uuid.UUID(citizenID), pq.Array(names))
}

func (s *LinkStore) query(ctx context.Context, query string, args ...any) ([]*models.CitizenLink, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	out := make([]*models.CitizenLink, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return out, nil
}

func scanLink(row scanner) (*models.CitizenLink, error) {
	var (
		l                          models.CitizenLink
		lid, protocolID, citizenID uuid.UUID
		linkType, role             string
		verifiedAt                 sql.NullTime
		verifier                   uuid.NullUUID
		data                       []byte
	)
	err := row.Scan(&lid, &protocolID, &citizenID, &linkType, &role, &l.Relationship, &l.IsVerified,
		&verifiedAt, &verifier, &data, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	l.ID = id.LinkID(lid)
	l.ProtocolID = id.ProtocolID(protocolID)
	l.CitizenID = id.CitizenID(citizenID)
	l.LinkType = models.LinkType(linkType)
	l.Role = models.LinkRole(role)
	if verifiedAt.Valid {
		at := verifiedAt.Time
		l.VerifiedAt = &at
	}
	if verifier.Valid {
		uid := id.UserID(verifier.UUID)
		l.VerifiedBy = &uid
	}
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &l.ContextData); err != nil {
			return nil, fmt.Errorf("decode context data: %w", err)
		}
	}
	return &l, nil
}

func verifiedBy(u *id.UserID) uuid.NullUUID {
	if u == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*u), Valid: true}
}

// marshalContext stores absent context data as SQL NULL.
func marshalContext(data map[string]any) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal context data: %w", err)
	}
	return raw, nil
}

// FamilyStore persists family_members rows.
type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

const familyColumns = `id, head_id, member_id, relationship, is_dependent, created_at`

func (s *FamilyStore) Add(ctx context.Context, m *models.FamilyMember) error {
	query := `INSERT INTO family_members (` + familyColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(m.ID), uuid.UUID(m.HeadID), uuid.UUID(m.MemberID), m.Relationship, m.IsDependent, m.CreatedAt,
	)
	if err != nil {
		if platformpg.IsUniqueViolation(err, familyKey) {
			return fmt.Errorf("household member: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert household member: %w", err)
	}
	return nil
}

func (s *FamilyStore) Remove(ctx context.Context, headID, memberID id.CitizenID) error {
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx,
		`DELETE FROM family_members WHERE head_id = $1 AND member_id = $2`,
		uuid.UUID(headID), uuid.UUID(memberID),
	)
	if err != nil {
		return fmt.Errorf("delete household member: %w", err)
	}
	return checkAffected(res, "household member")
}

func (s *FamilyStore) Find(ctx context.Context, headID, memberID id.CitizenID) (*models.FamilyMember, error) {
	query := `SELECT ` + familyColumns + ` FROM family_members WHERE head_id = $1 AND member_id = $2`
	m, err := scanMember(txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(headID), uuid.UUID(memberID)))
	if err != nil {
		return nil, notFound(err, "household member")
	}
	return m, nil
}

func (s *FamilyStore) ListByHead(ctx context.Context, headID id.CitizenID) ([]*models.FamilyMember, error) {
	query := `SELECT ` + familyColumns + ` FROM family_members WHERE head_id = $1 ORDER BY created_at, member_id`
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, uuid.UUID(headID))
	if err != nil {
		return nil, fmt.Errorf("list household: %w", err)
	}
	defer rows.Close()

	out := make([]*models.FamilyMember, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan household member: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate household: %w", err)
	}
	return out, nil
}

func scanMember(row scanner) (*models.FamilyMember, error) {
	var (
		m                 models.FamilyMember
		mid, head, member uuid.UUID
	)
	if err := row.Scan(&mid, &head, &member, &m.Relationship, &m.IsDependent, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.ID = id.FamilyEdgeID(mid)
	m.HeadID = id.CitizenID(head)
	m.MemberID = id.CitizenID(member)
	return &m, nil
}
