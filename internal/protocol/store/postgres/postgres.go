// Package postgres persists protocols, their children and specialized
// records. Every statement runs on the transaction carried by the context
// when there is one.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	platformpg "civitas/internal/platform/postgres"
	"civitas/internal/protocol/ports"
	"civitas/pkg/platform/sentinel"
	txcontext "civitas/pkg/platform/tx"
)

const (
	trackingNumberKey = "protocols_tracking_number_key"
	recordNumberKey   = "module_records_number_key"
	feedbackHashKey   = "module_records_feedback_hash_key"
)

// Repositories returns every store backed by db.
func Repositories(db *sql.DB) ports.Repositories {
	return ports.Repositories{
		Protocols:    &ProtocolStore{db: db},
		Documents:    &DocumentStore{db: db},
		Pendencies:   &PendencyStore{db: db},
		Interactions: &InteractionStore{db: db},
		Records:      &RecordStore{db: db},
		Numbers:      &NumberIndex{db: db},
	}
}

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
		return fmt.Errorf("update %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, sentinel.ErrNotFound)
	}
	return nil
}

func nullUUID[T ~[16]byte](v *T) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

func fromNull[T ~[16]byte](n uuid.NullUUID) *T {
	if !n.Valid {
		return nil
	}
	v := T(n.UUID)
	return &v
}

func marshalJSON(v map[string]any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

func unmarshalJSON(raw []byte) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func exec(ctx context.Context, db *sql.DB) txcontext.Executor {
	return txcontext.Pick(ctx, db)
}

func duplicate(err error, constraint, number string) error {
	if platformpg.IsUniqueViolation(err, constraint) {
		return fmt.Errorf("number %s: %w", number, sentinel.ErrDuplicateNumber)
	}
	return nil
}
