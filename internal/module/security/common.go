// Package security implements the public-safety module: police reports,
// anonymous tips, patrol requests and camera requests.
package security

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"civitas/internal/module"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/requestcontext"
)

// ModuleType is the module key shared by every handler in this package.
const ModuleType = "security"

// Tracking-number prefixes.
const (
	PrefixPoliceReport  = "BO"
	PrefixAnonymousTip  = "DEN"
	PrefixPatrolRequest = "RON"
	PrefixCameraRequest = "CAM"
)

type base struct {
	key    module.Key
	prefix string
	module.StatusTable
}

func newBase(entity, prefix string, statuses module.StatusTable) base {
	return base{key: module.NewKey(ModuleType, entity), prefix: prefix, StatusTable: statuses}
}

func (b base) Key() module.Key {
	return b.key
}

func (b base) CanHandle(a module.Action) bool {
	return a.Key() == b.key
}

// newRecord fills the generic record fields. Protocol and citizen references
// are attached only when linked is true.
func (b base) newRecord(ctx context.Context, a module.Action, number, status string, priority id.Priority, category string, linked bool) *module.Record {
	now := requestcontext.Now(ctx)
	rec := &module.Record{
		ID:         id.RecordID(uuid.New()),
		ModuleType: b.key.ModuleType,
		Entity:     b.key.Entity,
		Number:     number,
		Status:     status,
		Priority:   priority,
		Category:   category,
		ServiceID:  a.ServiceID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if linked && a.Protocol != nil {
		pid := a.Protocol.ID
		rec.ProtocolID = &pid
		if a.Protocol.CitizenID != nil {
			cid := *a.Protocol.CitizenID
			rec.CitizenID = &cid
		}
	}
	return rec
}

// parseDate accepts YYYY-MM-DD or RFC 3339 and rejects dates after now.
func parseDate(field, raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var (
		t   time.Time
		err error
	)
	if len(raw) == len(time.DateOnly) {
		t, err = time.Parse(time.DateOnly, raw)
	} else {
		t, err = time.Parse(time.RFC3339, raw)
	}
	if err != nil {
		return time.Time{}, dErrors.Newf(dErrors.CodeValidation, "field %s must be a date (YYYY-MM-DD)", field)
	}
	if t.After(now) {
		return time.Time{}, dErrors.Newf(dErrors.CodeValidation, "field %s cannot be in the future", field)
	}
	return t, nil
}

func isOneOf(raw string, values ...string) bool {
	f := fold(raw)
	for _, v := range values {
		if f == v {
			return true
		}
	}
	return false
}
