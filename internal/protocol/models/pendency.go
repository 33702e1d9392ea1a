package models

import (
	"strings"
	"time"

	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	pkgstrings "civitas/pkg/platform/strings"
)

// Pendency is an outstanding requirement raised by staff. Pendencies are
// informational for approval; only required documents gate it.
type Pendency struct {
	ID          id.PendencyID `json:"id"`
	ProtocolID  id.ProtocolID `json:"protocolId"`
	Description string        `json:"description"`
	Items       []string      `json:"items"`
	Priority    id.Priority   `json:"priority"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
	CreatedBy   *id.UserID    `json:"createdBy,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	ResolvedAt  *time.Time    `json:"resolvedAt,omitempty"`
	ResolvedBy  *id.UserID    `json:"resolvedBy,omitempty"`
}

func NewPendency(
	pendencyID id.PendencyID,
	protocolID id.ProtocolID,
	description string,
	items []string,
	priority id.Priority,
	dueDate *time.Time,
	createdBy *id.UserID,
	now time.Time,
) (*Pendency, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "pendency description is required")
	}
	if !priority.IsValid() {
		priority = id.PriorityNormal
	}
	if dueDate != nil && dueDate.Before(now.Truncate(24*time.Hour)) {
		return nil, dErrors.New(dErrors.CodeValidation, "pendency due date cannot be in the past")
	}
	cleaned := pkgstrings.DedupeFold(items)
	if cleaned == nil {
		cleaned = []string{}
	}
	return &Pendency{
		ID:          pendencyID,
		ProtocolID:  protocolID,
		Description: description,
		Items:       cleaned,
		Priority:    priority,
		DueDate:     dueDate,
		CreatedBy:   createdBy,
		CreatedAt:   now,
	}, nil
}

func (p *Pendency) IsResolved() bool {
	return p.ResolvedAt != nil
}

func (p *Pendency) Resolve(by *id.UserID, now time.Time) error {
	if p.IsResolved() {
		return dErrors.New(dErrors.CodeConflict, "pendency is already resolved")
	}
	resolved := now
	p.ResolvedAt = &resolved
	p.ResolvedBy = by
	return nil
}

// Escalates reports whether the pendency holds the protocol for documents.
func (p *Pendency) Escalates() bool {
	return p.Priority.AtLeast(id.PriorityHigh)
}
