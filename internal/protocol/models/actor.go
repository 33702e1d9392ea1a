package models

import (
	"strings"

	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
)

// Role is the organizational role of whoever performs an operation.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleClerk   Role = "clerk"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
	// RoleSystem is used for transitions the engine performs on its own,
	// such as auto-verified links.
	RoleSystem Role = "system"
)

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleCitizen, RoleClerk, RoleManager, RoleAdmin:
		return r, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown role %q", s)
}

// Actor is who performs a lifecycle operation. A citizen actor's ID is the
// citizen's own identifier.
type Actor struct {
	ID   id.UserID
	Role Role
}

// SystemActor performs engine-initiated changes.
var SystemActor = Actor{Role: RoleSystem}

func (a Actor) IsStaff() bool {
	switch a.Role {
	case RoleClerk, RoleManager, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// CanReview covers document requests and reviews, analysis, approval,
// completion, pendencies and internal comments.
func (a Actor) CanReview() bool {
	return a.IsStaff()
}

// CanReject is limited to managers and admins.
func (a Actor) CanReject() bool {
	switch a.Role {
	case RoleManager, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// Owns reports whether a citizen actor is the protocol's owner.
func (a Actor) Owns(p *Protocol) bool {
	if a.Role != RoleCitizen || p.CitizenID == nil || a.ID.IsNil() {
		return false
	}
	return id.CitizenID(a.ID) == *p.CitizenID
}

// CanAccess reports whether the actor may read or act on p at all.
func (a Actor) CanAccess(p *Protocol) bool {
	return a.IsStaff() || a.Owns(p)
}

// UserRef returns a pointer to the actor ID, or nil for the system actor.
func (a Actor) UserRef() *id.UserID {
	if a.ID.IsNil() {
		return nil
	}
	uid := a.ID
	return &uid
}
