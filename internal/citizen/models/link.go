// Package models holds the citizen link and household types: who besides the
// owner takes part in a protocol, and how citizens relate to each other.
package models

import (
	"strings"
	"time"

	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
)

// LinkType describes why a citizen is attached to a protocol.
type LinkType string

const (
	LinkStudent          LinkType = "student"
	LinkGuardian         LinkType = "guardian"
	LinkPatient          LinkType = "patient"
	LinkCompanion        LinkType = "companion"
	LinkDependent        LinkType = "dependent"
	LinkFamilyMember     LinkType = "family_member"
	LinkAuthorizedPerson LinkType = "authorized_person"
	LinkBeneficiary      LinkType = "beneficiary"
	LinkWitness          LinkType = "witness"
	LinkOther            LinkType = "other"
)

var linkTypes = map[LinkType]struct{}{
	LinkStudent: {}, LinkGuardian: {}, LinkPatient: {}, LinkCompanion: {}, LinkDependent: {},
	LinkFamilyMember: {}, LinkAuthorizedPerson: {}, LinkBeneficiary: {}, LinkWitness: {}, LinkOther: {},
}

// ParseLinkType accepts any letter case, so "GUARDIAN" and "guardian" are
// the same type.
func ParseLinkType(s string) (LinkType, error) {
	t := LinkType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := linkTypes[t]; !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown link type %q", s)
	}
	return t, nil
}

// FamilyLike reports whether the link type can be confirmed by a household
// edge between the protocol owner and the linked citizen.
func (t LinkType) FamilyLike() bool {
	switch t {
	case LinkGuardian, LinkDependent, LinkFamilyMember:
		return true
	}
	return false
}

// LinkRole is the part the linked citizen plays in the service.
type LinkRole string

const (
	RoleBeneficiary LinkRole = "beneficiary"
	RoleResponsible LinkRole = "responsible"
	RoleAuthorized  LinkRole = "authorized"
	RoleCompanion   LinkRole = "companion"
	RoleWitness     LinkRole = "witness"
	RoleOther       LinkRole = "other"
)

func ParseLinkRole(s string) (LinkRole, error) {
	r := LinkRole(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleBeneficiary, RoleResponsible, RoleAuthorized, RoleCompanion, RoleWitness, RoleOther:
		return r, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown link role %q", s)
}

// CitizenLink attaches a non-owner citizen to a protocol. A verified link
// with a nil VerifiedBy was confirmed by the engine from the owner's
// household.
type CitizenLink struct {
	ID           id.LinkID      `json:"id"`
	ProtocolID   id.ProtocolID  `json:"protocolId"`
	CitizenID    id.CitizenID   `json:"linkedCitizenId"`
	LinkType     LinkType       `json:"linkType"`
	Role         LinkRole       `json:"role"`
	Relationship string         `json:"relationship,omitempty"`
	IsVerified   bool           `json:"isVerified"`
	VerifiedAt   *time.Time     `json:"verifiedAt,omitempty"`
	VerifiedBy   *id.UserID     `json:"verifiedBy,omitempty"`
	ContextData  map[string]any `json:"contextData,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// NewCitizenLink returns an unverified link.
func NewCitizenLink(
	linkID id.LinkID,
	protocolID id.ProtocolID,
	citizenID id.CitizenID,
	linkType LinkType,
	role LinkRole,
	relationship string,
	contextData map[string]any,
	now time.Time,
) (*CitizenLink, error) {
	if _, ok := linkTypes[linkType]; !ok {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown link type %q", linkType)
	}
	if _, err := ParseLinkRole(string(role)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid link role")
	}
	return &CitizenLink{
		ID:           linkID,
		ProtocolID:   protocolID,
		CitizenID:    citizenID,
		LinkType:     linkType,
		Role:         role,
		Relationship: NormalizeRelationship(relationship),
		ContextData:  contextData,
		CreatedAt:    now,
	}, nil
}

// Verify marks the link as confirmed. by is nil for engine verification.
func (l *CitizenLink) Verify(by *id.UserID, now time.Time) error {
	if l.IsVerified {
		return dErrors.New(dErrors.CodeConflict, "link is already verified")
	}
	at := now
	l.IsVerified = true
	l.VerifiedAt = &at
	l.VerifiedBy = by
	return nil
}

// NormalizeRelationship lower-cases and trims a relationship label.
func NormalizeRelationship(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
