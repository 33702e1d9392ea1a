package handler

import (
	"strings"

	"civitas/internal/citizen/models"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
)

const (
	maxRelationshipLen = 100
	maxContextKeys     = 50
)

// LinkRequest is the body of POST /protocols/{protocolID}/links.
type LinkRequest struct {
	CitizenID    string         `json:"linkedCitizenId"`
	LinkType     string         `json:"linkType"`
	Role         string         `json:"role"`
	Relationship string         `json:"relationship,omitempty"`
	ContextData  map[string]any `json:"contextData,omitempty"`

	parsedCitizen  id.CitizenID
	parsedLinkType models.LinkType
	parsedRole     models.LinkRole
}

func (r *LinkRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	citizen, err := id.ParseCitizenID(strings.TrimSpace(r.CitizenID))
	if err != nil {
		return err
	}
	lt, err := models.ParseLinkType(r.LinkType)
	if err != nil {
		return err
	}
	role, err := models.ParseLinkRole(r.Role)
	if err != nil {
		return err
	}
	if len(r.Relationship) > maxRelationshipLen {
		return dErrors.New(dErrors.CodeValidation, "relationship too long")
	}
	if len(r.ContextData) > maxContextKeys {
		return dErrors.Newf(dErrors.CodeValidation, "contextData must have at most %d fields", maxContextKeys)
	}
	r.parsedCitizen, r.parsedLinkType, r.parsedRole = citizen, lt, role
	return nil
}

// FamilyMemberRequest is the body of POST /citizens/{citizenID}/family.
type FamilyMemberRequest struct {
	MemberID     string `json:"memberId"`
	Relationship string `json:"relationship"`
	IsDependent  bool   `json:"isDependent"`

	parsedMember id.CitizenID
}

func (r *FamilyMemberRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	member, err := id.ParseCitizenID(strings.TrimSpace(r.MemberID))
	if err != nil {
		return err
	}
	r.Relationship = strings.TrimSpace(r.Relationship)
	if r.Relationship == "" {
		return dErrors.New(dErrors.CodeValidation, "relationship is required")
	}
	if len(r.Relationship) > maxRelationshipLen {
		return dErrors.New(dErrors.CodeValidation, "relationship too long")
	}
	r.parsedMember = member
	return nil
}
