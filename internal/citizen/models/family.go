package models

import (
	"math"
	"time"

	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
)

// Age brackets used by the composition totals.
const (
	AdultAge   = 18
	ElderlyAge = 60
)

// FamilyMember is a directed household edge from a head citizen to a
// member. A pair of citizens has at most one edge per direction.
type FamilyMember struct {
	ID           id.FamilyEdgeID `json:"id"`
	HeadID       id.CitizenID    `json:"headId"`
	MemberID     id.CitizenID    `json:"memberId"`
	Relationship string          `json:"relationship"`
	IsDependent  bool            `json:"isDependent"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func NewFamilyMember(
	edgeID id.FamilyEdgeID,
	headID, memberID id.CitizenID,
	relationship string,
	isDependent bool,
	now time.Time,
) (*FamilyMember, error) {
	if headID == memberID {
		return nil, dErrors.New(dErrors.CodeValidation, "a citizen cannot be a member of their own household")
	}
	relationship = NormalizeRelationship(relationship)
	if relationship == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "relationship is required")
	}
	return &FamilyMember{
		ID:           edgeID,
		HeadID:       headID,
		MemberID:     memberID,
		Relationship: relationship,
		IsDependent:  isDependent,
		CreatedAt:    now,
	}, nil
}

// DirectoryEntry is the identity data the Citizen Directory supplies.
type DirectoryEntry struct {
	CitizenID id.CitizenID `json:"citizenId"`
	FullName  string       `json:"fullName"`
	BirthDate *time.Time   `json:"birthDate,omitempty"`
}

// AgeAt returns the age in whole years at now, or nil when the birth date is
// unknown or lies in the future.
func AgeAt(birth *time.Time, now time.Time) *int {
	if birth == nil || birth.After(now) {
		return nil
	}
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return &age
}

// MemberView is one row of the composition view.
type MemberView struct {
	CitizenID    id.CitizenID `json:"citizenId"`
	FullName     string       `json:"fullName,omitempty"`
	Relationship string       `json:"relationship,omitempty"`
	IsDependent  bool         `json:"isDependent"`
	Age          *int         `json:"age,omitempty"`
}

// Composition is a household as seen from its head. Totals include the head.
type Composition struct {
	Head            MemberView   `json:"head"`
	Members         []MemberView `json:"members"`
	TotalMembers    int          `json:"totalMembers"`
	TotalDependents int          `json:"totalDependents"`
	TotalMinors     int          `json:"totalMinors"`
	TotalElderly    int          `json:"totalElderly"`
	AverageAge      *float64     `json:"averageAge,omitempty"`

	// DirectoryIncomplete is set when some identities could not be resolved
	// and their ages are missing.
	DirectoryIncomplete bool `json:"directoryIncomplete,omitempty"`
}

// Summarize fills the totals from Head and Members. Minors and elders are
// counted among members only; the average covers everyone with a known age.
func (c *Composition) Summarize() {
	c.TotalMembers = len(c.Members) + 1
	c.TotalDependents, c.TotalMinors, c.TotalElderly = 0, 0, 0

	var sum, known int
	if c.Head.Age != nil {
		sum += *c.Head.Age
		known++
	}
	for _, m := range c.Members {
		if m.IsDependent {
			c.TotalDependents++
		}
		if m.Age == nil {
			continue
		}
		sum += *m.Age
		known++
		switch {
		case *m.Age < AdultAge:
			c.TotalMinors++
		case *m.Age >= ElderlyAge:
			c.TotalElderly++
		}
	}
	c.AverageAge = nil
	if known > 0 {
		avg := math.Round(float64(sum)/float64(known)*10) / 10
		c.AverageAge = &avg
	}
}
