package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"civitas/internal/citizen/models"
	citizenmemory "civitas/internal/citizen/store/memory"
	protocol "civitas/internal/protocol/models"
	protocolmemory "civitas/internal/protocol/store/memory"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/audit"
	"civitas/pkg/platform/audit/publishers/compliance"
	auditmemory "civitas/pkg/platform/audit/store/memory"
	"civitas/pkg/platform/tx"
	"civitas/pkg/requestcontext"
)

// fakeDirectory answers from a map. Citizens in down fail as if the
// directory were unreachable.
type fakeDirectory struct {
	mu      sync.Mutex
	entries map[id.CitizenID]models.DirectoryEntry
	down    map[id.CitizenID]bool
	calls   int
}

func (d *fakeDirectory) Lookup(_ context.Context, citizenID id.CitizenID) (*models.DirectoryEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.down[citizenID] {
		return nil, dErrors.New(dErrors.CodeUnavailable, "directory down")
	}
	e, ok := d.entries[citizenID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "citizen not found")
	}
	return &e, nil
}

func (d *fakeDirectory) add(name string, birth time.Time) id.CitizenID {
	cid := id.CitizenID(uuid.New())
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[cid] = models.DirectoryEntry{CitizenID: cid, FullName: name, BirthDate: &birth}
	return cid
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAuditor) Emit(_ context.Context, ev audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

type failingAuditStore struct{}

func (failingAuditStore) Append(context.Context, audit.Event) error {
	return errors.New("outbox unavailable")
}

type CitizenServiceSuite struct {
	suite.Suite
	ctx       context.Context
	protocols *protocolmemory.DB
	citizens  *citizenmemory.DB
	outbox    *auditmemory.Outbox
	directory *fakeDirectory
	security  *recordingAuditor
	svc       *Service

	owner    id.CitizenID
	child    id.CitizenID
	stranger id.CitizenID
	p        *protocol.Protocol

	ownerActor protocol.Actor
	clerk      protocol.Actor
}

func TestCitizenServiceSuite(t *testing.T) {
	suite.Run(t, new(CitizenServiceSuite))
}

func (s *CitizenServiceSuite) SetupTest() {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), now)
	s.ctx = requestcontext.WithRequestID(s.ctx, "req-1")

	s.directory = &fakeDirectory{entries: map[id.CitizenID]models.DirectoryEntry{}, down: map[id.CitizenID]bool{}}
	s.owner = s.directory.add("Carla Dias", time.Date(1985, 6, 1, 0, 0, 0, 0, time.UTC))
	s.child = s.directory.add("Lucas Dias", time.Date(2014, 9, 20, 0, 0, 0, 0, time.UTC))
	s.stranger = s.directory.add("Pedro Alves", time.Date(1979, 2, 2, 0, 0, 0, 0, time.UTC))

	s.ownerActor = protocol.Actor{ID: id.UserID(s.owner), Role: protocol.RoleCitizen}
	s.clerk = protocol.Actor{ID: id.UserID(uuid.New()), Role: protocol.RoleClerk}

	s.svc = s.build(nil)

	owner := s.owner
	p, err := protocol.NewProtocol(id.ProtocolID(uuid.New()), "PROT-2025-00001", id.ServiceID(uuid.New()), &owner,
		id.PriorityNormal, nil, now)
	s.Require().NoError(err)
	s.Require().NoError(s.protocols.Repositories().Protocols.Create(s.ctx, p))
	s.p = p
}

func (s *CitizenServiceSuite) build(auditStore audit.Store) *Service {
	s.protocols = protocolmemory.NewDB()
	s.citizens = citizenmemory.NewDB()
	s.outbox = auditmemory.NewOutbox()
	s.security = &recordingAuditor{}
	if auditStore == nil {
		auditStore = s.outbox
	}
	repos := s.protocols.Repositories()
	uow := tx.NewMemory(time.Second, s.protocols, s.citizens, s.outbox)
	return New(s.citizens.Links(), s.citizens.Family(), repos.Protocols, repos.Interactions, uow,
		WithDirectory(s.directory),
		WithAuditPublisher(compliance.New(auditStore)),
		WithSecurityAuditor(s.security),
	)
}

func (s *CitizenServiceSuite) trailKinds() []protocol.InteractionKind {
	trail, err := s.protocols.Repositories().Interactions.ListByProtocol(s.ctx, s.p.ID)
	s.Require().NoError(err)
	kinds := make([]protocol.InteractionKind, len(trail))
	for i, in := range trail {
		kinds[i] = in.Kind
	}
	return kinds
}

func (s *CitizenServiceSuite) auditActions() []string {
	var out []string
	for _, ev := range s.outbox.Events() {
		out = append(out, ev.Action)
	}
	return out
}

func (s *CitizenServiceSuite) linkInput(citizen id.CitizenID, lt models.LinkType) LinkInput {
	return LinkInput{ProtocolID: s.p.ID, CitizenID: citizen, LinkType: lt, Role: models.RoleResponsible}
}

// =============================================================================
// Link lifecycle
// =============================================================================
// Justification for unit tests: verification state, household vouching and
// the trail entries are business rules that only show up through the service.

func (s *CitizenServiceSuite) TestGuardianLinkIsVerifiedByStaff() {
	lt, err := models.ParseLinkType("GUARDIAN")
	s.Require().NoError(err)
	role, err := models.ParseLinkRole("RESPONSIBLE")
	s.Require().NoError(err)

	link, err := s.svc.Link(s.ctx, LinkInput{ProtocolID: s.p.ID, CitizenID: s.stranger, LinkType: lt, Role: role}, s.clerk)
	s.Require().NoError(err)
	s.False(link.IsVerified)
	s.Nil(link.VerifiedAt)
	s.Equal("Pedro Alves", link.ContextData["linkedCitizenName"])

	verified, err := s.svc.Verify(s.ctx, link.ID, s.clerk)
	s.Require().NoError(err)
	s.True(verified.IsVerified)
	s.Require().NotNil(verified.VerifiedAt)
	s.Equal(requestcontext.Now(s.ctx), *verified.VerifiedAt)
	s.Require().NotNil(verified.VerifiedBy)
	s.Equal(s.clerk.ID, *verified.VerifiedBy)

	links, err := s.svc.Links(s.ctx, s.p.ID, s.ownerActor)
	s.Require().NoError(err)
	s.Require().Len(links, 1)
	s.True(links[0].IsVerified)

	s.Equal([]protocol.InteractionKind{protocol.InteractionLinkAdded, protocol.InteractionLinkVerified}, s.trailKinds())
	s.Equal([]string{string(audit.EventLinkCreated), string(audit.EventLinkVerified)}, s.auditActions())

	_, err = s.svc.Verify(s.ctx, link.ID, s.clerk)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "already verified")
}

func (s *CitizenServiceSuite) TestHouseholdEdgeVerifiesFamilyLinks() {
	_, err := s.svc.AddFamilyMember(s.ctx, FamilyInput{HeadID: s.owner, MemberID: s.child, Relationship: "son", IsDependent: true}, s.ownerActor)
	s.Require().NoError(err)

	s.Run("family-like link is verified by the engine", func() {
		link, err := s.svc.Link(s.ctx, s.linkInput(s.child, models.LinkDependent), s.ownerActor)
		s.Require().NoError(err)
		s.True(link.IsVerified)
		s.Nil(link.VerifiedBy)
		s.Equal("son", link.Relationship)
	})

	s.Run("other link types stay unverified", func() {
		link, err := s.svc.Link(s.ctx, s.linkInput(s.child, models.LinkStudent), s.ownerActor)
		s.Require().NoError(err)
		s.False(link.IsVerified)
	})

	s.Run("family-like link without an edge stays unverified", func() {
		link, err := s.svc.Link(s.ctx, s.linkInput(s.stranger, models.LinkGuardian), s.ownerActor)
		s.Require().NoError(err)
		s.False(link.IsVerified)
	})

	trail, err := s.protocols.Repositories().Interactions.ListByProtocol(s.ctx, s.p.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 4)
	s.Equal(protocol.InteractionLinkVerified, trail[1].Kind)
	s.Equal(protocol.RoleSystem, trail[1].ActorRole)
	s.Nil(trail[1].ActorID)
}

func (s *CitizenServiceSuite) TestLinkRejections() {
	s.Run("duplicate triple", func() {
		_, err := s.svc.Link(s.ctx, s.linkInput(s.stranger, models.LinkWitness), s.clerk)
		s.Require().NoError(err)
		_, err = s.svc.Link(s.ctx, s.linkInput(s.stranger, models.LinkWitness), s.clerk)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("protocol owner", func() {
		_, err := s.svc.Link(s.ctx, s.linkInput(s.owner, models.LinkBeneficiary), s.clerk)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("citizen unknown to the directory", func() {
		_, err := s.svc.Link(s.ctx, s.linkInput(id.CitizenID(uuid.New()), models.LinkWitness), s.clerk)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unreachable directory links without identity data", func() {
		s.directory.down[s.child] = true
		defer delete(s.directory.down, s.child)
		link, err := s.svc.Link(s.ctx, s.linkInput(s.child, models.LinkCompanion), s.clerk)
		s.Require().NoError(err)
		s.Nil(link.ContextData)
	})

	s.Run("missing protocol", func() {
		in := s.linkInput(s.stranger, models.LinkOther)
		in.ProtocolID = id.ProtocolID(uuid.New())
		_, err := s.svc.Link(s.ctx, in, s.clerk)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("another citizen's protocol", func() {
		other := protocol.Actor{ID: id.UserID(s.stranger), Role: protocol.RoleCitizen}
		_, err := s.svc.Link(s.ctx, s.linkInput(s.child, models.LinkOther), other)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.NotEmpty(s.security.events)
	})

	s.Run("citizens cannot verify", func() {
		link, err := s.svc.Link(s.ctx, s.linkInput(s.stranger, models.LinkAuthorizedPerson), s.ownerActor)
		s.Require().NoError(err)
		_, err = s.svc.Verify(s.ctx, link.ID, s.ownerActor)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *CitizenServiceSuite) TestUnlinkKeepsTrail() {
	link, err := s.svc.Link(s.ctx, s.linkInput(s.stranger, models.LinkCompanion), s.ownerActor)
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Unlink(s.ctx, link.ID, s.ownerActor))

	links, err := s.svc.Links(s.ctx, s.p.ID, s.clerk)
	s.Require().NoError(err)
	s.Empty(links)
	s.Equal([]protocol.InteractionKind{protocol.InteractionLinkAdded, protocol.InteractionLinkRemoved}, s.trailKinds())
	s.Contains(s.auditActions(), string(audit.EventLinkRemoved))

	err = s.svc.Unlink(s.ctx, link.ID, s.ownerActor)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CitizenServiceSuite) TestAuditFailureRollsBackLink() {
	s.svc = s.build(failingAuditStore{})
	owner := s.owner
	p, err := protocol.NewProtocol(id.ProtocolID(uuid.New()), "PROT-2025-00002", id.ServiceID(uuid.New()), &owner,
		id.PriorityNormal, nil, requestcontext.Now(s.ctx))
	s.Require().NoError(err)
	s.Require().NoError(s.protocols.Repositories().Protocols.Create(s.ctx, p))

	_, err = s.svc.Link(s.ctx, LinkInput{ProtocolID: p.ID, CitizenID: s.stranger, LinkType: models.LinkWitness, Role: models.RoleWitness}, s.clerk)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	links, err := s.citizens.Links().ListByProtocol(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Empty(links)
	trail, err := s.protocols.Repositories().Interactions.ListByProtocol(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Empty(trail)
}

func (s *CitizenServiceSuite) TestCitizenLinks() {
	_, err := s.svc.Link(s.ctx, s.linkInput(s.stranger, models.LinkWitness), s.clerk)
	s.Require().NoError(err)
	_, err = s.svc.Link(s.ctx, s.linkInput(s.stranger, models.LinkCompanion), s.clerk)
	s.Require().NoError(err)

	self := protocol.Actor{ID: id.UserID(s.stranger), Role: protocol.RoleCitizen}
	links, err := s.svc.CitizenLinks(s.ctx, s.stranger, []models.LinkType{models.LinkWitness}, self)
	s.Require().NoError(err)
	s.Require().Len(links, 1)
	s.Equal(models.LinkWitness, links[0].LinkType)

	_, err = s.svc.CitizenLinks(s.ctx, s.stranger, nil, s.ownerActor)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

// =============================================================================
// Household
// =============================================================================

func (s *CitizenServiceSuite) TestFamilyMembers() {
	s.Run("self reference", func() {
		_, err := s.svc.AddFamilyMember(s.ctx, FamilyInput{HeadID: s.owner, MemberID: s.owner, Relationship: "self"}, s.ownerActor)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("duplicate edge", func() {
		in := FamilyInput{HeadID: s.owner, MemberID: s.child, Relationship: "son", IsDependent: true}
		_, err := s.svc.AddFamilyMember(s.ctx, in, s.ownerActor)
		s.Require().NoError(err)
		_, err = s.svc.AddFamilyMember(s.ctx, in, s.clerk)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("another household", func() {
		in := FamilyInput{HeadID: s.stranger, MemberID: s.child, Relationship: "nephew"}
		_, err := s.svc.AddFamilyMember(s.ctx, in, s.ownerActor)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("remove", func() {
		s.Require().NoError(s.svc.RemoveFamilyMember(s.ctx, s.owner, s.child, s.ownerActor))
		err := s.svc.RemoveFamilyMember(s.ctx, s.owner, s.child, s.ownerActor)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Equal([]string{string(audit.EventFamilyMemberAdded), string(audit.EventFamilyMemberRemoved)}, s.auditActions())
}

func (s *CitizenServiceSuite) TestFamilyComposition() {
	grandma := s.directory.add("Rosa Dias", time.Date(1950, 1, 15, 0, 0, 0, 0, time.UTC))
	unknown := id.CitizenID(uuid.New())
	for _, in := range []FamilyInput{
		{HeadID: s.owner, MemberID: s.child, Relationship: "son", IsDependent: true},
		{HeadID: s.owner, MemberID: grandma, Relationship: "mother", IsDependent: true},
		{HeadID: s.owner, MemberID: unknown, Relationship: "spouse"},
	} {
		_, err := s.svc.AddFamilyMember(s.ctx, in, s.clerk)
		s.Require().NoError(err)
	}

	c, err := s.svc.FamilyComposition(s.ctx, s.owner, s.ownerActor)
	s.Require().NoError(err)

	s.Equal("Carla Dias", c.Head.FullName)
	s.Require().NotNil(c.Head.Age)
	s.Equal(39, *c.Head.Age)
	s.Require().Len(c.Members, 3)
	byID := make(map[id.CitizenID]models.MemberView, len(c.Members))
	for _, m := range c.Members {
		byID[m.CitizenID] = m
	}
	s.Equal("Lucas Dias", byID[s.child].FullName)
	s.Require().NotNil(byID[s.child].Age)
	s.Equal(10, *byID[s.child].Age)
	s.Equal("mother", byID[grandma].Relationship)
	s.Nil(byID[unknown].Age)

	s.Equal(4, c.TotalMembers)
	s.Equal(2, c.TotalDependents)
	s.Equal(1, c.TotalMinors)
	s.Equal(1, c.TotalElderly)
	s.True(c.DirectoryIncomplete)
	s.Require().NotNil(c.AverageAge)
	s.InDelta(41.3, *c.AverageAge, 0.001)

	_, err = s.svc.FamilyComposition(s.ctx, s.owner, protocol.Actor{ID: id.UserID(s.stranger), Role: protocol.RoleCitizen})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *CitizenServiceSuite) TestFamilyCompositionWithoutDirectory() {
	repos := s.protocols.Repositories()
	svc := New(s.citizens.Links(), s.citizens.Family(), repos.Protocols, repos.Interactions,
		tx.NewMemory(time.Second, s.protocols, s.citizens))
	_, err := svc.AddFamilyMember(s.ctx, FamilyInput{HeadID: s.owner, MemberID: s.child, Relationship: "son"}, s.clerk)
	s.Require().NoError(err)

	c, err := svc.FamilyComposition(s.ctx, s.owner, s.clerk)
	s.Require().NoError(err)
	s.Equal(2, c.TotalMembers)
	s.Nil(c.AverageAge)
	s.False(c.DirectoryIncomplete)
	s.Zero(s.directory.calls)
}
