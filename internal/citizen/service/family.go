package service

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"civitas/internal/citizen/models"
	protocol "civitas/internal/protocol/models"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/audit"
	"civitas/pkg/platform/sentinel"
	"civitas/pkg/requestcontext"
)

type FamilyInput struct {
	HeadID       id.CitizenID
	MemberID     id.CitizenID
	Relationship string
	IsDependent  bool
}

// AddFamilyMember records a household edge from the head to the member.
func (s *Service) AddFamilyMember(ctx context.Context, in FamilyInput, actor protocol.Actor) (member *models.FamilyMember, err error) {
	ctx, span := s.startSpan(ctx, "AddFamilyMember")
	span.SetAttributes(attribute.String("household.head", in.HeadID.String()))
	defer func() { endSpan(span, err) }()

	if !canActFor(actor, in.HeadID) {
		return nil, s.deny(ctx, actor, "household", in.HeadID.String(), "change this household")
	}
	member, err = models.NewFamilyMember(id.FamilyEdgeID(uuid.New()), in.HeadID, in.MemberID,
		in.Relationship, in.IsDependent, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.family.Add(ctx, member); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "citizen is already a member of this household")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add household member")
		}
		return s.emit(ctx, audit.EventFamilyMemberAdded, "household", member.HeadID.String(), actor, member.Relationship)
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "household member added",
		"head_id", member.HeadID.String(),
		"relationship", member.Relationship,
		"dependent", member.IsDependent,
		"request_id", requestcontext.RequestID(ctx),
	)
	return member, nil
}

// RemoveFamilyMember deletes the edge from head to member.
func (s *Service) RemoveFamilyMember(ctx context.Context, headID, memberID id.CitizenID, actor protocol.Actor) (err error) {
	ctx, span := s.startSpan(ctx, "RemoveFamilyMember")
	span.SetAttributes(attribute.String("household.head", headID.String()))
	defer func() { endSpan(span, err) }()

	if !canActFor(actor, headID) {
		return s.deny(ctx, actor, "household", headID.String(), "change this household")
	}
	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.family.Remove(ctx, headID, memberID); err != nil {
			return translate(err, "citizen is not a member of this household")
		}
		return s.emit(ctx, audit.EventFamilyMemberRemoved, "household", headID.String(), actor, "")
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "household member removed",
		"head_id", headID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// FamilyComposition returns the household headed by headID. Names and ages
// come from the directory at read time; citizens it cannot resolve are
// listed without them and the view is flagged incomplete.
func (s *Service) FamilyComposition(ctx context.Context, headID id.CitizenID, actor protocol.Actor) (c *models.Composition, err error) {
	ctx, span := s.startSpan(ctx, "FamilyComposition")
	span.SetAttributes(attribute.String("household.head", headID.String()))
	defer func() { endSpan(span, err) }()

	if !canActFor(actor, headID) {
		return nil, s.deny(ctx, actor, "household", headID.String(), "read this household")
	}
	edges, err := s.family.ListByHead(ctx, headID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list household")
	}

	c = &models.Composition{
		Head:    models.MemberView{CitizenID: headID},
		Members: make([]models.MemberView, len(edges)),
	}
	for i, e := range edges {
		c.Members[i] = models.MemberView{
			CitizenID:    e.MemberID,
			Relationship: e.Relationship,
			IsDependent:  e.IsDependent,
		}
	}
	if s.directory != nil {
		if err := s.resolveMembers(ctx, c); err != nil {
			return nil, err
		}
	}
	c.Summarize()
	return c, nil
}

// resolveMembers looks up the head and every member concurrently. Each
// goroutine writes only its own slot.
func (s *Service) resolveMembers(ctx context.Context, c *models.Composition) error {
	now := requestcontext.Now(ctx)
	var incomplete atomic.Bool

	views := make([]*models.MemberView, 0, len(c.Members)+1)
	views = append(views, &c.Head)
	for i := range c.Members {
		views = append(views, &c.Members[i])
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.lookupConcurrency)
	for _, v := range views {
		g.Go(func() error {
			entry, err := s.directory.Lookup(gctx, v.CitizenID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				incomplete.Store(true)
				return nil
			}
			v.FullName = entry.FullName
			v.Age = models.AgeAt(entry.BirthDate, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "household lookup cancelled")
	}
	if incomplete.Load() {
		c.DirectoryIncomplete = true
		s.logger.WarnContext(ctx, "household composition is missing directory data",
			"head_id", c.Head.CitizenID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return nil
}
