package service

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"civitas/internal/citizen/models"
	protocol "civitas/internal/protocol/models"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/audit"
	"civitas/pkg/platform/sentinel"
	"civitas/pkg/requestcontext"
)

// contextNameKey holds the directory name of the linked citizen in a link's
// context data unless the caller supplied one.
const contextNameKey = "linkedCitizenName"

type LinkInput struct {
	ProtocolID   id.ProtocolID
	CitizenID    id.CitizenID
	LinkType     models.LinkType
	Role         models.LinkRole
	Relationship string
	ContextData  map[string]any
}

// Link attaches a citizen to a protocol. Family-like links are verified on
// creation when the protocol owner's household already contains the
// citizen; every other link starts unverified.
func (s *Service) Link(ctx context.Context, in LinkInput, actor protocol.Actor) (link *models.CitizenLink, err error) {
	ctx, span := s.startSpan(ctx, "Link")
	span.SetAttributes(attribute.String("protocol.id", in.ProtocolID.String()), attribute.String("link.type", string(in.LinkType)))
	defer func() { endSpan(span, err) }()

	contextData, err := s.resolveContext(ctx, in)
	if err != nil {
		return nil, err
	}

	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		p, err := s.protocols.FindByID(ctx, in.ProtocolID)
		if err != nil {
			return translate(err, "protocol not found")
		}
		if !actor.CanAccess(p) {
			return s.deny(ctx, actor, "protocol", p.ID.String(), "link citizens to this protocol")
		}
		if p.CitizenID != nil && *p.CitizenID == in.CitizenID {
			return dErrors.New(dErrors.CodeValidation, "the protocol owner cannot be linked to their own protocol")
		}

		link, err = models.NewCitizenLink(id.LinkID(uuid.New()), p.ID, in.CitizenID, in.LinkType, in.Role,
			in.Relationship, contextData, now)
		if err != nil {
			return err
		}
		edge, err := s.householdEdge(ctx, p, link)
		if err != nil {
			return err
		}
		if edge != nil {
			if err := link.Verify(nil, now); err != nil {
				return err
			}
			if link.Relationship == "" {
				link.Relationship = edge.Relationship
			}
		}

		if err := s.links.Create(ctx, link); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Newf(dErrors.CodeConflict, "citizen is already linked to this protocol as %s", link.LinkType)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create link")
		}
		msg := fmt.Sprintf("%s linked as %s", link.LinkType, link.Role)
		if err := s.appendTrail(ctx, protocol.NewInteraction(p.ID, protocol.InteractionLinkAdded, actor, msg, now)); err != nil {
			return err
		}
		if err := s.emit(ctx, audit.EventLinkCreated, "citizen_link", link.ID.String(), actor, string(link.LinkType)); err != nil {
			return err
		}
		if link.IsVerified {
			entry := protocol.NewInteraction(p.ID, protocol.InteractionLinkVerified, protocol.SystemActor,
				"verified from household composition", now)
			if err := s.appendTrail(ctx, entry); err != nil {
				return err
			}
			if err := s.emit(ctx, audit.EventLinkVerified, "citizen_link", link.ID.String(), protocol.SystemActor, "household"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "citizen linked",
		"protocol_id", link.ProtocolID.String(),
		"link_id", link.ID.String(),
		"link_type", string(link.LinkType),
		"auto_verified", link.IsVerified,
		"request_id", requestcontext.RequestID(ctx),
	)
	return link, nil
}

// resolveContext copies the caller's context data and fills the linked
// citizen's name from the directory. An unknown citizen fails the link; an
// unreachable directory only skips the auto-fill.
func (s *Service) resolveContext(ctx context.Context, in LinkInput) (map[string]any, error) {
	data := maps.Clone(in.ContextData)
	if s.directory == nil {
		return data, nil
	}
	entry, err := s.directory.Lookup(ctx, in.CitizenID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "linked citizen is not registered")
		}
		s.logger.WarnContext(ctx, "directory lookup failed, linking without identity data",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return data, nil
	}
	if _, set := data[contextNameKey]; !set && entry.FullName != "" {
		if data == nil {
			data = map[string]any{}
		}
		data[contextNameKey] = entry.FullName
	}
	return data, nil
}

// householdEdge returns the owner's household edge to the linked citizen
// when it can vouch for the link.
func (s *Service) householdEdge(ctx context.Context, p *protocol.Protocol, link *models.CitizenLink) (*models.FamilyMember, error) {
	if !link.LinkType.FamilyLike() || p.CitizenID == nil {
		return nil, nil
	}
	edge, err := s.family.Find(ctx, *p.CitizenID, link.CitizenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read household")
	}
	return edge, nil
}

// Verify confirms a link on behalf of a staff member.
func (s *Service) Verify(ctx context.Context, linkID id.LinkID, actor protocol.Actor) (link *models.CitizenLink, err error) {
	ctx, span := s.startSpan(ctx, "Verify")
	span.SetAttributes(attribute.String("link.id", linkID.String()))
	defer func() { endSpan(span, err) }()

	if !actor.CanReview() {
		return nil, s.deny(ctx, actor, "citizen_link", linkID.String(), "verify links")
	}
	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		link, err = s.links.FindByID(ctx, linkID)
		if err != nil {
			return translate(err, "link not found")
		}
		if err := link.Verify(actor.UserRef(), now); err != nil {
			return err
		}
		if err := s.links.Update(ctx, link); err != nil {
			return translate(err, "link not found")
		}
		msg := fmt.Sprintf("%s link verified", link.LinkType)
		if err := s.appendTrail(ctx, protocol.NewInteraction(link.ProtocolID, protocol.InteractionLinkVerified, actor, msg, now)); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventLinkVerified, "citizen_link", link.ID.String(), actor, "")
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "citizen link verified",
		"link_id", link.ID.String(),
		"protocol_id", link.ProtocolID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return link, nil
}

// Unlink deletes the link. The protocol trail keeps a link_removed entry.
func (s *Service) Unlink(ctx context.Context, linkID id.LinkID, actor protocol.Actor) (err error) {
	ctx, span := s.startSpan(ctx, "Unlink")
	span.SetAttributes(attribute.String("link.id", linkID.String()))
	defer func() { endSpan(span, err) }()

	var protocolID id.ProtocolID
	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		link, err := s.links.FindByID(ctx, linkID)
		if err != nil {
			return translate(err, "link not found")
		}
		p, err := s.protocols.FindByID(ctx, link.ProtocolID)
		if err != nil {
			return translate(err, "protocol not found")
		}
		if !actor.CanAccess(p) {
			return s.deny(ctx, actor, "citizen_link", link.ID.String(), "remove links from this protocol")
		}
		if err := s.links.Delete(ctx, link.ID); err != nil {
			return translate(err, "link not found")
		}
		protocolID = p.ID
		msg := fmt.Sprintf("%s link removed", link.LinkType)
		entry := protocol.NewInteraction(p.ID, protocol.InteractionLinkRemoved, actor, msg, requestcontext.Now(ctx))
		if err := s.appendTrail(ctx, entry); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventLinkRemoved, "citizen_link", link.ID.String(), actor, string(link.LinkType))
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "citizen link removed",
		"link_id", linkID.String(),
		"protocol_id", protocolID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// Links lists a protocol's links.
func (s *Service) Links(ctx context.Context, protocolID id.ProtocolID, actor protocol.Actor) (links []*models.CitizenLink, err error) {
	ctx, span := s.startSpan(ctx, "Links")
	defer func() { endSpan(span, err) }()

	p, err := s.protocols.FindByID(ctx, protocolID)
	if err != nil {
		return nil, translate(err, "protocol not found")
	}
	if !actor.CanAccess(p) {
		return nil, s.deny(ctx, actor, "protocol", p.ID.String(), "read links of this protocol")
	}
	links, err = s.links.ListByProtocol(ctx, p.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list links")
	}
	return links, nil
}

// CitizenLinks lists the protocols a citizen takes part in without owning
// them, optionally narrowed to some link types.
func (s *Service) CitizenLinks(ctx context.Context, citizenID id.CitizenID, types []models.LinkType, actor protocol.Actor) (links []*models.CitizenLink, err error) {
	ctx, span := s.startSpan(ctx, "CitizenLinks")
	defer func() { endSpan(span, err) }()

	if !canActFor(actor, citizenID) {
		return nil, s.deny(ctx, actor, "citizen", citizenID.String(), "read links of this citizen")
	}
	links, err = s.links.ListByCitizen(ctx, citizenID, types)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list links")
	}
	return links, nil
}

// canActFor allows staff and the citizen themself.
func canActFor(actor protocol.Actor, citizenID id.CitizenID) bool {
	if actor.IsStaff() {
		return true
	}
	return actor.Role == protocol.RoleCitizen && id.CitizenID(actor.ID) == citizenID
}
