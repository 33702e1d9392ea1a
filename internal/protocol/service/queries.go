package service

import (
	"context"
	"errors"
	"time"

	"civitas/internal/privacy"
	"civitas/internal/protocol/models"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/audit"
	"civitas/pkg/platform/sentinel"
	"civitas/pkg/requestcontext"
)

// Get returns the protocol with its documents, pendencies and the part of
// its trail the actor may see.
func (s *Service) Get(ctx context.Context, protocolID id.ProtocolID, actor models.Actor) (p *models.Protocol, err error) {
	ctx, span := s.startSpan(ctx, "Get", protocolID)
	defer func() { endSpan(span, err) }()

	p, err = s.load(ctx, protocolID, actor)
	if err != nil {
		return nil, err
	}
	if p.Documents, err = s.repos.Documents.ListByProtocol(ctx, p.ID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	if p.Pendencies, err = s.repos.Pendencies.ListByProtocol(ctx, p.ID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pendencies")
	}
	trail, err := s.repos.Interactions.ListByProtocol(ctx, p.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list interactions")
	}
	p.Interactions = models.VisibleTo(actor, trail)
	return p, nil
}

// History returns the trail visible to actor, oldest first.
func (s *Service) History(ctx context.Context, protocolID id.ProtocolID, actor models.Actor) (trail []*models.Interaction, err error) {
	ctx, span := s.startSpan(ctx, "History", protocolID)
	defer func() { endSpan(span, err) }()

	p, err := s.load(ctx, protocolID, actor)
	if err != nil {
		return nil, err
	}
	trail, err = s.repos.Interactions.ListByProtocol(ctx, p.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list interactions")
	}
	return models.VisibleTo(actor, trail), nil
}

func (s *Service) load(ctx context.Context, protocolID id.ProtocolID, actor models.Actor) (*models.Protocol, error) {
	p, err := s.repos.Protocols.FindByID(ctx, protocolID)
	if err != nil {
		return nil, translateNotFound(err, "protocol not found")
	}
	if !actor.CanAccess(p) {
		return nil, s.deny(ctx, actor, p, "read")
	}
	return p, nil
}

// TipStatus is what an anonymous submitter learns from a feedback code.
type TipStatus struct {
	Number    string      `json:"number"`
	Status    string      `json:"status"`
	Priority  id.Priority `json:"priority"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// TipStatus looks a record up by the hash of its feedback code. Unknown
// codes are reported to the security audit since they may be guesses.
func (s *Service) TipStatus(ctx context.Context, code string) (ts *TipStatus, err error) {
	ctx, span := s.startSpan(ctx, "TipStatus", id.ProtocolID{})
	defer func() { endSpan(span, err) }()

	code = privacy.NormalizeFeedbackCode(code)
	if !privacy.ValidFeedbackCode(code) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid feedback code")
	}
	rec, err := s.repos.Records.FindByFeedbackHash(ctx, privacy.HashIdentifier(code))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			if s.security != nil {
				s.security.Emit(ctx, audit.Event{
					Category:    audit.CategorySecurity,
					Action:      string(audit.EventFeedbackCodeUnknown),
					SubjectType: "feedback_code",
					Subject:     "unknown",
					Decision:    "not_found",
					Timestamp:   requestcontext.Now(ctx),
					RequestID:   requestcontext.RequestID(ctx),
				})
			}
			return nil, dErrors.New(dErrors.CodeNotFound, "feedback code not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up feedback code")
	}
	return &TipStatus{
		Number:    rec.Number,
		Status:    rec.Status,
		Priority:  rec.Priority,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}
