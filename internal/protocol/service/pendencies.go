package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"civitas/internal/protocol/models"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/requestcontext"
)

// PendencyRequest raises an outstanding requirement on a protocol.
type PendencyRequest struct {
	ProtocolID  id.ProtocolID
	Actor       models.Actor
	Description string
	Items       []string
	Priority    id.Priority
	DueDate     *time.Time
}

// CreatePendency appends a pendency. A high or urgent pendency holds an
// UNDER_ANALYSIS protocol in PENDING_DOCUMENTS.
func (s *Service) CreatePendency(ctx context.Context, req PendencyRequest) (pd *models.Pendency, err error) {
	ctx, span := s.startSpan(ctx, "CreatePendency", req.ProtocolID)
	defer func() { endSpan(span, err) }()

	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.loadForUpdate(ctx, req.ProtocolID, req.Actor)
		if err != nil {
			return err
		}
		if !req.Actor.CanReview() {
			return s.deny(ctx, req.Actor, p, "raise pendencies on")
		}
		if err := p.EnsureOpen(); err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		pd, err = models.NewPendency(id.PendencyID(uuid.New()), p.ID, req.Description, req.Items,
			req.Priority, req.DueDate, req.Actor.UserRef(), now)
		if err != nil {
			return err
		}
		if err := s.repos.Pendencies.Create(ctx, pd); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create pendency")
		}
		if err := s.appendInteraction(ctx, models.NewInteraction(p.ID, models.InteractionPendencyCreated, req.Actor, pd.Description, now)); err != nil {
			return err
		}
		if pd.Escalates() && p.Status == models.StatusUnderAnalysis {
			return s.transition(ctx, p, models.StatusPendingDocuments, req.Actor, pd.Description)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pd, nil
}

// ResolvePendency closes a pendency. It does not change the protocol status.
func (s *Service) ResolvePendency(ctx context.Context, protocolID id.ProtocolID, pendencyID id.PendencyID, actor models.Actor) (pd *models.Pendency, err error) {
	ctx, span := s.startSpan(ctx, "ResolvePendency", protocolID)
	defer func() { endSpan(span, err) }()

	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.loadForUpdate(ctx, protocolID, actor)
		if err != nil {
			return err
		}
		if !actor.CanReview() {
			return s.deny(ctx, actor, p, "resolve pendencies of")
		}
		pd, err = s.repos.Pendencies.FindByID(ctx, p.ID, pendencyID)
		if err != nil {
			return translateNotFound(err, "pendency not found")
		}
		now := requestcontext.Now(ctx)
		if err := pd.Resolve(actor.UserRef(), now); err != nil {
			return err
		}
		if err := s.repos.Pendencies.Update(ctx, pd); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update pendency")
		}
		return s.appendInteraction(ctx, models.NewInteraction(p.ID, models.InteractionPendencyResolved, actor, pd.Description, now))
	})
	if err != nil {
		return nil, err
	}
	return pd, nil
}

// AddComment appends a free-text entry. Only staff may write internal notes.
func (s *Service) AddComment(ctx context.Context, protocolID id.ProtocolID, actor models.Actor, message string, internal bool) (in *models.Interaction, err error) {
	ctx, span := s.startSpan(ctx, "AddComment", protocolID)
	defer func() { endSpan(span, err) }()

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "comment cannot be empty")
	}
	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.loadForUpdate(ctx, protocolID, actor)
		if err != nil {
			return err
		}
		if internal && !actor.IsStaff() {
			return s.deny(ctx, actor, p, "write internal notes on")
		}
		in = models.NewInteraction(p.ID, models.InteractionComment, actor, message, requestcontext.Now(ctx))
		in.Internal = internal
		return s.appendInteraction(ctx, in)
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}
