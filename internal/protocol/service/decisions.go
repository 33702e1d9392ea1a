package service

import (
	"context"
	"strings"

	"civitas/internal/platform/i18n"
	"civitas/internal/protocol/models"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/audit"
)

// Decision is a staff action on a protocol. Comment is free text for
// approvals; Reason is mandatory for rejection and cancellation.
type Decision struct {
	ProtocolID id.ProtocolID
	Actor      models.Actor
	Comment    string
	Reason     string
}

// StartAnalysis moves a RECEIVED protocol to UNDER_ANALYSIS.
func (s *Service) StartAnalysis(ctx context.Context, d Decision) (p *models.Protocol, err error) {
	ctx, span := s.startSpan(ctx, "StartAnalysis", d.ProtocolID)
	defer func() { endSpan(span, err) }()

	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		p, err = s.loadForUpdate(ctx, d.ProtocolID, d.Actor)
		if err != nil {
			return err
		}
		if !d.Actor.CanReview() {
			return s.deny(ctx, d.Actor, p, "analyse")
		}
		return s.transition(ctx, p, models.StatusUnderAnalysis, d.Actor, strings.TrimSpace(d.Comment))
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Approve moves the protocol to APPROVED. It fails with
// CodeDocumentsPending while any required document is not approved.
func (s *Service) Approve(ctx context.Context, d Decision) (p *models.Protocol, err error) {
	ctx, span := s.startSpan(ctx, "Approve", d.ProtocolID)
	defer func() { endSpan(span, err) }()
	return s.gatedTransition(ctx, d, models.StatusApproved, audit.EventProtocolApproved, "approve")
}

// Complete closes an APPROVED protocol. The document gate is checked again
// since documents may have been requested after approval.
func (s *Service) Complete(ctx context.Context, d Decision) (p *models.Protocol, err error) {
	ctx, span := s.startSpan(ctx, "Complete", d.ProtocolID)
	defer func() { endSpan(span, err) }()
	return s.gatedTransition(ctx, d, models.StatusCompleted, audit.EventProtocolCompleted, "complete")
}

func (s *Service) gatedTransition(ctx context.Context, d Decision, next models.Status, event audit.AuditEvent, verb string) (p *models.Protocol, err error) {
	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		p, err = s.loadForUpdate(ctx, d.ProtocolID, d.Actor)
		if err != nil {
			return err
		}
		if !d.Actor.CanReview() {
			return s.deny(ctx, d.Actor, p, verb)
		}
		if err := p.CheckTransition(next); err != nil {
			return err
		}
		docs, err := s.repos.Documents.ListByProtocol(ctx, p.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
		}
		if pending := models.PendingRequired(docs); pending > 0 {
			return dErrors.New(dErrors.CodeDocumentsPending, i18n.Sprintf(ctx, i18n.MsgDocumentsPending, pending))
		}
		comment := strings.TrimSpace(d.Comment)
		if err := s.transition(ctx, p, next, d.Actor, comment); err != nil {
			return err
		}
		return s.emit(ctx, event, p, d.Actor, string(next), comment)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Reject closes the protocol. The specialized record is kept and only its
// status follows.
func (s *Service) Reject(ctx context.Context, d Decision) (p *models.Protocol, err error) {
	ctx, span := s.startSpan(ctx, "Reject", d.ProtocolID)
	defer func() { endSpan(span, err) }()

	reason := strings.TrimSpace(d.Reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a rejection reason is required")
	}
	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		p, err = s.loadForUpdate(ctx, d.ProtocolID, d.Actor)
		if err != nil {
			return err
		}
		if !d.Actor.CanReject() {
			return s.deny(ctx, d.Actor, p, "reject")
		}
		if err := s.transition(ctx, p, models.StatusRejected, d.Actor, reason); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventProtocolRejected, p, d.Actor, string(models.StatusRejected), reason)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Cancel closes the protocol on behalf of its owner or staff.
func (s *Service) Cancel(ctx context.Context, d Decision) (p *models.Protocol, err error) {
	ctx, span := s.startSpan(ctx, "Cancel", d.ProtocolID)
	defer func() { endSpan(span, err) }()

	reason := strings.TrimSpace(d.Reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a cancellation reason is required")
	}
	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		p, err = s.loadForUpdate(ctx, d.ProtocolID, d.Actor)
		if err != nil {
			return err
		}
		if err := s.transition(ctx, p, models.StatusCancelled, d.Actor, reason); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventProtocolCancelled, p, d.Actor, string(models.StatusCancelled), reason)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
