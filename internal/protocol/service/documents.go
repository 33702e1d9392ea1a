package service

import (
	"context"

	"github.com/google/uuid"

	"civitas/internal/protocol/models"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/audit"
	"civitas/pkg/requestcontext"
)

// DocumentRequest asks the submitter for one more document.
type DocumentRequest struct {
	ProtocolID  id.ProtocolID
	Actor       models.Actor
	Type        string
	Description string
	Optional    bool
}

// RequestDocument creates a PENDING document. A required document moves a
// RECEIVED or UNDER_ANALYSIS protocol to PENDING_DOCUMENTS.
func (s *Service) RequestDocument(ctx context.Context, req DocumentRequest) (doc *models.Document, err error) {
	ctx, span := s.startSpan(ctx, "RequestDocument", req.ProtocolID)
	defer func() { endSpan(span, err) }()

	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.loadForUpdate(ctx, req.ProtocolID, req.Actor)
		if err != nil {
			return err
		}
		if !req.Actor.CanReview() {
			return s.deny(ctx, req.Actor, p, "request documents for")
		}
		if err := p.EnsureOpen(); err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		doc, err = models.NewDocument(id.DocumentID(uuid.New()), p.ID, req.Type, req.Description, !req.Optional, now)
		if err != nil {
			return err
		}
		if err := s.repos.Documents.Create(ctx, doc); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create document")
		}
		if err := s.appendInteraction(ctx, models.NewInteraction(p.ID, models.InteractionDocumentRequested, req.Actor, doc.Type, now)); err != nil {
			return err
		}
		if doc.Required && awaitsDocuments(p.Status) {
			return s.transition(ctx, p, models.StatusPendingDocuments, req.Actor, "document requested: "+doc.Type)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// DocumentUpload attaches the submitter's file reference.
type DocumentUpload struct {
	ProtocolID id.ProtocolID
	DocumentID id.DocumentID
	Actor      models.Actor
	FileRef    string
}

// AttachUpload is allowed to the protocol owner and to staff.
func (s *Service) AttachUpload(ctx context.Context, up DocumentUpload) (doc *models.Document, err error) {
	ctx, span := s.startSpan(ctx, "AttachUpload", up.ProtocolID)
	defer func() { endSpan(span, err) }()

	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.loadForUpdate(ctx, up.ProtocolID, up.Actor)
		if err != nil {
			return err
		}
		if err := p.EnsureOpen(); err != nil {
			return err
		}
		doc, err = s.loadDocument(ctx, p.ID, up.DocumentID)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		if err := doc.Upload(up.FileRef, now); err != nil {
			return err
		}
		if err := s.repos.Documents.Update(ctx, doc); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update document")
		}
		return s.appendInteraction(ctx, models.NewInteraction(p.ID, models.InteractionDocumentUploaded, up.Actor, doc.Type, now))
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// StartReview marks an uploaded document as under review.
func (s *Service) StartReview(ctx context.Context, protocolID id.ProtocolID, documentID id.DocumentID, actor models.Actor) (doc *models.Document, err error) {
	ctx, span := s.startSpan(ctx, "StartReview", protocolID)
	defer func() { endSpan(span, err) }()

	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.loadForUpdate(ctx, protocolID, actor)
		if err != nil {
			return err
		}
		if !actor.CanReview() {
			return s.deny(ctx, actor, p, "review documents of")
		}
		if err := p.EnsureOpen(); err != nil {
			return err
		}
		doc, err = s.loadDocument(ctx, p.ID, documentID)
		if err != nil {
			return err
		}
		if err := doc.StartReview(requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := s.repos.Documents.Update(ctx, doc); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update document")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// DocumentReview is a reviewer's decision. Reason is mandatory on
// rejection and is shown to the submitter.
type DocumentReview struct {
	ProtocolID id.ProtocolID
	DocumentID id.DocumentID
	Actor      models.Actor
	Approve    bool
	Reason     string
}

// ReviewDocument applies a decision. Rejecting a required document holds the
// protocol in PENDING_DOCUMENTS; approving the last outstanding one returns
// it to UNDER_ANALYSIS.
func (s *Service) ReviewDocument(ctx context.Context, rv DocumentReview) (doc *models.Document, err error) {
	ctx, span := s.startSpan(ctx, "ReviewDocument", rv.ProtocolID)
	defer func() { endSpan(span, err) }()

	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.loadForUpdate(ctx, rv.ProtocolID, rv.Actor)
		if err != nil {
			return err
		}
		if !rv.Actor.CanReview() {
			return s.deny(ctx, rv.Actor, p, "review documents of")
		}
		if err := p.EnsureOpen(); err != nil {
			return err
		}
		doc, err = s.loadDocument(ctx, p.ID, rv.DocumentID)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		if err := doc.Review(rv.Approve, rv.Reason, rv.Actor.ID, now); err != nil {
			return err
		}
		if err := s.repos.Documents.Update(ctx, doc); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update document")
		}

		decision := "approved"
		message := doc.Type
		if !rv.Approve {
			decision = "rejected"
			message = doc.Type + ": " + doc.RejectionReason
		}
		if err := s.appendInteraction(ctx, models.NewInteraction(p.ID, models.InteractionDocumentReviewed, rv.Actor, message, now)); err != nil {
			return err
		}
		if err := s.emit(ctx, audit.EventDocumentReviewed, p, rv.Actor, decision, doc.RejectionReason); err != nil {
			return err
		}

		switch {
		case !rv.Approve && doc.Required && awaitsDocuments(p.Status):
			if err := s.transition(ctx, p, models.StatusPendingDocuments, rv.Actor, message); err != nil {
				return err
			}
		case rv.Approve && p.Status == models.StatusPendingDocuments:
			docs, err := s.repos.Documents.ListByProtocol(ctx, p.ID)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
			}
			if models.PendingRequired(docs) == 0 {
				if err := s.transition(ctx, p, models.StatusUnderAnalysis, rv.Actor, "all required documents approved"); err != nil {
					return err
				}
			}
		}
		s.metrics.IncDocumentReviewed(decision)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) loadDocument(ctx context.Context, protocolID id.ProtocolID, documentID id.DocumentID) (*models.Document, error) {
	doc, err := s.repos.Documents.FindByID(ctx, protocolID, documentID)
	if err != nil {
		return nil, translateNotFound(err, "document not found")
	}
	return doc, nil
}

// awaitsDocuments reports whether a document event can hold the protocol.
func awaitsDocuments(st models.Status) bool {
	return st == models.StatusReceived || st == models.StatusUnderAnalysis
}
