// Package service manages the citizens attached to a protocol besides its
// owner and the household edges that can vouch for them.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"civitas/internal/citizen/ports"
	protocol "civitas/internal/protocol/models"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/audit"
	"civitas/pkg/platform/sentinel"
	"civitas/pkg/requestcontext"
)

const defaultLookupConcurrency = 8

// Service is the citizen link and family composition manager.
type Service struct {
	links     ports.LinkStore
	family    ports.FamilyStore
	protocols ports.ProtocolReader
	trail     ports.Trail
	uow       ports.UnitOfWork

	directory         ports.Directory
	compliance        ports.AuditPublisher
	security          ports.SecurityAuditor
	logger            *slog.Logger
	tracer            trace.Tracer
	lookupConcurrency int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithDirectory enables identity lookups. Without a directory links are not
// auto-filled and composition ages are left empty.
func WithDirectory(d ports.Directory) Option {
	return func(s *Service) {
		s.directory = d
	}
}

func WithAuditPublisher(p ports.AuditPublisher) Option {
	return func(s *Service) {
		s.compliance = p
	}
}

func WithSecurityAuditor(a ports.SecurityAuditor) Option {
	return func(s *Service) {
		s.security = a
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithLookupConcurrency bounds parallel directory lookups per composition.
func WithLookupConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.lookupConcurrency = n
		}
	}
}

func New(
	links ports.LinkStore,
	family ports.FamilyStore,
	protocols ports.ProtocolReader,
	trail ports.Trail,
	uow ports.UnitOfWork,
	opts ...Option,
) *Service {
	s := &Service{
		links:             links,
		family:            family,
		protocols:         protocols,
		trail:             trail,
		uow:               uow,
		lookupConcurrency: defaultLookupConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("civitas/citizen")
	}
	return s
}

func (s *Service) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "citizen."+op)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.Message(err))
	}
	span.End()
}

// deny reports a permission failure and returns the forbidden error.
func (s *Service) deny(ctx context.Context, actor protocol.Actor, subjectType, subject, action string) error {
	if s.security != nil {
		s.security.Emit(ctx, audit.Event{
			Category:    audit.CategorySecurity,
			Action:      string(audit.EventPermissionDenied),
			SubjectType: subjectType,
			Subject:     subject,
			ActorID:     audit.ActorString(actor.ID),
			ActorRole:   string(actor.Role),
			Decision:    "denied",
			Reason:      action,
			Timestamp:   requestcontext.Now(ctx),
			RequestID:   requestcontext.RequestID(ctx),
		})
	}
	s.logger.WarnContext(ctx, "citizen action denied",
		"action", action,
		"subject_type", subjectType,
		"actor_role", string(actor.Role),
		"request_id", requestcontext.RequestID(ctx),
	)
	return dErrors.Newf(dErrors.CodeForbidden, "role %q may not %s", actor.Role, action)
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, subjectType, subject string, actor protocol.Actor, reason string) error {
	if s.compliance == nil {
		return nil
	}
	err := s.compliance.Emit(ctx, audit.Event{
		Action:      string(event),
		SubjectType: subjectType,
		Subject:     subject,
		ActorID:     audit.ActorString(actor.ID),
		ActorRole:   string(actor.Role),
		Reason:      reason,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write audit event")
	}
	return nil
}

func (s *Service) appendTrail(ctx context.Context, in *protocol.Interaction) error {
	if err := s.trail.Append(ctx, in); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append interaction")
	}
	return nil
}

func translate(err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "already exists")
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "storage failure")
}
