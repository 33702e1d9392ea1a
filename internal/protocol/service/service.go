package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"civitas/internal/module"
	"civitas/internal/protocol/metrics"
	"civitas/internal/protocol/models"
	"civitas/internal/protocol/ports"
	"civitas/internal/sequence"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/audit"
	"civitas/pkg/platform/sentinel"
	"civitas/pkg/requestcontext"
)

// TrackingPrefix is the prefix of protocol tracking numbers.
const TrackingPrefix = "PROT"

// Service is the protocol lifecycle manager. Every mutating operation runs
// in one unit of work covering the specialized record, the protocol status,
// the trail and the compliance audit event.
type Service struct {
	repos      ports.Repositories
	uow        ports.UnitOfWork
	dispatcher ports.Dispatcher
	catalog    ports.ServiceCatalog
	numbers    ports.NumberGenerator

	compliance    ports.AuditPublisher
	security      ports.SecurityAuditor
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	retryAttempts int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditPublisher sets the compliance publisher. Its store must join the
// transaction carried by ctx.
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

// WithRetryAttempts bounds how many times a submission is retried after a
// tracking number collision.
func WithRetryAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.retryAttempts = n
		}
	}
}

// New constructs a Service.
func New(
	repos ports.Repositories,
	uow ports.UnitOfWork,
	dispatcher ports.Dispatcher,
	catalog ports.ServiceCatalog,
	numbers ports.NumberGenerator,
	opts ...Option,
) *Service {
	s := &Service{
		repos:         repos,
		uow:           uow,
		dispatcher:    dispatcher,
		catalog:       catalog,
		numbers:       numbers,
		retryAttempts: sequence.DefaultAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("civitas/protocol")
	}
	return s
}

func (s *Service) startSpan(ctx context.Context, op string, protocolID id.ProtocolID) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "protocol."+op)
	if !protocolID.IsNil() {
		span.SetAttributes(attribute.String("protocol.id", protocolID.String()))
	}
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.Message(err))
	}
	span.End()
}

// recordScope is the module.Scope handed to handlers: numbers come from the
// shared generator and records are written through the transaction in ctx.
type recordScope struct {
	numbers ports.NumberGenerator
	records ports.RecordStore
}

func (r recordScope) NextNumber(ctx context.Context, prefix string) (string, error) {
	return r.numbers.Next(ctx, prefix)
}

func (r recordScope) CreateRecord(ctx context.Context, rec *module.Record) error {
	return r.records.Create(ctx, rec)
}

func (r recordScope) UpdateRecord(ctx context.Context, rec *module.Record) error {
	return r.records.Update(ctx, rec)
}

func (s *Service) scope() module.Scope {
	return recordScope{numbers: s.numbers, records: s.repos.Records}
}

// loadForUpdate fetches and locks a protocol and checks that actor may act
// on it.
func (s *Service) loadForUpdate(ctx context.Context, protocolID id.ProtocolID, actor models.Actor) (*models.Protocol, error) {
	p, err := s.repos.Protocols.FindByIDForUpdate(ctx, protocolID)
	if err != nil {
		return nil, translateNotFound(err, "protocol not found")
	}
	if !actor.CanAccess(p) {
		return nil, s.deny(ctx, actor, p, "access")
	}
	return p, nil
}

// deny reports a permission failure to the security audit and returns the
// forbidden error for the caller.
func (s *Service) deny(ctx context.Context, actor models.Actor, p *models.Protocol, action string) error {
	if s.security != nil {
		ev := audit.Event{
			Category:    audit.CategorySecurity,
			Action:      string(audit.EventPermissionDenied),
			SubjectType: "protocol",
			ActorID:     audit.ActorString(actor.ID),
			ActorRole:   string(actor.Role),
			Decision:    "denied",
			Reason:      action,
			Timestamp:   requestcontext.Now(ctx),
			RequestID:   requestcontext.RequestID(ctx),
		}
		if p != nil {
			ev.Subject = p.ID.String()
			ev.TrackingNumber = p.TrackingNumber
		}
		s.security.Emit(ctx, ev)
	}
	s.logger.WarnContext(ctx, "protocol action denied",
		"action", action,
		"actor_role", string(actor.Role),
		"request_id", requestcontext.RequestID(ctx),
	)
	return dErrors.Newf(dErrors.CodeForbidden, "role %q may not %s this protocol", actor.Role, action)
}

// transition moves p to next, persists it, appends the trail entry and
// propagates the status to the specialized record.
func (s *Service) transition(ctx context.Context, p *models.Protocol, next models.Status, actor models.Actor, message string) error {
	now := requestcontext.Now(ctx)
	from, err := p.TransitionTo(next, now)
	if err != nil {
		return err
	}
	if err := s.repos.Protocols.Update(ctx, p); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update protocol")
	}
	if err := s.repos.Interactions.Append(ctx, models.NewTransition(p.ID, from, next, actor, message, now)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append interaction")
	}
	if err := s.notifyRecord(ctx, p); err != nil {
		return err
	}
	s.metrics.IncTransition(string(from), string(next))
	s.logger.InfoContext(ctx, "protocol status changed",
		"protocol_id", p.ID.String(),
		"tracking_number", p.TrackingNumber,
		"from", string(from),
		"to", string(next),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

func (s *Service) notifyRecord(ctx context.Context, p *models.Protocol) error {
	if p.RecordID == nil {
		return nil
	}
	rec, err := s.repos.Records.FindByID(ctx, *p.RecordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load specialized record")
	}
	if _, err := s.dispatcher.Notify(ctx, rec, string(p.Status), s.scope()); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update specialized record status")
	}
	return nil
}

func (s *Service) appendInteraction(ctx context.Context, in *models.Interaction) error {
	if err := s.repos.Interactions.Append(ctx, in); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append interaction")
	}
	return nil
}

// emit writes a compliance event. A failure aborts the enclosing unit of
// work.
func (s *Service) emit(ctx context.Context, event audit.AuditEvent, p *models.Protocol, actor models.Actor, decision, reason string) error {
	if s.compliance == nil {
		return nil
	}
	err := s.compliance.Emit(ctx, audit.Event{
		Action:         string(event),
		SubjectType:    "protocol",
		Subject:        p.ID.String(),
		TrackingNumber: p.TrackingNumber,
		ActorID:        audit.ActorString(actor.ID),
		ActorRole:      string(actor.Role),
		Decision:       decision,
		Reason:         reason,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write audit event")
	}
	return nil
}

func translateNotFound(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, msg)
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "storage failure")
}
