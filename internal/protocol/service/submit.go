package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"civitas/internal/catalog"
	"civitas/internal/module"
	"civitas/internal/platform/i18n"
	"civitas/internal/protocol/models"
	"civitas/internal/protocol/ports"
	"civitas/internal/sequence"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/audit"
	"civitas/pkg/platform/sentinel"
	"civitas/pkg/requestcontext"
)

// SubmitInput is a service request as resolved by the transport layer.
// CitizenID is nil for unauthenticated or anonymous submissions.
type SubmitInput struct {
	ServiceID id.ServiceID
	CitizenID *id.CitizenID
	Action    string
	Data      map[string]any
}

// SubmitResult carries what the submitter is shown. FeedbackCode is only
// set for anonymous submissions and is never stored in clear.
type SubmitResult struct {
	Protocol       *models.Protocol `json:"protocol"`
	Record         *module.Record   `json:"record"`
	TrackingNumber string           `json:"trackingNumber"`
	RecordNumber   string           `json:"recordNumber"`
	FeedbackCode   string           `json:"feedbackCode,omitempty"`
	Message        string           `json:"message"`
}

// Submit opens a protocol and materializes its specialized record in the
// same transaction. A tracking number collision rolls the attempt back and
// retries it with fresh numbers.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (result *SubmitResult, err error) {
	ctx, span := s.startSpan(ctx, "Submit", id.ProtocolID{})
	defer func() { endSpan(span, err) }()

	svc, err := s.catalog.Service(ctx, in.ServiceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "service not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load service")
	}
	if in.Data == nil {
		in.Data = map[string]any{}
	}
	if err := svc.ValidatePayload(in.Data); err != nil {
		return nil, err
	}
	handler, ok := s.dispatcher.Lookup(svc.Module)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeHandlerNotFound, "no handler registered for %s", svc.Module)
	}

	citizenID := in.CitizenID
	customData := in.Data
	if sanitizer, ok := handler.(module.PayloadSanitizer); ok {
		clean, anonymous := sanitizer.SanitizePayload(in.Data)
		customData = clean
		if anonymous {
			citizenID = nil
		}
	}

	action := in.Action
	if action == "" {
		action = "create"
	}

	attempt := 0
	numbers := &issuedNumbers{NumberGenerator: s.numbers}
	err = sequence.Retry(ctx, s.retryAttempts, func(n int) error {
		attempt = n
		if n > 1 {
			s.metrics.IncCollision(svc.Module.ModuleType)
			s.logger.WarnContext(ctx, "tracking number collision, retrying submission",
				"service_id", svc.ID.String(),
				"attempt", n,
				"request_id", requestcontext.RequestID(ctx),
			)
			s.catchUp(ctx, numbers.drain())
		}
		return s.uow.RunInTx(ctx, func(ctx context.Context) error {
			res, err := s.submitTx(ctx, numbers, svc, citizenID, customData, module.Action{
				Type:      svc.Module.ModuleType,
				Entity:    svc.Module.Entity,
				Action:    action,
				Data:      in.Data,
				ServiceID: svc.ID,
			})
			if err != nil {
				return err
			}
			result = res
			return nil
		})
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnavailable) && sequence.IsDuplicate(err) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, i18n.Sprintf(ctx, i18n.MsgNumberUnavailable))
		}
		return nil, err
	}

	s.metrics.IncSubmitted(svc.Module.ModuleType)
	s.logger.InfoContext(ctx, "protocol submitted",
		"protocol_id", result.Protocol.ID.String(),
		"tracking_number", result.TrackingNumber,
		"record_number", result.RecordNumber,
		"module", svc.Module.String(),
		"anonymous", result.Protocol.Anonymous,
		"attempts", attempt,
		"request_id", requestcontext.RequestID(ctx),
	)
	return result, nil
}

func (s *Service) submitTx(
	ctx context.Context,
	numbers ports.NumberGenerator,
	svc *catalog.Service,
	citizenID *id.CitizenID,
	customData map[string]any,
	action module.Action,
) (*SubmitResult, error) {
	now := requestcontext.Now(ctx)
	number, err := numbers.Next(ctx, TrackingPrefix)
	if err != nil {
		return nil, err
	}
	p, err := models.NewProtocol(id.ProtocolID(uuid.New()), number, svc.ID, citizenID, svc.Priority, customData, now)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Protocols.Create(ctx, p); err != nil {
		if sequence.IsDuplicate(err) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create protocol")
	}

	for _, req := range svc.Documents {
		doc, err := models.NewDocument(id.DocumentID(uuid.New()), p.ID, req.Type, req.Description, !req.Optional, now)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "invalid catalog document")
		}
		if err := s.repos.Documents.Create(ctx, doc); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create document")
		}
		p.Documents = append(p.Documents, doc)
	}

	action.Protocol = &module.ProtocolRef{ID: p.ID, Number: p.TrackingNumber, CitizenID: citizenID}
	start := time.Now()
	res, err := s.dispatcher.Dispatch(ctx, action, recordScope{numbers: numbers, records: s.repos.Records})
	s.metrics.ObserveDispatch(svc.Module.ModuleType, svc.Module.Entity, time.Since(start))
	if err != nil {
		return nil, err
	}

	p.AttachRecord(res.Record.ID, res.Number, now)
	p.Raise(res.Record.Priority)
	if err := s.repos.Protocols.Update(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to link specialized record")
	}

	actor := models.Actor{Role: models.RoleCitizen}
	if citizenID != nil {
		actor.ID = id.UserID(*citizenID)
	}
	submitted := models.NewInteraction(p.ID, models.InteractionSubmitted, actor,
		i18n.Sprintf(ctx, i18n.MsgProtocolSubmitted, p.TrackingNumber), now)
	if err := s.appendInteraction(ctx, submitted); err != nil {
		return nil, err
	}
	if err := s.emit(ctx, audit.EventProtocolSubmitted, p, actor, "", ""); err != nil {
		return nil, err
	}

	message := res.Message
	if message == "" {
		message = submitted.Message
	}
	return &SubmitResult{
		Protocol:       p,
		Record:         res.Record,
		TrackingNumber: p.TrackingNumber,
		RecordNumber:   res.Number,
		FeedbackCode:   res.FeedbackCode,
		Message:        message,
	}, nil
}

// issuedNumbers remembers the scopes a submission drew numbers from, so a
// collision lifts exactly those counters before the next attempt.
type issuedNumbers struct {
	ports.NumberGenerator

	mu     sync.Mutex
	scopes map[sequence.Number]struct{}
}

func (n *issuedNumbers) Next(ctx context.Context, prefix string) (string, error) {
	number, err := n.NumberGenerator.Next(ctx, prefix)
	if err != nil {
		return "", err
	}
	if parsed, perr := sequence.Parse(number); perr == nil {
		n.mu.Lock()
		if n.scopes == nil {
			n.scopes = make(map[sequence.Number]struct{})
		}
		n.scopes[sequence.Number{Prefix: parsed.Prefix, Year: parsed.Year}] = struct{}{}
		n.mu.Unlock()
	}
	return number, nil
}

func (n *issuedNumbers) drain() []sequence.Number {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sequence.Number, 0, len(n.scopes))
	for sc := range n.scopes {
		out = append(out, sc)
	}
	clear(n.scopes)
	return out
}

// catchUp raises each counter to the largest number already stored for its
// scope. A counter that restarted from memory, or a table seeded behind
// imported numbers, then moves past the collision instead of repeating it.
func (s *Service) catchUp(ctx context.Context, scopes []sequence.Number) {
	if s.repos.Numbers == nil {
		return
	}
	for _, sc := range scopes {
		last, err := s.repos.Numbers.LastIssued(ctx, sc.Prefix, sc.Year)
		if err == nil {
			err = s.numbers.Raise(ctx, sc.Prefix, sc.Year, last)
		}
		if err != nil {
			s.logger.WarnContext(ctx, "could not resync sequence counter",
				"prefix", sc.Prefix,
				"year", sc.Year,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			continue
		}
		s.logger.InfoContext(ctx, "sequence counter resynced", "prefix", sc.Prefix, "year", sc.Year, "last", last)
	}
}
