package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"civitas/internal/protocol/models"
	"civitas/internal/protocol/service"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/httputil"
	"civitas/pkg/requestcontext"
)

// Service is the protocol lifecycle as the transport sees it.
type Service interface {
	Submit(ctx context.Context, in service.SubmitInput) (*service.SubmitResult, error)
	Get(ctx context.Context, protocolID id.ProtocolID, actor models.Actor) (*models.Protocol, error)
	History(ctx context.Context, protocolID id.ProtocolID, actor models.Actor) ([]*models.Interaction, error)
	TipStatus(ctx context.Context, code string) (*service.TipStatus, error)

	StartAnalysis(ctx context.Context, d service.Decision) (*models.Protocol, error)
	Approve(ctx context.Context, d service.Decision) (*models.Protocol, error)
	Complete(ctx context.Context, d service.Decision) (*models.Protocol, error)
	Reject(ctx context.Context, d service.Decision) (*models.Protocol, error)
	Cancel(ctx context.Context, d service.Decision) (*models.Protocol, error)

	RequestDocument(ctx context.Context, req service.DocumentRequest) (*models.Document, error)
	AttachUpload(ctx context.Context, up service.DocumentUpload) (*models.Document, error)
	StartReview(ctx context.Context, protocolID id.ProtocolID, documentID id.DocumentID, actor models.Actor) (*models.Document, error)
	ReviewDocument(ctx context.Context, rv service.DocumentReview) (*models.Document, error)

	CreatePendency(ctx context.Context, req service.PendencyRequest) (*models.Pendency, error)
	ResolvePendency(ctx context.Context, protocolID id.ProtocolID, pendencyID id.PendencyID, actor models.Actor) (*models.Pendency, error)
	AddComment(ctx context.Context, protocolID id.ProtocolID, actor models.Actor, message string, internal bool) (*models.Interaction, error)
}

// Handler exposes the protocol lifecycle over HTTP.
type Handler struct {
	service     Service
	logger      *slog.Logger
	submitLimit []func(http.Handler) http.Handler
	tipLimit    []func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithSubmitLimit guards POST /protocols.
func WithSubmitLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.submitLimit = append(h.submitLimit, mw)
	}
}

// WithTipLookupLimit guards GET /tips/{code}.
func WithTipLookupLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.tipLimit = append(h.tipLimit, mw)
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the protocol routes. Submission and tip status lookups
// are open to anonymous callers; everything else needs an actor.
func (h *Handler) Register(r chi.Router) {
	r.With(h.submitLimit...).Post("/protocols", h.HandleSubmit)
	r.With(h.tipLimit...).Get("/tips/{code}", h.HandleTipStatus)

	r.Route("/protocols/{protocolID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Get("/history", h.HandleHistory)

		r.Post("/analysis", h.decision(h.service.StartAnalysis, "analysis started"))
		r.Post("/approve", h.decision(h.service.Approve, "protocol approved"))
		r.Post("/complete", h.decision(h.service.Complete, "protocol completed"))
		r.Post("/reject", h.decision(h.service.Reject, "protocol rejected"))
		r.Post("/cancel", h.decision(h.service.Cancel, "protocol cancelled"))

		r.Post("/documents", h.HandleRequestDocument)
		r.Put("/documents/{documentID}/file", h.HandleUpload)
		r.Post("/documents/{documentID}/review/start", h.HandleStartReview)
		r.Post("/documents/{documentID}/review", h.HandleReview)

		r.Post("/pendencies", h.HandleCreatePendency)
		r.Post("/pendencies/{pendencyID}/resolve", h.HandleResolvePendency)

		r.Post("/comments", h.HandleComment)
	})
}

// actor resolves the caller set by the gateway-trust middleware.
func actor(ctx context.Context) (models.Actor, error) {
	uid := requestcontext.ActorID(ctx)
	if uid.IsNil() {
		return models.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	role, err := models.ParseRole(requestcontext.ActorRole(ctx))
	if err != nil {
		return models.Actor{}, dErrors.Wrap(err, dErrors.CodeForbidden, "unknown actor role")
	}
	return models.Actor{ID: uid, Role: role}, nil
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"code", dErrors.CodeOf(err),
		"error", err,
	}
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

// HandleSubmit handles POST /protocols. A citizen always submits as
// themselves; staff may submit on behalf of a citizen named in the body.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	in := service.SubmitInput{
		ServiceID: req.parsedService,
		Action:    req.Action,
		Data:      req.Data,
	}
	if uid := requestcontext.ActorID(ctx); !uid.IsNil() {
		a, err := actor(ctx)
		if err != nil {
			h.fail(ctx, w, "submission rejected", err)
			return
		}
		if a.Role == models.RoleCitizen {
			citizen := id.CitizenID(a.ID)
			in.CitizenID = &citizen
		} else {
			in.CitizenID = req.parsedCitizen
		}
	}

	result, err := h.service.Submit(ctx, in)
	if err != nil {
		h.fail(ctx, w, "submission failed", err)
		return
	}
	h.logger.InfoContext(ctx, "protocol submitted",
		"request_id", requestID,
		"tracking_number", result.TrackingNumber,
		"record_number", result.RecordNumber,
	)
	httputil.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, pid, ok := h.protocolTarget(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(ctx, pid, a)
	if err != nil {
		h.fail(ctx, w, "get protocol failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, pid, ok := h.protocolTarget(w, r)
	if !ok {
		return
	}
	trail, err := h.service.History(ctx, pid, a)
	if err != nil {
		h.fail(ctx, w, "get history failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"interactions": trail})
}

// HandleTipStatus handles GET /tips/{code}. It needs no actor: possession
// of the feedback code is the credential.
func (h *Handler) HandleTipStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := h.service.TipStatus(ctx, chi.URLParam(r, "code"))
	if err != nil {
		h.fail(ctx, w, "tip status lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

type decisionFunc func(ctx context.Context, d service.Decision) (*models.Protocol, error)

func (h *Handler) decision(fn decisionFunc, logMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		a, pid, ok := h.protocolTarget(w, r)
		if !ok {
			return
		}
		var req DecisionRequest
		if r.ContentLength != 0 {
			if err := httputil.DecodeJSON(r, &req); err != nil {
				h.fail(ctx, w, "invalid decision body", err)
				return
			}
		}
		if err := req.Validate(); err != nil {
			h.fail(ctx, w, "invalid decision body", err)
			return
		}
		p, err := fn(ctx, service.Decision{ProtocolID: pid, Actor: a, Comment: req.Comment, Reason: req.Reason})
		if err != nil {
			h.fail(ctx, w, "transition failed", err)
			return
		}
		h.logger.InfoContext(ctx, logMsg,
			"request_id", requestcontext.RequestID(ctx),
			"tracking_number", p.TrackingNumber,
			"status", p.Status,
		)
		httputil.WriteJSON(w, http.StatusOK, p)
	}
}

func (h *Handler) HandleRequestDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, pid, ok := h.protocolTarget(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DocumentRequestBody](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	doc, err := h.service.RequestDocument(ctx, service.DocumentRequest{
		ProtocolID:  pid,
		Actor:       a,
		Type:        req.Type,
		Description: req.Description,
		Optional:    req.Optional,
	})
	if err != nil {
		h.fail(ctx, w, "document request failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, doc)
}

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, pid, ok := h.protocolTarget(w, r)
	if !ok {
		return
	}
	docID, ok := h.pathDocument(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UploadRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	doc, err := h.service.AttachUpload(ctx, service.DocumentUpload{
		ProtocolID: pid,
		DocumentID: docID,
		Actor:      a,
		FileRef:    req.FileRef,
	})
	if err != nil {
		h.fail(ctx, w, "document upload failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) HandleStartReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, pid, ok := h.protocolTarget(w, r)
	if !ok {
		return
	}
	docID, ok := h.pathDocument(w, r)
	if !ok {
		return
	}
	doc, err := h.service.StartReview(ctx, pid, docID, a)
	if err != nil {
		h.fail(ctx, w, "start review failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, pid, ok := h.protocolTarget(w, r)
	if !ok {
		return
	}
	docID, ok := h.pathDocument(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReviewRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	doc, err := h.service.ReviewDocument(ctx, service.DocumentReview{
		ProtocolID: pid,
		DocumentID: docID,
		Actor:      a,
		Approve:    *req.Approve,
		Reason:     req.Reason,
	})
	if err != nil {
		h.fail(ctx, w, "document review failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) HandleCreatePendency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, pid, ok := h.protocolTarget(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PendencyRequestBody](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	pd, err := h.service.CreatePendency(ctx, service.PendencyRequest{
		ProtocolID:  pid,
		Actor:       a,
		Description: req.Description,
		Items:       req.Items,
		Priority:    req.parsedPriority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.fail(ctx, w, "create pendency failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, pd)
}

func (h *Handler) HandleResolvePendency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, pid, ok := h.protocolTarget(w, r)
	if !ok {
		return
	}
	pendencyID, err := id.ParsePendencyID(chi.URLParam(r, "pendencyID"))
	if err != nil {
		h.fail(ctx, w, "invalid pendency id", err)
		return
	}
	pd, err := h.service.ResolvePendency(ctx, pid, pendencyID, a)
	if err != nil {
		h.fail(ctx, w, "resolve pendency failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pd)
}

func (h *Handler) HandleComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, pid, ok := h.protocolTarget(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CommentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	in, err := h.service.AddComment(ctx, pid, a, req.Message, req.Internal)
	if err != nil {
		h.fail(ctx, w, "add comment failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, in)
}

// protocolTarget resolves the actor and the {protocolID} path parameter.
func (h *Handler) protocolTarget(w http.ResponseWriter, r *http.Request) (models.Actor, id.ProtocolID, bool) {
	ctx := r.Context()
	a, err := actor(ctx)
	if err != nil {
		h.fail(ctx, w, "request rejected", err)
		return models.Actor{}, id.ProtocolID{}, false
	}
	pid, err := id.ParseProtocolID(chi.URLParam(r, "protocolID"))
	if err != nil {
		h.fail(ctx, w, "invalid protocol id", err)
		return models.Actor{}, id.ProtocolID{}, false
	}
	return a, pid, true
}

func (h *Handler) pathDocument(w http.ResponseWriter, r *http.Request) (id.DocumentID, bool) {
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		h.fail(r.Context(), w, "invalid document id", err)
		return id.DocumentID{}, false
	}
	return docID, true
}
