package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"civitas/internal/citizen/models"
	"civitas/internal/citizen/service"
	protocol "civitas/internal/protocol/models"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/httputil"
	"civitas/pkg/requestcontext"
)

// Service is the citizen link and household manager as the transport sees it.
type Service interface {
	Link(ctx context.Context, in service.LinkInput, actor protocol.Actor) (*models.CitizenLink, error)
	Verify(ctx context.Context, linkID id.LinkID, actor protocol.Actor) (*models.CitizenLink, error)
	Unlink(ctx context.Context, linkID id.LinkID, actor protocol.Actor) error
	Links(ctx context.Context, protocolID id.ProtocolID, actor protocol.Actor) ([]*models.CitizenLink, error)
	CitizenLinks(ctx context.Context, citizenID id.CitizenID, types []models.LinkType, actor protocol.Actor) ([]*models.CitizenLink, error)

	AddFamilyMember(ctx context.Context, in service.FamilyInput, actor protocol.Actor) (*models.FamilyMember, error)
	RemoveFamilyMember(ctx context.Context, headID, memberID id.CitizenID, actor protocol.Actor) error
	FamilyComposition(ctx context.Context, headID id.CitizenID, actor protocol.Actor) (*models.Composition, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the link and household routes. The protocol-scoped link
// routes live beside the protocol handler's own /protocols/{protocolID}
// subtree, so register that handler first.
func (h *Handler) Register(r chi.Router) {
	r.Get("/protocols/{protocolID}/links", h.HandleListLinks)
	r.Post("/protocols/{protocolID}/links", h.HandleLink)

	r.Post("/links/{linkID}/verify", h.HandleVerify)
	r.Delete("/links/{linkID}", h.HandleUnlink)

	r.Route("/citizens/{citizenID}", func(r chi.Router) {
		r.Get("/links", h.HandleCitizenLinks)
		r.Get("/family", h.HandleFamily)
		r.Post("/family", h.HandleAddFamilyMember)
		r.Delete("/family/{memberID}", h.HandleRemoveFamilyMember)
	})
}

func actor(ctx context.Context) (protocol.Actor, error) {
	uid := requestcontext.ActorID(ctx)
	if uid.IsNil() {
		return protocol.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	role, err := protocol.ParseRole(requestcontext.ActorRole(ctx))
	if err != nil {
		return protocol.Actor{}, dErrors.Wrap(err, dErrors.CodeForbidden, "unknown actor role")
	}
	return protocol.Actor{ID: uid, Role: role}, nil
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

// HandleLink handles POST /protocols/{protocolID}/links.
func (h *Handler) HandleLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	pid, err := id.ParseProtocolID(chi.URLParam(r, "protocolID"))
	if err != nil {
		h.fail(ctx, w, "invalid protocol id", err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[LinkRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	link, err := h.service.Link(ctx, service.LinkInput{
		ProtocolID:   pid,
		CitizenID:    req.parsedCitizen,
		LinkType:     req.parsedLinkType,
		Role:         req.parsedRole,
		Relationship: req.Relationship,
		ContextData:  req.ContextData,
	}, a)
	if err != nil {
		h.fail(ctx, w, "link citizen failed", err)
		return
	}
	h.logger.InfoContext(ctx, "citizen linked",
		"request_id", requestcontext.RequestID(ctx),
		"protocol_id", pid,
		"link_id", link.ID,
		"link_type", link.LinkType,
		"verified", link.IsVerified,
	)
	httputil.WriteJSON(w, http.StatusCreated, link)
}

func (h *Handler) HandleListLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	pid, err := id.ParseProtocolID(chi.URLParam(r, "protocolID"))
	if err != nil {
		h.fail(ctx, w, "invalid protocol id", err)
		return
	}
	links, err := h.service.Links(ctx, pid, a)
	if err != nil {
		h.fail(ctx, w, "list links failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"links": nonNil(links)})
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, linkID, ok := h.linkTarget(w, r)
	if !ok {
		return
	}
	link, err := h.service.Verify(ctx, linkID, a)
	if err != nil {
		h.fail(ctx, w, "verify link failed", err)
		return
	}
	h.logger.InfoContext(ctx, "citizen link verified",
		"request_id", requestcontext.RequestID(ctx),
		"link_id", link.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, link)
}

func (h *Handler) HandleUnlink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, linkID, ok := h.linkTarget(w, r)
	if !ok {
		return
	}
	if err := h.service.Unlink(ctx, linkID, a); err != nil {
		h.fail(ctx, w, "unlink citizen failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCitizenLinks handles GET /citizens/{citizenID}/links. The optional
// type query parameter filters by link type and may repeat or hold a
// comma-separated list.
func (h *Handler) HandleCitizenLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, citizenID, ok := h.citizenTarget(w, r)
	if !ok {
		return
	}
	types, err := parseTypes(r.URL.Query()["type"])
	if err != nil {
		h.fail(ctx, w, "invalid link type filter", err)
		return
	}
	links, err := h.service.CitizenLinks(ctx, citizenID, types, a)
	if err != nil {
		h.fail(ctx, w, "list citizen links failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"links": nonNil(links)})
}

func (h *Handler) HandleFamily(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, headID, ok := h.citizenTarget(w, r)
	if !ok {
		return
	}
	composition, err := h.service.FamilyComposition(ctx, headID, a)
	if err != nil {
		h.fail(ctx, w, "family composition failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, composition)
}

func (h *Handler) HandleAddFamilyMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, headID, ok := h.citizenTarget(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[FamilyMemberRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	member, err := h.service.AddFamilyMember(ctx, service.FamilyInput{
		HeadID:       headID,
		MemberID:     req.parsedMember,
		Relationship: req.Relationship,
		IsDependent:  req.IsDependent,
	}, a)
	if err != nil {
		h.fail(ctx, w, "add family member failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, member)
}

func (h *Handler) HandleRemoveFamilyMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, headID, ok := h.citizenTarget(w, r)
	if !ok {
		return
	}
	memberID, err := id.ParseCitizenID(chi.URLParam(r, "memberID"))
	if err != nil {
		h.fail(ctx, w, "invalid member id", err)
		return
	}
	if err := h.service.RemoveFamilyMember(ctx, headID, memberID, a); err != nil {
		h.fail(ctx, w, "remove family member failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resolveActor(w http.ResponseWriter, r *http.Request) (protocol.Actor, bool) {
	a, err := actor(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "request rejected", err)
		return protocol.Actor{}, false
	}
	return a, true
}

func (h *Handler) linkTarget(w http.ResponseWriter, r *http.Request) (protocol.Actor, id.LinkID, bool) {
	a, ok := h.resolveActor(w, r)
	if !ok {
		return protocol.Actor{}, id.LinkID{}, false
	}
	linkID, err := id.ParseLinkID(chi.URLParam(r, "linkID"))
	if err != nil {
		h.fail(r.Context(), w, "invalid link id", err)
		return protocol.Actor{}, id.LinkID{}, false
	}
	return a, linkID, true
}

func (h *Handler) citizenTarget(w http.ResponseWriter, r *http.Request) (protocol.Actor, id.CitizenID, bool) {
	a, ok := h.resolveActor(w, r)
	if !ok {
		return protocol.Actor{}, id.CitizenID{}, false
	}
	citizenID, err := id.ParseCitizenID(chi.URLParam(r, "citizenID"))
	if err != nil {
		h.fail(r.Context(), w, "invalid citizen id", err)
		return protocol.Actor{}, id.CitizenID{}, false
	}
	return a, citizenID, true
}

func parseTypes(raw []string) ([]models.LinkType, error) {
	var types []models.LinkType
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			lt, err := models.ParseLinkType(part)
			if err != nil {
				return nil, err
			}
			types = append(types, lt)
		}
	}
	return types, nil
}

func nonNil(links []*models.CitizenLink) []*models.CitizenLink {
	if links == nil {
		return []*models.CitizenLink{}
	}
	return links
}
