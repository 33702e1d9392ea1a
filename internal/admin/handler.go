// Package admin serves the operator endpoints behind the admin token.
package admin

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"civitas/internal/catalog"
	"civitas/internal/module"
	"civitas/pkg/platform/httputil"
)

type ModuleLister interface {
	Keys() []module.Key
}

type ServiceLister interface {
	Services() []catalog.Service
}

// DropCounter is satisfied by the security audit publisher.
type DropCounter interface {
	Dropped() int64
}

type Handler struct {
	modules  ModuleLister
	services ServiceLister
	security DropCounter
	logger   *slog.Logger
}

// New builds the handler. security may be nil when no buffered publisher
// is running.
func New(modules ModuleLister, services ServiceLister, security DropCounter, logger *slog.Logger) *Handler {
	return &Handler{modules: modules, services: services, security: security, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/modules", h.HandleModules)
	r.Get("/services", h.HandleServices)
	r.Get("/audit", h.HandleAuditStatus)
}

func (h *Handler) HandleModules(w http.ResponseWriter, r *http.Request) {
	keys := h.modules.Keys()
	httputil.WriteJSON(w, http.StatusOK, ModulesResponse{Modules: keys, Total: len(keys)})
}

func (h *Handler) HandleServices(w http.ResponseWriter, r *http.Request) {
	services := h.services.Services()
	out := make([]ServiceInfo, 0, len(services))
	for _, s := range services {
		out = append(out, toServiceInfo(s))
	}
	httputil.WriteJSON(w, http.StatusOK, ServicesResponse{Services: out, Total: len(out)})
}

func (h *Handler) HandleAuditStatus(w http.ResponseWriter, r *http.Request) {
	var resp AuditStatusResponse
	if h.security != nil {
		resp.SecurityEventsDropped = h.security.Dropped()
	}
	if resp.SecurityEventsDropped > 0 {
		h.logger.WarnContext(r.Context(), "security audit events dropped", "count", resp.SecurityEventsDropped)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
