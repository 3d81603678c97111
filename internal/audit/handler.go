package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lattice-cms/lattice/internal/authz"
	"github.com/lattice-cms/lattice/internal/platform/httpx"
	"github.com/lattice-cms/lattice/internal/shared"
)

// Handler serves the audit timeline, gated on the global AuditView
// capability.
type Handler struct {
	service *Service
	facade  *authz.Facade
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, facade *authz.Facade) *Handler {
	return &Handler{service: service, facade: facade}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/audit", h.timeline)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if _, err := h.facade.Authorize(r.Context(), actor, authz.Scope{}, authz.AuditView); err != nil {
		httpx.RespondError(w, err)
		return
	}

	q := r.URL.Query()
	filters := TimelineFilters{
		Kind:     EventKind(q.Get("kind")),
		ActorKey: q.Get("actor"),
	}
	filters.SiteID, _ = strconv.ParseInt(q.Get("siteId"), 10, 64)
	if page, err := strconv.ParseInt(q.Get("page"), 10, 32); err == nil {
		filters.Page = int32(page)
	}
	if size, err := strconv.ParseInt(q.Get("pageSize"), 10, 32); err == nil {
		filters.PageSize = int32(size)
	}
	if from, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		filters.From = from
	}
	if to, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		filters.To = to
	}

	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
