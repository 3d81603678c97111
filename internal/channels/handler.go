package channels

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lattice-cms/lattice/internal/authz"
	"github.com/lattice-cms/lattice/internal/hierarchy"
	"github.com/lattice-cms/lattice/internal/platform/httpx"
	"github.com/lattice-cms/lattice/internal/shared"
)

// Handler exposes channel tree management over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	hierarchy *hierarchy.Service
	facade    *authz.Facade
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, nav *hierarchy.Service, facade *authz.Facade) *Handler {
	return &Handler{logger: logger, service: service, hierarchy: nav, facade: facade, validator: validator.New()}
}

// MountRoutes registers channel routes under a site.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sites/{siteID}/channels", func(r chi.Router) {
		r.Get("/", h.tree)
		r.Post("/", h.create)
		r.Get("/{channelID}", h.get)
		r.Put("/{channelID}", h.update)
		r.Delete("/{channelID}", h.remove)
	})
}

type channelRequest struct {
	ParentID  int64  `json:"parentId" validate:"min=0"`
	Name      string `json:"name" validate:"required,min=1,max=255"`
	IndexName string `json:"indexName" validate:"max=255"`
	Taxis     int32  `json:"taxis" validate:"min=0"`
}

type channelResponse struct {
	ID        int64             `json:"id"`
	SiteID    int64             `json:"siteId"`
	ParentID  int64             `json:"parentId"`
	Name      string            `json:"name"`
	IndexName string            `json:"indexName,omitempty"`
	Taxis     int32             `json:"taxis"`
	Path      string            `json:"path,omitempty"`
	Children  []channelResponse `json:"children,omitempty"`
}

func toChannelResponse(ch *Channel) channelResponse {
	return channelResponse{
		ID: ch.ID, SiteID: ch.SiteID, ParentID: ch.ParentID,
		Name: ch.Name, IndexName: ch.IndexName, Taxis: ch.Taxis,
	}
}

func toNodeResponse(n *Node) channelResponse {
	out := toChannelResponse(&n.Channel)
	for _, child := range n.Children {
		out.Children = append(out.Children, toNodeResponse(child))
	}
	return out
}

func (h *Handler) tree(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathInt64(r, "siteID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if _, err := h.facade.Authorize(r.Context(), actor, authz.SiteScope(siteID), authz.ContentView); err != nil {
		httpx.RespondError(w, err)
		return
	}
	roots, err := h.service.Tree(r.Context(), siteID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]channelResponse, 0, len(roots))
	for _, n := range roots {
		out = append(out, toNodeResponse(n))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	siteID, channelID, err := pathSiteChannel(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if _, err := h.facade.Authorize(r.Context(), actor, authz.ChannelScope(siteID, channelID), authz.ContentView); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ch, err := h.service.Get(r.Context(), siteID, channelID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := toChannelResponse(ch)
	if path, err := h.hierarchy.ChannelNameNavigation(r.Context(), siteID, channelID, ""); err == nil {
		out.Path = path
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathInt64(r, "siteID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req channelRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	// Adding a root channel is a site-scope decision; adding a child is
	// decided at the parent channel.
	scope := authz.SiteScope(siteID)
	if req.ParentID != 0 {
		scope = authz.ChannelScope(siteID, req.ParentID)
	}
	actor := shared.ActorFromContext(r.Context())
	if _, err := h.facade.Authorize(r.Context(), actor, scope, authz.ChannelAdd); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ch, err := h.service.Create(r.Context(), &Channel{
		SiteID: siteID, ParentID: req.ParentID, Name: req.Name, IndexName: req.IndexName, Taxis: req.Taxis,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toChannelResponse(ch))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	siteID, channelID, err := pathSiteChannel(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if _, err := h.facade.Authorize(r.Context(), actor, authz.ChannelScope(siteID, channelID), authz.ChannelEdit); err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req channelRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ch, err := h.service.Update(r.Context(), &Channel{
		ID: channelID, SiteID: siteID, Name: req.Name, IndexName: req.IndexName, Taxis: req.Taxis,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toChannelResponse(ch))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	siteID, channelID, err := pathSiteChannel(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if _, err := h.facade.Authorize(r.Context(), actor, authz.ChannelScope(siteID, channelID), authz.ChannelDelete); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), siteID, channelID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return fmt.Errorf("malformed body: %w", shared.ErrValidationFailed)
	}
	if err := h.validator.Struct(target); err != nil {
		return fmt.Errorf("%v: %w", err, shared.ErrValidationFailed)
	}
	return nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad %s: %w", name, shared.ErrValidationFailed)
	}
	return id, nil
}

func pathSiteChannel(r *http.Request) (int64, int64, error) {
	siteID, err := pathInt64(r, "siteID")
	if err != nil {
		return 0, 0, err
	}
	channelID, err := pathInt64(r, "channelID")
	if err != nil {
		return 0, 0, err
	}
	return siteID, channelID, nil
}
