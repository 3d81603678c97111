package sites

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lattice-cms/lattice/internal/authz"
	"github.com/lattice-cms/lattice/internal/platform/httpx"
	"github.com/lattice-cms/lattice/internal/shared"
)

// Handler exposes site administration over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	facade    *authz.Facade
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, facade *authz.Facade) *Handler {
	return &Handler{logger: logger, service: service, facade: facade, validator: validator.New()}
}

// MountRoutes registers site routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sites", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{siteID}", h.get)
		r.Put("/{siteID}", h.update)
		r.Delete("/{siteID}", h.remove)
		r.Get("/{siteID}/settings", h.getSettings)
		r.Put("/{siteID}/settings", h.updateSettings)
	})
}

type siteRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Dir         string `json:"dir" validate:"required,min=1,max=64"`
	Description string `json:"description" validate:"max=1024"`
	Taxis       int32  `json:"taxis" validate:"min=0"`
}

type siteResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Dir         string `json:"dir"`
	Description string `json:"description,omitempty"`
	Taxis       int32  `json:"taxis"`
}

func toSiteResponse(s *Site) siteResponse {
	return siteResponse{ID: s.ID, Name: s.Name, Dir: s.Dir, Description: s.Description, Taxis: s.Taxis}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if _, err := h.facade.Authorize(r.Context(), actor, authz.Scope{}, authz.SitesManage); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sites, err := h.service.List(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]siteResponse, 0, len(sites))
	for i := range sites {
		out = append(out, toSiteResponse(&sites[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if _, err := h.facade.Authorize(r.Context(), actor, authz.Scope{}, authz.SitesAdd); err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req siteRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	site, err := h.service.Create(r.Context(), &Site{
		Name: req.Name, Dir: req.Dir, Description: req.Description, Taxis: req.Taxis,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toSiteResponse(site))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathSiteID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if _, err := h.facade.Authorize(r.Context(), actor, authz.SiteScope(siteID), authz.SettingsSite); err != nil {
		httpx.RespondError(w, err)
		return
	}
	site, err := h.service.Get(r.Context(), siteID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSiteResponse(site))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathSiteID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if _, err := h.facade.Authorize(r.Context(), actor, authz.SiteScope(siteID), authz.SettingsSite); err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req siteRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	site, err := h.service.Update(r.Context(), &Site{
		ID: siteID, Name: req.Name, Dir: req.Dir, Description: req.Description, Taxis: req.Taxis,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSiteResponse(site))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathSiteID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if _, err := h.facade.Authorize(r.Context(), actor, authz.Scope{}, authz.SitesManage); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), siteID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type settingsRequest struct {
	CheckContentIsAdmin bool   `json:"checkContentIsAdmin"`
	PageSize            int32  `json:"pageSize" validate:"min=0,max=500"`
	ChannelSeparator    string `json:"channelSeparator" validate:"max=16"`
}

type settingsResponse struct {
	SiteID              int64  `json:"siteId"`
	CheckContentIsAdmin bool   `json:"checkContentIsAdmin"`
	PageSize            int32  `json:"pageSize"`
	ChannelSeparator    string `json:"channelSeparator"`
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathSiteID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if _, err := h.facade.Authorize(r.Context(), actor, authz.SiteScope(siteID), authz.SettingsContent); err != nil {
		httpx.RespondError(w, err)
		return
	}
	settings, err := h.service.GetSettings(r.Context(), siteID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settingsResponse{
		SiteID:              settings.SiteID,
		CheckContentIsAdmin: settings.CheckContentIsAdmin,
		PageSize:            settings.PageSize,
		ChannelSeparator:    settings.ChannelSeparator,
	})
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathSiteID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if _, err := h.facade.Authorize(r.Context(), actor, authz.SiteScope(siteID), authz.SettingsSite); err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req settingsRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	err = h.service.UpdateSettings(r.Context(), &Settings{
		SiteID:              siteID,
		CheckContentIsAdmin: req.CheckContentIsAdmin,
		PageSize:            req.PageSize,
		ChannelSeparator:    req.ChannelSeparator,
	})
	if err != nil {
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

func pathSiteID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "siteID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad siteID: %w", shared.ErrValidationFailed)
	}
	return id, nil
}
