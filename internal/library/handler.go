package library

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lattice-cms/lattice/internal/platform/httpx"
	"github.com/lattice-cms/lattice/internal/shared"
)

// Handler exposes the media libraries over HTTP. The library kind is the
// first path segment after the site so both libraries share one handler.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers library routes under a site.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sites/{siteID}/library/{kind}", func(r chi.Router) {
		r.Get("/groups", h.listGroups)
		r.Post("/groups", h.createGroup)
		r.Delete("/groups/{groupID}", h.deleteGroup)
		r.Get("/items", h.listItems)
		r.Post("/items", h.createItem)
		r.Get("/items/{itemID}", h.getItem)
		r.Delete("/items/{itemID}", h.deleteItem)
	})
}

type groupRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=255"`
	Taxis int32  `json:"taxis" validate:"min=0"`
}

type groupResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Taxis int32  `json:"taxis"`
}

type itemRequest struct {
	GroupID   int64  `json:"groupId" validate:"min=0"`
	Title     string `json:"title" validate:"max=512"`
	FileName  string `json:"fileName" validate:"required,min=1,max=512"`
	URL       string `json:"url" validate:"required,min=1,max=2048"`
	SizeBytes int64  `json:"sizeBytes" validate:"min=0"`
}

type itemResponse struct {
	ID        int64  `json:"id"`
	GroupID   int64  `json:"groupId"`
	Title     string `json:"title"`
	FileName  string `json:"fileName"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"sizeBytes"`
}

func toItemResponse(item *Item) itemResponse {
	return itemResponse{
		ID: item.ID, GroupID: item.GroupID, Title: item.Title,
		FileName: item.FileName, URL: item.URL, SizeBytes: item.SizeBytes,
	}
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	siteID, kind, err := pathSiteKind(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	groups, err := h.service.ListGroups(r.Context(), actor, siteID, kind)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupResponse{ID: g.ID, Name: g.Name, Taxis: g.Taxis})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	siteID, kind, err := pathSiteKind(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req groupRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	group, err := h.service.CreateGroup(r.Context(), actor, &Group{
		SiteID: siteID, Kind: kind, Name: req.Name, Taxis: req.Taxis,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, groupResponse{ID: group.ID, Name: group.Name, Taxis: group.Taxis})
}

func (h *Handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	siteID, kind, err := pathSiteKind(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	groupID, err := pathInt64(r, "groupID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.DeleteGroup(r.Context(), actor, siteID, kind, groupID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	siteID, kind, err := pathSiteKind(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	groupID, _ := strconv.ParseInt(r.URL.Query().Get("groupId"), 10, 64)
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 32)
	offset, _ := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 32)
	actor := shared.ActorFromContext(r.Context())
	items, err := h.service.ListItems(r.Context(), actor, siteID, kind, groupID, int32(limit), int32(offset))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]itemResponse, 0, len(items))
	for i := range items {
		out = append(out, toItemResponse(&items[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	siteID, kind, err := pathSiteKind(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	itemID, err := pathInt64(r, "itemID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	item, err := h.service.GetItem(r.Context(), actor, siteID, kind, itemID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	siteID, kind, err := pathSiteKind(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req itemRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	item, err := h.service.CreateItem(r.Context(), actor, &Item{
		SiteID: siteID, GroupID: req.GroupID, Kind: kind,
		Title: req.Title, FileName: req.FileName, URL: req.URL, SizeBytes: req.SizeBytes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toItemResponse(item))
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	siteID, kind, err := pathSiteKind(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	itemID, err := pathInt64(r, "itemID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.DeleteItem(r.Context(), actor, siteID, kind, itemID); err != nil {
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

func pathSiteKind(r *http.Request) (int64, Kind, error) {
	siteID, err := pathInt64(r, "siteID")
	if err != nil {
		return 0, "", err
	}
	kind := Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		return 0, "", fmt.Errorf("unknown library kind: %w", shared.ErrValidationFailed)
	}
	return siteID, kind, nil
}
