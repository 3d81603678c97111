package contents

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lattice-cms/lattice/internal/platform/httpx"
	"github.com/lattice-cms/lattice/internal/shared"
	"github.com/lattice-cms/lattice/internal/workflow"
)

// Handler exposes content CRUD, the content layer view and the check
// workflow over HTTP.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	workflow    *workflow.Service
	idempotency *shared.IdempotencyStore
	validator   *validator.Validate
}

// NewHandler constructs a Handler. idempotency may be nil, in which case
// Idempotency-Key headers are ignored.
func NewHandler(logger *slog.Logger, service *Service, wf *workflow.Service, idempotency *shared.IdempotencyStore) *Handler {
	return &Handler{logger: logger, service: service, workflow: wf, idempotency: idempotency, validator: validator.New()}
}

// MountRoutes registers content routes under a site.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sites/{siteID}/contents", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{contentID}", h.get)
		r.Put("/{contentID}", h.update)
		r.Delete("/{contentID}", h.remove)
		r.Get("/{contentID}/layer", h.layer)
		r.Get("/{contentID}/check", h.checkState)
		r.Post("/{contentID}/check", h.applyTransition)
		r.Get("/{contentID}/check/history", h.history)
	})
}

type contentRequest struct {
	ChannelID int64  `json:"channelId" validate:"min=0"`
	Title     string `json:"title" validate:"required,min=1,max=512"`
	Summary   string `json:"summary" validate:"max=2048"`
	Body      string `json:"body"`
	Taxis     int32  `json:"taxis" validate:"min=0"`
	Version   int64  `json:"version" validate:"min=0"`
}

type contentResponse struct {
	ID         int64  `json:"id"`
	SiteID     int64  `json:"siteId"`
	ChannelID  int64  `json:"channelId"`
	Title      string `json:"title"`
	Summary    string `json:"summary,omitempty"`
	Body       string `json:"body,omitempty"`
	AuthorKind string `json:"authorKind"`
	AuthorID   int64  `json:"authorId"`
	CheckState string `json:"checkState"`
	Checked    bool   `json:"checked"`
	Taxis      int32  `json:"taxis"`
	Version    int64  `json:"version"`
	CreatedAt  string `json:"createdAt,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

func toContentResponse(c *Content) contentResponse {
	out := contentResponse{
		ID: c.ID, SiteID: c.SiteID, ChannelID: c.ChannelID,
		Title: c.Title, Summary: c.Summary, Body: c.Body,
		AuthorKind: string(c.AuthorKind), AuthorID: c.AuthorID,
		CheckState: string(c.CheckState), Checked: c.Checked,
		Taxis: c.Taxis, Version: c.Version,
	}
	if !c.CreatedAt.IsZero() {
		out.CreatedAt = c.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !c.UpdatedAt.IsZero() {
		out.UpdatedAt = c.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathInt64(r, "siteID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter := ListFilter{
		Limit:  queryInt32(r, "limit"),
		Offset: queryInt32(r, "offset"),
	}
	if raw := r.URL.Query().Get("channelId"); raw != "" {
		filter.ChannelID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || filter.ChannelID < 0 {
			httpx.RespondError(w, fmt.Errorf("bad channelId: %w", shared.ErrValidationFailed))
			return
		}
	}
	if raw := r.URL.Query().Get("checkState"); raw != "" {
		state := workflow.State(raw)
		if !state.Valid() {
			httpx.RespondError(w, fmt.Errorf("bad checkState: %w", shared.ErrValidationFailed))
			return
		}
		filter.CheckState = state
	}
	actor := shared.ActorFromContext(r.Context())
	list, err := h.service.List(r.Context(), actor, siteID, filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]contentResponse, 0, len(list))
	for i := range list {
		out = append(out, toContentResponse(&list[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	siteID, contentID, err := pathSiteContent(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	content, err := h.service.Get(r.Context(), actor, siteID, contentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toContentResponse(content))
}

type layerResponse struct {
	Content           contentResponse      `json:"content"`
	ChannelNavigation string               `json:"channelNavigation,omitempty"`
	Check             *workflow.CheckState `json:"check,omitempty"`
}

func (h *Handler) layer(w http.ResponseWriter, r *http.Request) {
	siteID, contentID, err := pathSiteContent(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	view, err := h.service.Layer(r.Context(), actor, siteID, contentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, layerResponse{
		Content:           toContentResponse(&view.Content),
		ChannelNavigation: view.ChannelNavigation,
		Check:             view.Check,
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathInt64(r, "siteID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req contentRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if req.ChannelID <= 0 {
		httpx.RespondError(w, fmt.Errorf("channelId required: %w", shared.ErrValidationFailed))
		return
	}
	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), idemKey, "contents"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.RespondError(w, fmt.Errorf("request already processed: %w", shared.ErrDuplicate))
				return
			}
			httpx.RespondError(w, err)
			return
		}
	}
	actor := shared.ActorFromContext(r.Context())
	content, err := h.service.Create(r.Context(), actor, &Content{
		SiteID: siteID, ChannelID: req.ChannelID,
		Title: req.Title, Summary: req.Summary, Body: req.Body, Taxis: req.Taxis,
	})
	if err != nil {
		if idemKey != "" && h.idempotency != nil {
			_ = h.idempotency.Delete(r.Context(), idemKey)
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toContentResponse(content))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	siteID, contentID, err := pathSiteContent(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req contentRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	content, err := h.service.Update(r.Context(), actor, &Content{
		ID: contentID, SiteID: siteID,
		Title: req.Title, Summary: req.Summary, Body: req.Body,
		Taxis: req.Taxis, Version: req.Version,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toContentResponse(content))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	siteID, contentID, err := pathSiteContent(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, siteID, contentID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) checkState(w http.ResponseWriter, r *http.Request) {
	siteID, contentID, err := pathSiteContent(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	state, err := h.workflow.GetCheckState(r.Context(), actor, siteID, contentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, state)
}

type transitionRequest struct {
	To     string `json:"to" validate:"required"`
	Reason string `json:"reason" validate:"max=2048"`
}

func (h *Handler) applyTransition(w http.ResponseWriter, r *http.Request) {
	siteID, contentID, err := pathSiteContent(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req transitionRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	result, err := h.workflow.Apply(r.Context(), actor, siteID, contentID, workflow.State(req.To), req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	siteID, contentID, err := pathSiteContent(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	entries, err := h.workflow.History(r.Context(), actor, siteID, contentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
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

func pathSiteContent(r *http.Request) (int64, int64, error) {
	siteID, err := pathInt64(r, "siteID")
	if err != nil {
		return 0, 0, err
	}
	contentID, err := pathInt64(r, "contentID")
	if err != nil {
		return 0, 0, err
	}
	return siteID, contentID, nil
}

func queryInt32(r *http.Request, name string) int32 {
	v, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 32)
	if err != nil || v < 0 {
		return 0
	}
	return int32(v)
}
