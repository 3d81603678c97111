package users

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lattice-cms/lattice/internal/authz"
	"github.com/lattice-cms/lattice/internal/platform/httpx"
	"github.com/lattice-cms/lattice/internal/shared"
)

// Handler exposes account administration over HTTP. Every route is gated
// on the global UsersManage capability.
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

// MountRoutes registers account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/administrators", h.listAdministrators)
		r.Get("/users", h.listSiteUsers)
		r.Post("/", h.create)
		r.Put("/{kind}/{accountID}/active", h.setActive)
		r.Put("/{kind}/{accountID}/password", h.resetPassword)
	})
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) bool {
	actor := shared.ActorFromContext(r.Context())
	if _, err := h.facade.Authorize(r.Context(), actor, authz.Scope{}, authz.UsersManage); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

type accountResponse struct {
	Kind        string `json:"kind"`
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	RoleName    string `json:"roleName,omitempty"`
	SuperAdmin  bool   `json:"superAdmin,omitempty"`
	IsActive    bool   `json:"isActive"`
	LastLoginAt string `json:"lastLoginAt,omitempty"`
}

func toAccountResponse(a *Account) accountResponse {
	out := accountResponse{
		Kind: string(a.Kind), ID: a.ID, Username: a.Username,
		RoleName: a.RoleName, SuperAdmin: a.SuperAdmin, IsActive: a.IsActive,
	}
	if a.LastLoginAt != nil {
		out.LastLoginAt = a.LastLoginAt.UTC().Format(time.RFC3339)
	}
	return out
}

func (h *Handler) listAdministrators(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	accounts, err := h.service.ListAdministrators(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, toAccountResponse(&accounts[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) listSiteUsers(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))
	accounts, meta, err := h.service.ListSiteUsers(r.Context(), page, perPage)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]accountResponse, 0, len(accounts))
	for i := range accounts {
		items = append(items, toAccountResponse(&accounts[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":      items,
		"pagination": paginationResponse(meta),
	})
}

func paginationResponse(p shared.Pagination) map[string]int {
	return map[string]int{
		"page":       p.Page,
		"perPage":    p.PerPage,
		"total":      p.Total,
		"totalPages": p.TotalPages,
	}
}

type createAccountRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=administrator user"`
	Username string `json:"username" validate:"required,min=1,max=255"`
	Password string `json:"password" validate:"required,min=6"`
	RoleName string `json:"roleName" validate:"max=255"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	var req createAccountRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := h.service.Create(r.Context(), NewAccount{
		Kind:     shared.ActorKind(req.Kind),
		Username: req.Username,
		Password: req.Password,
		RoleName: req.RoleName,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type activeRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	kind, id, err := pathAccount(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req activeRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.SetActive(r.Context(), kind, id, req.Active); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type passwordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	kind, id, err := pathAccount(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req passwordRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.ResetPassword(r.Context(), kind, id, req.Password); err != nil {
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

func pathAccount(r *http.Request) (shared.ActorKind, int64, error) {
	kind := shared.ActorKind(chi.URLParam(r, "kind"))
	if kind != shared.ActorAdministrator && kind != shared.ActorUser {
		return "", 0, fmt.Errorf("unknown account kind: %w", shared.ErrValidationFailed)
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("bad accountID: %w", shared.ErrValidationFailed)
	}
	return kind, id, nil
}
