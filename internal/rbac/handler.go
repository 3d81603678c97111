package rbac

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

// Handler exposes role and grant administration over HTTP. Every route is
// gated on the global RolesManage capability.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	facade    *authz.Facade
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, facade *authz.Facade) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		facade:    facade,
		validator: validator.New(),
	}
}

// MountRoutes registers admin routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/roles", func(r chi.Router) {
		r.Get("/", h.listRoles)
		r.Post("/", h.createRole)
		r.Get("/{roleID}", h.getRole)
		r.Put("/{roleID}", h.updateRole)
		r.Delete("/{roleID}", h.deleteRole)
	})
	r.Route("/grants/{subjectKind}/{subjectID}", func(r chi.Router) {
		r.Get("/", h.listGrants)
		r.Post("/", h.grant)
		r.Delete("/", h.revoke)
	})
	r.Route("/assignments/{actorKind}/{actorID}", func(r chi.Router) {
		r.Get("/", h.listAssignments)
		r.Post("/", h.assignRole)
		r.Delete("/{roleID}", h.removeRole)
	})
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) bool {
	actor := shared.ActorFromContext(r.Context())
	if _, err := h.facade.Authorize(r.Context(), actor, authz.Scope{}, authz.RolesManage); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

type roleRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"max=1024"`
}

type roleResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func toRoleResponse(role *Role) roleResponse {
	return roleResponse{ID: role.ID, Name: role.Name, Description: role.Description}
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for i := range roles {
		out = append(out, toRoleResponse(&roles[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	var req roleRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleResponse(role))
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	id, err := pathID(r, "roleID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	id, err := pathID(r, "roleID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req roleRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req.Name, req.Description)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	id, err := pathID(r, "roleID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type grantRequest struct {
	SiteID       int64    `json:"siteId" validate:"min=0"`
	ChannelID    int64    `json:"channelId" validate:"min=0"`
	Capabilities []string `json:"capabilities"`
}

type grantResponse struct {
	SiteID     int64  `json:"siteId"`
	ChannelID  int64  `json:"channelId"`
	Capability string `json:"capability"`
}

func (h *Handler) listGrants(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	subject, err := pathSubject(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	grants, err := h.service.ListGrants(r.Context(), subject)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]grantResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, grantResponse{SiteID: g.SiteID, ChannelID: g.ChannelID, Capability: string(g.Capability)})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	subject, err := pathSubject(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req grantRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Grant(r.Context(), subject, req.SiteID, req.ChannelID, toCapabilities(req.Capabilities)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	subject, err := pathSubject(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req grantRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Revoke(r.Context(), subject, req.SiteID, req.ChannelID, toCapabilities(req.Capabilities)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignmentRequest struct {
	RoleID int64 `json:"roleId" validate:"required,min=1"`
	SiteID int64 `json:"siteId" validate:"min=0"`
}

type assignmentResponse struct {
	RoleID int64 `json:"roleId"`
	SiteID int64 `json:"siteId"`
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	kind, id, err := pathActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	assignments, err := h.service.ListAssignments(r.Context(), kind, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]assignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, assignmentResponse{RoleID: a.RoleID, SiteID: a.SiteID})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	kind, id, err := pathActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req assignmentRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	err = h.service.AssignRole(r.Context(), Assignment{
		ActorKind: kind, ActorID: id, RoleID: req.RoleID, SiteID: req.SiteID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	kind, id, err := pathActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	roleID, err := pathID(r, "roleID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	siteID := int64(0)
	if raw := r.URL.Query().Get("siteId"); raw != "" {
		siteID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || siteID < 0 {
			httpx.RespondError(w, fmt.Errorf("bad siteId: %w", shared.ErrValidationFailed))
			return
		}
	}
	err = h.service.RemoveRole(r.Context(), Assignment{
		ActorKind: kind, ActorID: id, RoleID: roleID, SiteID: siteID,
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

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad %s: %w", name, shared.ErrValidationFailed)
	}
	return id, nil
}

func pathSubject(r *http.Request) (Subject, error) {
	kind := SubjectKind(chi.URLParam(r, "subjectKind"))
	if !kind.Valid() {
		return Subject{}, fmt.Errorf("unknown subject kind: %w", shared.ErrValidationFailed)
	}
	id, err := pathID(r, "subjectID")
	if err != nil {
		return Subject{}, err
	}
	return Subject{Kind: kind, ID: id}, nil
}

func pathActor(r *http.Request) (shared.ActorKind, int64, error) {
	kind := shared.ActorKind(chi.URLParam(r, "actorKind"))
	if kind != shared.ActorAdministrator && kind != shared.ActorUser {
		return "", 0, fmt.Errorf("unknown actor kind: %w", shared.ErrValidationFailed)
	}
	id, err := pathID(r, "actorID")
	if err != nil {
		return "", 0, err
	}
	return kind, id, nil
}

func toCapabilities(names []string) []authz.Capability {
	caps := make([]authz.Capability, 0, len(names))
	for _, name := range names {
		caps = append(caps, authz.Capability(name))
	}
	return caps
}
