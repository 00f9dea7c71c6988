package roles

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
)

// Handler manages role management endpoints.
type Handler struct {
	service     *Service
	assignments *AssignmentService
	validator   *validator.Validate
	responder   *httpx.Responder
	rbac        rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(service *Service, assignments *AssignmentService, v *validator.Validate, responder *httpx.Responder, rbac rbac.Middleware) *Handler {
	return &Handler{service: service, assignments: assignments, validator: v, responder: responder, rbac: rbac}
}

// MountRoutes registers role routes. Callers mount it behind the
// authentication gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireProfile())
		r.Get("/", h.listRoles)
		r.Get("/{roleId}", h.getRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireProfile(rbac.PermRolesManageAll))
		r.Post("/assign", h.assignRole)
		r.Delete("/retract", h.retractRole)
		r.Post("/", h.createRole)
		r.Put("/{roleId}", h.updateRole)
		r.Delete("/{roleId}", h.deleteRole)
	})
}

type roleResponse struct {
	Role rbac.Role `json:"role"`
}

type listResponse struct {
	Roles []rbac.Role `json:"roles"`
}

func actorID(r *http.Request) string {
	subject, _ := rbac.SubjectFromContext(r.Context())
	return subject.ActorID
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.List(r.Context())
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Roles: roles})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.Get(r.Context(), chi.URLParam(r, "roleId"))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roleResponse{Role: role})
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var input RoleInput
	if err := httpx.Bind(r, h.validator, &input); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	role, err := h.service.Create(r.Context(), input, actorID(r))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, roleResponse{Role: role})
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	var input RoleInput
	if err := httpx.Bind(r, h.validator, &input); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	role, err := h.service.Update(r.Context(), chi.URLParam(r, "roleId"), input, actorID(r))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roleResponse{Role: role})
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "roleId"), actorID(r)); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	var input AssignmentInput
	if err := httpx.Bind(r, h.validator, &input); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	result, err := h.assignments.Assign(r.Context(), input.Target, input.HolderID, input.RoleID, actorID(r))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) retractRole(w http.ResponseWriter, r *http.Request) {
	var input AssignmentInput
	if err := httpx.Bind(r, h.validator, &input); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	result, err := h.assignments.Retract(r.Context(), input.Target, input.HolderID, input.RoleID, actorID(r))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
