package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// Handler manages user administration endpoints.
type Handler struct {
	service   *Service
	validator *validator.Validate
	responder *httpx.Responder
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(service *Service, v *validator.Validate, responder *httpx.Responder, rbac rbac.Middleware) *Handler {
	return &Handler{service: service, validator: v, responder: responder, rbac: rbac}
}

// MountRoutes registers user routes. Callers mount it behind the
// authentication gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireActor(rbac.PermUsersManageAll))
		r.Get("/", h.listUsers)
		r.Get("/{userId}", h.getUser)
		r.Put("/{userId}/status", h.setStatus)
	})
}

type userResponse struct {
	User User `json:"user"`
}

type listResponse struct {
	Users      []User            `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, pagination, err := h.service.List(r.Context(), shared.PageFromQuery(r.URL.Query()))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Users: users, Pagination: pagination})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, userResponse{User: user})
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	var input StatusInput
	if err := httpx.Bind(r, h.validator, &input); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	subject, _ := rbac.SubjectFromContext(r.Context())
	user, err := h.service.SetStatus(r.Context(), chi.URLParam(r, "userId"), input.Status, subject.ActorID)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, userResponse{User: user})
}
