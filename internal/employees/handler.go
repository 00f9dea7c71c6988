package employees

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-iam/internal/auth"
	"github.com/odyssey-erp/odyssey-iam/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// Handler manages employee endpoints.
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

// MountRoutes registers employee routes. Callers mount it behind the
// authentication gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/apply", h.apply)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireProfile())
		r.Get("/current", h.current)
		r.Get("/", h.list)
		r.Get("/{employeeId}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireProfile(rbac.PermUsersManageAll))
		r.Post("/{userId}", h.promote)
		r.Put("/{employeeId}", h.update)
		r.Delete("/{employeeId}", h.delete)
	})
}

type employeeResponse struct {
	Employee View `json:"employee"`
}

type listResponse struct {
	Employees  []View            `json:"employees"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.responder.Error(w, r, shared.NotAuthorized("You have to be signed in to perform this action"))
		return
	}
	var input ProfileInput
	if err := httpx.Bind(r, h.validator, &input); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	view, err := h.service.Apply(r.Context(), actor, input)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, employeeResponse{Employee: view})
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	subject, _ := rbac.SubjectFromContext(r.Context())
	view, err := h.service.Current(r.Context(), subject.ActorID)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, employeeResponse{Employee: view})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	views, pagination, err := h.service.List(r.Context(), shared.PageFromQuery(r.URL.Query()))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Employees: views, Pagination: pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context(), chi.URLParam(r, "employeeId"))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, employeeResponse{Employee: view})
}

func (h *Handler) promote(w http.ResponseWriter, r *http.Request) {
	var input ProfileInput
	if r.ContentLength != 0 {
		if err := httpx.Bind(r, h.validator, &input); err != nil {
			h.responder.Error(w, r, err)
			return
		}
	}
	subject, _ := rbac.SubjectFromContext(r.Context())
	view, err := h.service.Promote(r.Context(), chi.URLParam(r, "userId"), input, subject.ActorID)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, employeeResponse{Employee: view})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var input UpdateInput
	if err := httpx.Bind(r, h.validator, &input); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	subject, _ := rbac.SubjectFromContext(r.Context())
	view, err := h.service.Update(r.Context(), chi.URLParam(r, "employeeId"), input, subject.ActorID)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, employeeResponse{Employee: view})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	subject, _ := rbac.SubjectFromContext(r.Context())
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "employeeId"), subject.ActorID); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.NoContent(w)
}
