package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
	"github.com/odyssey-erp/odyssey-iam/internal/users"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      *Gate
	validator *validator.Validate
	responder *httpx.Responder
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gate *Gate, v *validator.Validate, responder *httpx.Responder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, gate: gate, validator: v, responder: responder}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/signUp", h.handleSignUp)
	r.Post("/auth/signIn", h.handleSignIn)
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Middleware)
		r.Post("/auth/signOut", h.handleSignOut)
		r.Get("/current", h.handleCurrent)
	})
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var input users.RegisterInput
	if err := httpx.Bind(r, h.validator, &input); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	session, err := h.service.SignUp(r.Context(), input)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.logger.Info("user signed up", slog.String("user_id", session.User.ID))
	httpx.JSON(w, http.StatusCreated, session)
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var input SignInInput
	if err := httpx.Bind(r, h.validator, &input); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	session, err := h.service.SignIn(r.Context(), input)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.responder.Error(w, r, shared.NotAuthorized("Not authorized"))
		return
	}
	if err := h.service.SignOut(r.Context(), claims); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.NoContent(w)
}

type currentResponse struct {
	User users.User `json:"user"`
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		h.responder.Error(w, r, shared.NotAuthorized("Not authorized"))
		return
	}
	httpx.JSON(w, http.StatusOK, currentResponse{User: actor})
}
