package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// DecisionObserver records authorization outcomes.
type DecisionObserver interface {
	ObserveAuthorization(scope, outcome string)
}

// ActorLookup returns the signed-in actor id stored by the authentication gate.
type ActorLookup func(ctx context.Context) (string, bool)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Actor     ActorLookup
	Service   *Service
	Responder *httpx.Responder
	Logger    *slog.Logger
	Observer  DecisionObserver
}

// RequireProfile gates on the signed-in actor's employee profile roles.
func (m Middleware) RequireProfile(perms ...Permission) func(http.Handler) http.Handler {
	return m.require(ScopeProfile, perms)
}

// RequireActor gates on the signed-in actor's own roles.
func (m Middleware) RequireActor(perms ...Permission) func(http.Handler) http.Handler {
	return m.require(ScopeActor, perms)
}

func (m Middleware) require(scope Scope, perms []Permission) func(http.Handler) http.Handler {
	MustKnow(perms...)
	required := append([]Permission(nil), perms...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var actorID string
			if m.Actor != nil {
				actorID, _ = m.Actor(r.Context())
			}
			subject, err := m.Service.Authorize(r.Context(), scope, actorID, required)
			m.observe(scope, err)
			if err != nil {
				if m.Logger != nil && shared.IsKind(err, shared.KindNotAuthorized) {
					m.Logger.Info("rbac denied",
						slog.String("scope", string(scope)),
						slog.String("actor", actorID),
						slog.String("path", r.URL.Path))
				}
				m.Responder.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
		})
	}
}

func (m Middleware) observe(scope Scope, err error) {
	if m.Observer == nil {
		return
	}
	outcome := "allowed"
	switch shared.KindOf(err) {
	case shared.KindUnknown:
		if err != nil {
			outcome = "error"
		}
	case shared.KindNotAuthorized:
		outcome = "denied"
	case shared.KindNotFound:
		outcome = "no_profile"
	default:
		outcome = "error"
	}
	m.Observer.ObserveAuthorization(string(scope), outcome)
}
