package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
	"github.com/odyssey-erp/odyssey-iam/internal/users"
)

// ActorStore loads actors by id. users.Repository satisfies it.
type ActorStore interface {
	FindByID(ctx context.Context, id string) (users.User, error)
}

// Gate authenticates bearer credentials.
type Gate struct {
	tokens    *TokenManager
	revoked   RevocationList
	actors    ActorStore
	responder *httpx.Responder
}

// NewGate constructs the authentication gate.
func NewGate(tokens *TokenManager, revoked RevocationList, actors ActorStore, responder *httpx.Responder) *Gate {
	return &Gate{tokens: tokens, revoked: revoked, actors: actors, responder: responder}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate resolves an Authorization header into the current actor.
// Every credential failure yields the same "Not authorized" error; a
// suspended account is reported separately.
func (g *Gate) Authenticate(ctx context.Context, header string) (users.User, Claims, error) {
	raw, ok := bearerToken(header)
	if !ok {
		return users.User{}, Claims{}, shared.NotAuthorized("Not authorized")
	}
	claims, err := g.tokens.Parse(raw)
	if err != nil {
		return users.User{}, Claims{}, notAuthorized(err)
	}
	revoked, err := g.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return users.User{}, Claims{}, shared.System("Could not verify credentials", err)
	}
	if revoked {
		return users.User{}, Claims{}, notAuthorized(ErrRevokedToken)
	}
	actor, err := g.actors.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return users.User{}, Claims{}, shared.NotAuthorized("Not authorized")
		}
		return users.User{}, Claims{}, shared.System("Could not load user", err)
	}
	if actor.Suspended() {
		return users.User{}, Claims{}, shared.NotAuthorized("Account suspended")
	}
	return actor, claims, nil
}

// notAuthorized hides cause from the client but keeps it for errors.Is.
func notAuthorized(cause error) error {
	err := shared.NotAuthorized("Not authorized")
	err.Err = cause
	return err
}

// Middleware rejects unauthenticated requests and stores the actor and
// claims in the request context.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, claims, err := g.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			g.responder.Error(w, r, err)
			return
		}
		ctx := ContextWithClaims(ContextWithActor(r.Context(), actor), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
