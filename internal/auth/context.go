package auth

import (
	"context"

	"github.com/odyssey-erp/odyssey-iam/internal/users"
)

type actorContextKey struct{}

type claimsContextKey struct{}

// ContextWithActor stores the authenticated actor in context.
func ContextWithActor(ctx context.Context, actor users.User) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the authenticated actor.
func ActorFromContext(ctx context.Context) (users.User, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(users.User)
	return actor, ok
}

// ActorIDFromContext returns the authenticated actor id. It satisfies
// rbac.ActorLookup.
func ActorIDFromContext(ctx context.Context) (string, bool) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.ID == "" {
		return "", false
	}
	return actor.ID, true
}

// ContextWithClaims stores the verified credential claims.
func ContextWithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext extracts the verified credential claims.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(Claims)
	return claims, ok
}
