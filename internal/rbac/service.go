package rbac

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// RoleSource resolves role references into roles. Ids that no longer resolve
// are skipped.
type RoleSource interface {
	RolesByIDs(ctx context.Context, ids []string) ([]Role, error)
}

// BearerSource loads the role-bearing record for an actor. It returns
// shared.ErrNotFound when the actor has no such record.
type BearerSource interface {
	RoleBearer(ctx context.Context, actorID string) (RoleBearer, error)
}

// Service orchestrates authorization decisions.
type Service struct {
	roles    RoleSource
	profiles BearerSource
	actors   BearerSource
}

// NewService constructs a Service. profiles backs profile-scoped gates and
// actors backs actor-scoped gates.
func NewService(roles RoleSource, profiles, actors BearerSource) *Service {
	return &Service{roles: roles, profiles: profiles, actors: actors}
}

// Authorize loads the current role set for actorID under scope and resolves
// required against it. Nothing is cached between calls.
func (s *Service) Authorize(ctx context.Context, scope Scope, actorID string, required []Permission) (Subject, error) {
	if actorID == "" {
		return Subject{}, shared.NotAuthorized("You have to be signed in to perform this action")
	}

	bearer, err := s.loadBearer(ctx, scope, actorID)
	if err != nil {
		return Subject{}, err
	}

	roles, err := s.roles.RolesByIDs(ctx, bearer.RoleIDs)
	if err != nil {
		return Subject{}, shared.System("Could not load roles", err)
	}

	decision, err := Resolve(roles, required)
	if err != nil {
		return Subject{}, err
	}
	if !decision.Allowed {
		return Subject{}, decision.Err()
	}

	subject := Subject{Scope: scope, ActorID: actorID, Roles: roles}
	if scope == ScopeProfile {
		subject.ProfileID = bearer.ID
	}
	return subject, nil
}

func (s *Service) loadBearer(ctx context.Context, scope Scope, actorID string) (RoleBearer, error) {
	switch scope {
	case ScopeProfile:
		bearer, err := s.profiles.RoleBearer(ctx, actorID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return RoleBearer{}, shared.NotFound("You have to be an employee to perform this action")
			}
			return RoleBearer{}, shared.System("Could not load employee profile", err)
		}
		return bearer, nil
	case ScopeActor:
		bearer, err := s.actors.RoleBearer(ctx, actorID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return RoleBearer{}, shared.NotAuthorized("Not authorized")
			}
			return RoleBearer{}, shared.System("Could not load user", err)
		}
		return bearer, nil
	default:
		return RoleBearer{}, shared.Critical("unknown authorization scope", errors.New("rbac: scope "+string(scope)))
	}
}
