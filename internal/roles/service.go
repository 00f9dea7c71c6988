package roles

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// Service handles role lifecycle: create, update and delete.
type Service struct {
	repo   Repository
	audit  shared.AuditRecorder
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service instance. audit and logger may be nil.
func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create validates and persists a new role. Names are unique with an exact,
// case-sensitive match.
func (s *Service) Create(ctx context.Context, input RoleInput, by string) (rbac.Role, error) {
	role, err := input.Draft()
	if err != nil {
		return rbac.Role{}, err
	}
	role.ID = uuid.NewString()
	role.CreatedAt = s.now()
	role.UpdatedAt = role.CreatedAt
	if err := s.repo.Create(ctx, role); err != nil {
		return rbac.Role{}, saveError(err)
	}
	s.record(ctx, shared.AuditRoleCreated, role.ID, by, map[string]any{"name": role.Name})
	return role, nil
}

// Get returns a role by id.
func (s *Service) Get(ctx context.Context, id string) (rbac.Role, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return rbac.Role{}, shared.NotFound("Role not found")
		}
		return rbac.Role{}, shared.System("Could not load role", err)
	}
	return role, nil
}

// List returns every role ordered by hierarchy level, then name.
func (s *Service) List(ctx context.Context) ([]rbac.Role, error) {
	roles, err := s.repo.List(ctx)
	if err != nil {
		return nil, shared.System("Could not list roles", err)
	}
	return roles, nil
}

// Update replaces a role's attributes. The name must stay unique among the
// other roles.
func (s *Service) Update(ctx context.Context, id string, input RoleInput, by string) (rbac.Role, error) {
	draft, err := input.Draft()
	if err != nil {
		return rbac.Role{}, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return rbac.Role{}, err
	}
	draft.ID = current.ID
	draft.CreatedAt = current.CreatedAt
	draft.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, draft); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return rbac.Role{}, shared.NotFound("Role not found")
		}
		return rbac.Role{}, saveError(err)
	}
	s.record(ctx, shared.AuditRoleUpdated, draft.ID, by, map[string]any{"name": draft.Name, "previous_name": current.Name})
	return draft, nil
}

// Delete removes a role immediately. Holders referencing it are left as is;
// resolution ignores the dangling id.
func (s *Service) Delete(ctx context.Context, id, by string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("Role not found")
		}
		return shared.System("Could not delete role", err)
	}
	s.record(ctx, shared.AuditRoleDeleted, id, by, nil)
	return nil
}

func (s *Service) record(ctx context.Context, action, roleID, by string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  by,
		Action:   action,
		Entity:   "role",
		EntityID: roleID,
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("record audit log", slog.String("action", action), slog.String("role_id", roleID), slog.Any("error", err))
	}
}

func saveError(err error) error {
	if errors.Is(err, shared.ErrDuplicate) {
		return shared.BadRequestField("name", "Role with this name already exists")
	}
	return shared.System("Could not save role", err)
}
