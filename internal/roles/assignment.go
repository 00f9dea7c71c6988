package roles

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// HolderStore reads and writes a role set guarded by a version counter.
// SaveRoleSet returns shared.ErrConflict when expectedVersion is stale and
// shared.ErrNotFound when the holder is gone.
type HolderStore interface {
	LoadRoleSet(ctx context.Context, id string) ([]string, int64, error)
	SaveRoleSet(ctx context.Context, id string, roleIDs []string, expectedVersion int64) error
}

// ChangeNotifier announces role-set changes. Delivery is best effort.
type ChangeNotifier interface {
	NotifyRoleChanged(ctx context.Context, target, holderID, roleID, action string) error
}

// AssignmentService mutates employee and user role sets.
type AssignmentService struct {
	roles    Repository
	holders  map[Target]HolderStore
	audit    shared.AuditRecorder
	notifier ChangeNotifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewAssignmentService wires the workflow. audit and notifier may be nil.
func NewAssignmentService(roles Repository, employees, users HolderStore, audit shared.AuditRecorder, notifier ChangeNotifier, logger *slog.Logger) *AssignmentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssignmentService{
		roles:    roles,
		holders:  map[Target]HolderStore{TargetEmployee: employees, TargetUser: users},
		audit:    audit,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Assign adds roleID to the holder's role set. Assigning a role the holder
// already has is an error, not a no-op.
func (s *AssignmentService) Assign(ctx context.Context, target Target, holderID, roleID, by string) (AssignmentResult, error) {
	return s.mutate(ctx, target, holderID, roleID, by, "assign")
}

// Retract removes roleID from the holder's role set. The role itself need not
// exist any more.
func (s *AssignmentService) Retract(ctx context.Context, target Target, holderID, roleID, by string) (AssignmentResult, error) {
	return s.mutate(ctx, target, holderID, roleID, by, "retract")
}

func (s *AssignmentService) mutate(ctx context.Context, target Target, holderID, roleID, by, action string) (AssignmentResult, error) {
	if target == "" {
		target = TargetEmployee
	}
	store, ok := s.holders[target]
	if !ok || store == nil {
		return AssignmentResult{}, shared.Validation(shared.FieldError{Field: "target", Message: "Target must be one of: employee user"})
	}

	current, version, err := store.LoadRoleSet(ctx, holderID)
	if err != nil {
		return AssignmentResult{}, holderError(target, err)
	}

	has := slices.Contains(current, roleID)
	var next []string
	switch action {
	case "assign":
		if _, err := s.roles.FindByID(ctx, roleID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return AssignmentResult{}, shared.NotFound("Role not found")
			}
			return AssignmentResult{}, shared.System("Could not load role", err)
		}
		if has {
			return AssignmentResult{}, shared.BadRequest("Role is already assigned")
		}
		next = append(slices.Clone(current), roleID)
	default:
		if !has {
			return AssignmentResult{}, shared.BadRequest("Role is not assigned")
		}
		next = slices.DeleteFunc(slices.Clone(current), func(id string) bool { return id == roleID })
	}

	if err := store.SaveRoleSet(ctx, holderID, next, version); err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return AssignmentResult{}, shared.BadRequest("Role set was modified concurrently, retry the request")
		}
		return AssignmentResult{}, holderError(target, err)
	}

	auditAction := shared.AuditRoleAssigned
	if action != "assign" {
		auditAction = shared.AuditRoleRetracted
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  by,
			Action:   auditAction,
			Entity:   string(target),
			EntityID: holderID,
			Meta:     map[string]any{"role_id": roleID},
			At:       s.now(),
		})
		if err != nil {
			s.logger.Warn("record audit log", slog.String("action", auditAction), slog.String("holder_id", holderID), slog.Any("error", err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyRoleChanged(ctx, string(target), holderID, roleID, action); err != nil {
			s.logger.Warn("enqueue role change notification", slog.String("holder_id", holderID), slog.Any("error", err))
		}
	}
	if next == nil {
		next = []string{}
	}
	return AssignmentResult{Target: target, HolderID: holderID, RoleIDs: next}, nil
}

func holderError(target Target, err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		if target == TargetUser {
			return shared.NotFound("User not found")
		}
		return shared.NotFound("Employee not found")
	}
	return shared.System("Could not update role set", err)
}
