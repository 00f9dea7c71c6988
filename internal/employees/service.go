package employees

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
	"github.com/odyssey-erp/odyssey-iam/internal/users"
)

// UserDirectory is the slice of the user service employees depend on.
type UserDirectory interface {
	Get(ctx context.Context, id string) (users.User, error)
	GetByEmail(ctx context.Context, email string) (users.User, error)
	UpdateCredentials(ctx context.Context, id string, update users.CredentialsUpdate) (users.User, error)
}

// Service handles employee business logic.
type Service struct {
	repo   Repository
	users  UserDirectory
	roles  rbac.RoleSource
	audit  shared.AuditRecorder
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service instance. audit and logger may be nil.
func NewService(repo Repository, directory UserDirectory, roles rbac.RoleSource, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, users: directory, roles: roles, audit: audit, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Promote attaches an employee profile to an existing user.
func (s *Service) Promote(ctx context.Context, userID string, input ProfileInput, by string) (View, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return s.create(ctx, user, input, by)
}

// Apply lets the signed-in user create their own employee profile. The new
// profile holds no roles.
func (s *Service) Apply(ctx context.Context, actor users.User, input ProfileInput) (View, error) {
	return s.create(ctx, actor, input, actor.ID)
}

func (s *Service) create(ctx context.Context, user users.User, input ProfileInput, by string) (View, error) {
	tag := strings.TrimSpace(input.Tag)
	if tag == "" {
		tag = user.Tag
	}
	if tag == "" {
		return View{}, shared.BadRequestField("tag", "Tag is required")
	}
	if _, err := s.repo.FindByUserID(ctx, user.ID); err == nil {
		return View{}, shared.BadRequest("User is already an employee")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return View{}, shared.System("Could not load employee", err)
	}

	now := s.now()
	employee := Employee{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Tag:         tag,
		Description: strings.TrimSpace(input.Description),
		RoleIDs:     []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, employee); err != nil {
		return View{}, saveError(err)
	}
	s.record(ctx, shared.AuditEmployeeCreated, employee.ID, by, map[string]any{"user_id": user.ID, "tag": tag})
	return View{Employee: employee, Email: user.Email, Roles: []rbac.Role{}}, nil
}

// Current returns the signed-in user's own profile.
func (s *Service) Current(ctx context.Context, userID string) (View, error) {
	employee, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return View{}, lookupError(err)
	}
	return s.view(ctx, employee)
}

// Get returns an employee by id.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return View{}, lookupError(err)
	}
	return s.view(ctx, employee)
}

// List returns a page of employees with their roles populated.
func (s *Service) List(ctx context.Context, page shared.PageRequest) ([]View, shared.Pagination, error) {
	page = page.Normalize()
	list, total, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, shared.Pagination{}, shared.System("Could not list employees", err)
	}
	views := make([]View, 0, len(list))
	for _, employee := range list {
		v, err := s.view(ctx, employee)
		if err != nil {
			return nil, shared.Pagination{}, err
		}
		views = append(views, v)
	}
	return views, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// Update changes the employee's credentials and profile fields. Credentials
// live on the user record. Email and tag collisions are reported before
// anything is written; the profile is restored if the credential write fails.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput, by string) (View, error) {
	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return View{}, lookupError(err)
	}
	if input.Email != nil {
		if err := s.ensureEmailFree(ctx, employee.UserID, *input.Email); err != nil {
			return View{}, err
		}
	}
	previous := employee
	changed := false
	if input.Tag != nil && strings.TrimSpace(*input.Tag) != employee.Tag {
		employee.Tag = strings.TrimSpace(*input.Tag)
		changed = true
	}
	if input.Description != nil && strings.TrimSpace(*input.Description) != employee.Description {
		employee.Description = strings.TrimSpace(*input.Description)
		changed = true
	}
	if changed {
		employee.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, employee); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return View{}, shared.NotFound("Employee not found")
			}
			return View{}, saveError(err)
		}
	}
	if input.Email != nil || input.Password != nil {
		if _, err := s.users.UpdateCredentials(ctx, employee.UserID, users.CredentialsUpdate{Email: input.Email, Password: input.Password}); err != nil {
			if changed {
				s.restore(ctx, previous)
			}
			return View{}, err
		}
	}
	s.record(ctx, shared.AuditEmployeeUpdated, employee.ID, by, map[string]any{
		"email_changed":    input.Email != nil,
		"password_changed": input.Password != nil,
	})
	return s.view(ctx, employee)
}

func (s *Service) ensureEmailFree(ctx context.Context, userID, email string) error {
	owner, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && owner.ID != userID:
		return shared.BadRequestField("email", "User with this email already exists")
	case err != nil && !shared.IsKind(err, shared.KindNotFound):
		return err
	}
	return nil
}

func (s *Service) restore(ctx context.Context, previous Employee) {
	if err := s.repo.Update(ctx, previous); err != nil {
		s.logger.Error("restore employee profile", slog.String("employee_id", previous.ID), slog.Any("error", err))
	}
}

// Delete removes the employee profile. The underlying user is kept.
func (s *Service) Delete(ctx context.Context, id, by string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err)
	}
	s.record(ctx, shared.AuditEmployeeDeleted, id, by, nil)
	return nil
}

// RoleBearer loads the profile-scoped role set for authorization.
func (s *Service) RoleBearer(ctx context.Context, actorID string) (rbac.RoleBearer, error) {
	employee, err := s.repo.FindByUserID(ctx, actorID)
	if err != nil {
		return rbac.RoleBearer{}, err
	}
	return employee.Bearer(), nil
}

func (s *Service) view(ctx context.Context, employee Employee) (View, error) {
	v := View{Employee: employee, Roles: []rbac.Role{}}
	user, err := s.users.Get(ctx, employee.UserID)
	if err != nil {
		if !shared.IsKind(err, shared.KindNotFound) {
			return View{}, err
		}
	} else {
		v.Email = user.Email
	}
	roles, err := s.roles.RolesByIDs(ctx, employee.RoleIDs)
	if err != nil {
		return View{}, shared.System("Could not load roles", err)
	}
	if roles != nil {
		v.Roles = roles
	}
	return v, nil
}

func (s *Service) record(ctx context.Context, action, employeeID, by string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  by,
		Action:   action,
		Entity:   "employee",
		EntityID: employeeID,
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("record audit log", slog.String("action", action), slog.String("employee_id", employeeID), slog.Any("error", err))
	}
}

func lookupError(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("Employee not found")
	}
	return shared.System("Could not load employee", err)
}

func saveError(err error) error {
	if !errors.Is(err, shared.ErrDuplicate) {
		return shared.System("Could not save employee", err)
	}
	if shared.DuplicateField(err) == "userId" {
		return shared.BadRequest("User is already an employee")
	}
	return shared.BadRequestField("tag", "Tag is already taken")
}

var _ rbac.BearerSource = (*Service)(nil)
