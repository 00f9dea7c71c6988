package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// Service handles user business logic.
type Service struct {
	repo   Repository
	hasher PasswordHasher
	audit  shared.AuditRecorder
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service instance. audit and logger may be nil.
func NewService(repo Repository, hasher PasswordHasher, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, hasher: hasher, audit: audit, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an active user with an empty actor role set.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return User{}, shared.System("Could not hash password", err)
	}
	now := s.now()
	user := User{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
		Tag:          strings.TrimSpace(input.Tag),
		Status:       StatusActive,
		RoleIDs:      []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, duplicateError(err, "Email is already taken")
	}
	return user, nil
}

// Authenticate verifies email and password. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return User{}, invalidCredentials()
		}
		return User{}, shared.System("Could not load user", err)
	}
	ok, err := s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		return User{}, shared.System("Could not verify password", err)
	}
	if !ok {
		return User{}, invalidCredentials()
	}
	return user, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return User{}, shared.NotFound("User not found")
		}
		return User{}, shared.System("Could not load user", err)
	}
	return user, nil
}

// GetByEmail returns a user by email address.
func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return User{}, shared.NotFound("User not found")
		}
		return User{}, shared.System("Could not load user", err)
	}
	return user, nil
}

// List returns a page of users.
func (s *Service) List(ctx context.Context, page shared.PageRequest) ([]User, shared.Pagination, error) {
	page = page.Normalize()
	users, total, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, shared.Pagination{}, shared.System("Could not list users", err)
	}
	return users, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// SetStatus suspends or reactivates an account. Suspension takes effect on
// the user's next request.
func (s *Service) SetStatus(ctx context.Context, id string, status Status, by string) (User, error) {
	if !status.Valid() {
		return User{}, shared.Validation(shared.FieldError{Field: "status", Message: "Status must be one of: active suspended"})
	}
	if id == by && status == StatusSuspended {
		return User{}, shared.BadRequest("You cannot suspend your own account")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if user.Status == status {
		return user, nil
	}
	previous := user.Status
	user.Status = status
	user.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return User{}, shared.NotFound("User not found")
		}
		return User{}, shared.System("Could not update user", err)
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  by,
			Action:   shared.AuditUserStatus,
			Entity:   "user",
			EntityID: user.ID,
			Meta:     map[string]any{"from": string(previous), "to": string(status)},
			At:       user.UpdatedAt,
		})
		if err != nil {
			s.logger.Warn("record audit log", slog.String("action", shared.AuditUserStatus), slog.String("user_id", user.ID), slog.Any("error", err))
		}
	}
	return user, nil
}

// UpdateCredentials changes email and/or password. An email already used by
// another account is rejected.
func (s *Service) UpdateCredentials(ctx context.Context, id string, update CredentialsUpdate) (User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if update.Email != nil {
		user.Email = normalizeEmail(*update.Email)
	}
	if update.Password != nil {
		hash, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return User{}, shared.System("Could not hash password", err)
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return User{}, shared.NotFound("User not found")
		}
		return User{}, duplicateError(err, "User with this email already exists")
	}
	return user, nil
}

// RoleBearer loads the actor-scoped role set for authorization.
func (s *Service) RoleBearer(ctx context.Context, actorID string) (rbac.RoleBearer, error) {
	user, err := s.repo.FindByID(ctx, actorID)
	if err != nil {
		return rbac.RoleBearer{}, err
	}
	return user.Bearer(), nil
}

func invalidCredentials() error {
	err := shared.BadRequest("Invalid credentials")
	err.Err = shared.ErrInvalidCredentials
	return err
}

func duplicateError(err error, emailMessage string) error {
	if !errors.Is(err, shared.ErrDuplicate) {
		return shared.System("Could not save user", err)
	}
	switch shared.DuplicateField(err) {
	case "tag":
		return shared.BadRequestField("tag", "Tag is already taken")
	default:
		return shared.BadRequestField("email", emailMessage)
	}
}

var _ rbac.BearerSource = (*Service)(nil)
