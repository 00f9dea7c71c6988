package auth

import (
	"context"
	"log/slog"

	"github.com/odyssey-erp/odyssey-iam/internal/shared"
	"github.com/odyssey-erp/odyssey-iam/internal/users"
)

// WelcomeNotifier announces new accounts. Delivery is best effort.
type WelcomeNotifier interface {
	NotifyWelcome(ctx context.Context, userID, email string) error
}

// SignInInput captures sign-in payloads.
type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is returned by sign-up and sign-in.
type Session struct {
	User users.User `json:"user"`
	JWT  string     `json:"jwt"`
}

// Service wraps authentication business rules.
type Service struct {
	users    *users.Service
	tokens   *TokenManager
	revoked  RevocationList
	notifier WelcomeNotifier
	logger   *slog.Logger
}

// NewService constructs a new Service. notifier may be nil.
func NewService(userService *users.Service, tokens *TokenManager, revoked RevocationList, notifier WelcomeNotifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: userService, tokens: tokens, revoked: revoked, notifier: notifier, logger: logger}
}

// SignUp registers an account and issues its first credential.
func (s *Service) SignUp(ctx context.Context, input users.RegisterInput) (Session, error) {
	user, err := s.users.Register(ctx, input)
	if err != nil {
		return Session{}, err
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyWelcome(ctx, user.ID, user.Email); err != nil {
			s.logger.Warn("enqueue welcome notification", slog.String("user_id", user.ID), slog.Any("error", err))
		}
	}
	return s.issue(user)
}

// SignIn verifies credentials and issues a new token. Suspended accounts are
// refused.
func (s *Service) SignIn(ctx context.Context, input SignInInput) (Session, error) {
	user, err := s.users.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return Session{}, err
	}
	if user.Suspended() {
		return Session{}, shared.NotAuthorized("Account suspended")
	}
	return s.issue(user)
}

// SignOut revokes the presented credential for its remaining lifetime.
func (s *Service) SignOut(ctx context.Context, claims Claims) error {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return shared.NotAuthorized("Not authorized")
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return shared.System("Could not revoke credentials", err)
	}
	return nil
}

func (s *Service) issue(user users.User) (Session, error) {
	token, _, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, shared.System("Could not issue credentials", err)
	}
	return Session{User: user, JWT: token}, nil
}
