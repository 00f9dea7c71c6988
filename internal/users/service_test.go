package users_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-iam/internal/shared"
	"github.com/odyssey-erp/odyssey-iam/internal/store/memory"
	"github.com/odyssey-erp/odyssey-iam/internal/users"
)

func newService(t *testing.T) (*users.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return users.NewService(store.Users(), users.NewPasswordHasher(4), store, nil), store
}

func message(t *testing.T, err error) string {
	t.Helper()
	var appErr *shared.Error
	require.ErrorAs(t, err, &appErr)
	return appErr.Entries()[0].Message
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, users.RegisterInput{Email: "  Ann@Example.COM ", Password: "correct-horse", Tag: "ann#1234"})
	require.NoError(t, err)
	require.Equal(t, "ann@example.com", user.Email)
	require.Equal(t, users.StatusActive, user.Status)
	require.Empty(t, user.RoleIDs)
	require.NotEqual(t, "correct-horse", user.PasswordHash)

	_, err = svc.Register(ctx, users.RegisterInput{Email: "ann@example.com", Password: "other-pass"})
	require.Equal(t, "Email is already taken", message(t, err))

	_, err = svc.Register(ctx, users.RegisterInput{Email: "bob@example.com", Password: "other-pass", Tag: "ann#1234"})
	require.Equal(t, "Tag is already taken", message(t, err))
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	registered, err := svc.Register(ctx, users.RegisterInput{Email: "ann@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "ANN@example.com", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, registered.ID, user.ID)

	_, err = svc.Authenticate(ctx, "ann@example.com", "wrong-horse")
	require.True(t, shared.IsKind(err, shared.KindBadRequest))
	require.Equal(t, "Invalid credentials", message(t, err))
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "ghost@example.com", "correct-horse")
	require.Equal(t, "Invalid credentials", message(t, err))
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSetStatus(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	admin, err := svc.Register(ctx, users.RegisterInput{Email: "admin@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	bob, err := svc.Register(ctx, users.RegisterInput{Email: "bob@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	updated, err := svc.SetStatus(ctx, bob.ID, users.StatusSuspended, admin.ID)
	require.NoError(t, err)
	require.True(t, updated.Suspended())

	again, err := svc.SetStatus(ctx, bob.ID, users.StatusSuspended, admin.ID)
	require.NoError(t, err)
	require.True(t, again.Suspended())

	trail := store.AuditTrail()
	require.Len(t, trail, 1)
	require.Equal(t, shared.AuditUserStatus, trail[0].Action)
	require.Equal(t, admin.ID, trail[0].ActorID)

	_, err = svc.SetStatus(ctx, admin.ID, users.StatusSuspended, admin.ID)
	require.Equal(t, "You cannot suspend your own account", message(t, err))

	_, err = svc.SetStatus(ctx, bob.ID, users.Status("banned"), admin.ID)
	require.True(t, shared.IsKind(err, shared.KindValidation))

	_, err = svc.SetStatus(ctx, "missing", users.StatusActive, admin.ID)
	require.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestUpdateCredentials(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	ann, err := svc.Register(ctx, users.RegisterInput{Email: "ann@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, users.RegisterInput{Email: "bob@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	taken := "BOB@example.com"
	_, err = svc.UpdateCredentials(ctx, ann.ID, users.CredentialsUpdate{Email: &taken})
	require.Equal(t, "User with this email already exists", message(t, err))

	// Keeping one's own email is not a collision.
	own := "ann@example.com"
	password := "new-password"
	_, err = svc.UpdateCredentials(ctx, ann.ID, users.CredentialsUpdate{Email: &own, Password: &password})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "ann@example.com", "new-password")
	require.NoError(t, err)
}

func TestGetAndList(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := svc.Register(ctx, users.RegisterInput{Email: email, Password: "correct-horse"})
		require.NoError(t, err)
	}

	page, pagination, err := svc.List(ctx, shared.PageRequest{Page: 2, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, 3, pagination.Total)

	_, err = svc.Get(ctx, "missing")
	require.Equal(t, "User not found", message(t, err))

	found, err := svc.GetByEmail(ctx, "B@example.com")
	require.NoError(t, err)
	require.Equal(t, "b@example.com", found.Email)
}

func TestRoleBearerPassesNotFound(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.RoleBearer(context.Background(), "missing")
	require.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestPasswordHasher(t *testing.T) {
	hasher := users.NewPasswordHasher(4)
	hash, err := hasher.Hash("correct-horse")
	require.NoError(t, err)

	ok, err := hasher.Compare(hash, "correct-horse")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = hasher.Compare(hash, "wrong")
	require.NoError(t, err)
	require.False(t, ok)

	require.Equal(t, 10, users.NewPasswordHasher(99).Cost)
}

type brokenAudit struct{}

func (brokenAudit) Record(context.Context, shared.AuditLog) error {
	return errors.New("audit_logs unavailable")
}

func TestSetStatusLogsAuditFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	var buf bytes.Buffer
	svc := users.NewService(store.Users(), users.NewPasswordHasher(4), brokenAudit{}, slog.New(slog.NewTextHandler(&buf, nil)))
	user, err := svc.Register(ctx, users.RegisterInput{Email: "bob@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	updated, err := svc.SetStatus(ctx, user.ID, users.StatusSuspended, "admin")
	require.NoError(t, err)
	require.Equal(t, users.StatusSuspended, updated.Status)
	require.Contains(t, buf.String(), shared.AuditUserStatus)
	require.Contains(t, buf.String(), "audit_logs unavailable")
}
