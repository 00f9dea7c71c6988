package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-iam/internal/employees"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
	"github.com/odyssey-erp/odyssey-iam/internal/users"
)

func TestRoleSetCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := New()
	repo := s.Users()
	require.NoError(t, repo.Create(ctx, users.User{ID: "u1", Email: "ann@example.com"}))

	ids, version, err := repo.LoadRoleSet(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{}, ids)
	require.Zero(t, version)

	require.NoError(t, repo.SaveRoleSet(ctx, "u1", []string{"r1"}, version))
	require.ErrorIs(t, repo.SaveRoleSet(ctx, "u1", []string{"r2"}, version), shared.ErrConflict)

	ids, version, err = repo.LoadRoleSet(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"r1"}, ids)
	require.EqualValues(t, 1, version)

	_, _, err = repo.LoadRoleSet(ctx, "ghost")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestConcurrentRoleSetWritesSerialize(t *testing.T) {
	ctx := context.Background()
	s := New()
	repo := s.Employees()
	require.NoError(t, repo.Create(ctx, employees.Employee{ID: "e1", UserID: "u1", Tag: "ann#1001"}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if repo.SaveRoleSet(ctx, "e1", []string{"r"}, 0) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}

func TestUpdateKeepsRoleSet(t *testing.T) {
	ctx := context.Background()
	s := New()
	repo := s.Users()
	require.NoError(t, repo.Create(ctx, users.User{ID: "u1", Email: "ann@example.com"}))
	require.NoError(t, repo.SaveRoleSet(ctx, "u1", []string{"r1"}, 0))

	require.NoError(t, repo.Update(ctx, users.User{ID: "u1", Email: "new@example.com"}))
	got, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"r1"}, got.RoleIDs)
	require.EqualValues(t, 1, got.RoleVersion)

	got.RoleIDs[0] = "mutated"
	again, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "r1", again.RoleIDs[0], "callers receive copies")
}

func TestUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Users().Create(ctx, users.User{ID: "u1", Email: "ann@example.com", Tag: "ann#1001"}))
	err := s.Users().Create(ctx, users.User{ID: "u2", Email: "ann@example.com"})
	require.Equal(t, "email", shared.DuplicateField(err))
	err = s.Users().Create(ctx, users.User{ID: "u2", Email: "bob@example.com", Tag: "ann#1001"})
	require.Equal(t, "tag", shared.DuplicateField(err))

	require.NoError(t, s.Roles().Create(ctx, rbac.Role{ID: "r1", Name: "Admin"}))
	require.NoError(t, s.Roles().Create(ctx, rbac.Role{ID: "r2", Name: "admin"}))
	err = s.Roles().Update(ctx, rbac.Role{ID: "r2", Name: "Admin"})
	require.ErrorIs(t, err, shared.ErrDuplicate)

	require.NoError(t, s.Employees().Create(ctx, employees.Employee{ID: "e1", UserID: "u1", Tag: "ann#1001"}))
	err = s.Employees().Create(ctx, employees.Employee{ID: "e2", UserID: "u1", Tag: "bob#1002"})
	require.Equal(t, "userId", shared.DuplicateField(err))
}

func TestRolesByIDsSkipsDangling(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Roles().Create(ctx, rbac.Role{ID: "r1", Name: "Low", HierarchyLevel: 1}))
	require.NoError(t, s.Roles().Create(ctx, rbac.Role{ID: "r2", Name: "High", HierarchyLevel: 9}))

	list, err := s.Roles().RolesByIDs(ctx, []string{"r1", "gone", "r2"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "High", list[0].Name)
	require.NotNil(t, list[1].Permissions)
}

func TestUserListPages(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, email := range []string{"a@x.io", "b@x.io", "c@x.io"} {
		require.NoError(t, s.Users().Create(ctx, users.User{
			ID: email, Email: email, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	page, total, err := s.Users().List(ctx, shared.PageRequest{Page: 2, PerPage: 2})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, page, 1)
	require.Equal(t, "c@x.io", page[0].Email)
}

func TestAuditTrail(t *testing.T) {
	s := New()
	require.Error(t, s.Record(context.Background(), shared.AuditLog{Action: "x"}))
	require.NoError(t, s.Record(context.Background(), shared.AuditLog{Action: "role.created", Entity: "role", EntityID: "r1"}))
	trail := s.AuditTrail()
	require.Len(t, trail, 1)
	require.False(t, trail[0].At.IsZero())
}
