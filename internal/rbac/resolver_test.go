package rbac_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

func roleWith(grants rbac.Grants) rbac.Role {
	return rbac.Role{ID: "r", Name: "Role", Permissions: grants}
}

func TestResolveEmptyRequirementAlwaysAllowed(t *testing.T) {
	d, err := rbac.Resolve(nil, nil)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.NoError(t, d.Err())
}

func TestResolveFullSystemAccessShortCircuits(t *testing.T) {
	admin := rbac.Role{ID: "a", Name: "Admin", HasFullSystemAccess: true}
	d, err := rbac.Resolve([]rbac.Role{admin}, []rbac.Permission{rbac.PermUsersManageAll, rbac.PermRolesManageAll})
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Empty(t, d.Missing)
}

func TestResolveDeniesWithoutRoles(t *testing.T) {
	d, err := rbac.Resolve(nil, []rbac.Permission{rbac.PermRolesManageAll})
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, []rbac.Permission{rbac.PermRolesManageAll}, d.Missing)

	var appErr *shared.Error
	require.ErrorAs(t, d.Err(), &appErr)
	require.Equal(t, shared.KindNotAuthorized, appErr.Kind)
	require.Equal(t, "You are missing following permissions: roles.manage_all", appErr.Message)
}

func TestResolveUnionAcrossRoles(t *testing.T) {
	users := roleWith(rbac.Grants{rbac.CategoryUsers: {ManageAll: true}})
	roles := roleWith(rbac.Grants{rbac.CategoryRoles: {ManageAll: true}})
	required := []rbac.Permission{rbac.PermUsersManageAll, rbac.PermRolesManageAll}

	d, err := rbac.Resolve([]rbac.Role{users, roles}, required)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = rbac.Resolve([]rbac.Role{users}, required)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, []rbac.Permission{rbac.PermRolesManageAll}, d.Missing)
}

func TestResolveListsMissingInRequestOrder(t *testing.T) {
	d, err := rbac.Resolve(nil, []rbac.Permission{rbac.PermUsersManageAll, rbac.PermRolesManageAll})
	require.NoError(t, err)
	var appErr *shared.Error
	require.ErrorAs(t, d.Err(), &appErr)
	require.Equal(t, "You are missing following permissions: users.manage_all, roles.manage_all", appErr.Message)
}

func TestResolveFalseGrantDoesNotMatch(t *testing.T) {
	r := roleWith(rbac.Grants{rbac.CategoryUsers: {ManageAll: false}})
	d, err := rbac.Resolve([]rbac.Role{r}, []rbac.Permission{rbac.PermUsersManageAll})
	require.NoError(t, err)
	require.False(t, d.Allowed)
}

func TestResolveUnmappedPermissionIsCritical(t *testing.T) {
	_, err := rbac.Resolve(nil, []rbac.Permission{"invoices.approve"})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindCritical))
}

func TestMustKnowPanicsOnUnmappedPermission(t *testing.T) {
	require.NotPanics(t, func() { rbac.MustKnow(rbac.PermUsersManageAll, rbac.PermRolesManageAll) })
	require.Panics(t, func() { rbac.MustKnow("invoices.approve") })
}

func TestCatalogIsSortedAndComplete(t *testing.T) {
	catalog := rbac.Catalog()
	require.Len(t, catalog, 2)
	require.Equal(t, rbac.PermRolesManageAll, catalog[0].Name)
	require.Equal(t, rbac.CategoryRoles, catalog[0].Category)
	require.Equal(t, rbac.PermUsersManageAll, catalog[1].Name)
	require.Contains(t, rbac.Categories(), rbac.CategoryUsers)
}

func TestEffective(t *testing.T) {
	r := roleWith(rbac.Grants{rbac.CategoryUsers: {ManageAll: true}})
	require.Equal(t, []rbac.Permission{rbac.PermUsersManageAll}, rbac.Effective([]rbac.Role{r}))
	require.Len(t, rbac.Effective([]rbac.Role{{HasFullSystemAccess: true}}), 2)
	require.Empty(t, rbac.Effective(nil))
}
