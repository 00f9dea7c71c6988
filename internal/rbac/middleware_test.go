package rbac_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
	_ "github.com/odyssey-erp/odyssey-iam/testing"
)

type stubRoles map[string]rbac.Role

func (s stubRoles) RolesByIDs(ctx context.Context, ids []string) ([]rbac.Role, error) {
	var out []rbac.Role
	for _, id := range ids {
		if r, ok := s[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

type stubBearers map[string]rbac.RoleBearer

func (s stubBearers) RoleBearer(ctx context.Context, actorID string) (rbac.RoleBearer, error) {
	b, ok := s[actorID]
	if !ok {
		return rbac.RoleBearer{}, shared.ErrNotFound
	}
	return b, nil
}

type failingBearers struct{}

func (failingBearers) RoleBearer(ctx context.Context, actorID string) (rbac.RoleBearer, error) {
	return rbac.RoleBearer{}, errors.New("connection reset")
}

type countingObserver map[string]int

func (c countingObserver) ObserveAuthorization(scope, outcome string) {
	c[scope+"/"+outcome]++
}

type actorKey struct{}

func withActor(r *http.Request, id string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), actorKey{}, id))
}

func lookupActor(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(actorKey{}).(string)
	return id, ok
}

type fixture struct {
	mw       rbac.Middleware
	observed countingObserver
	critical []error
}

func newFixture(profiles, actors rbac.BearerSource) *fixture {
	roles := stubRoles{
		"admin":  {ID: "admin", Name: "Admin", HasFullSystemAccess: true},
		"roles":  {ID: "roles", Name: "Role Manager", Permissions: rbac.Grants{rbac.CategoryRoles: {ManageAll: true}}},
		"viewer": {ID: "viewer", Name: "Viewer"},
	}
	f := &fixture{observed: countingObserver{}}
	f.mw = rbac.Middleware{
		Actor:     lookupActor,
		Service:   rbac.NewService(roles, profiles, actors),
		Responder: httpx.NewResponder(nil, func(err error) { f.critical = append(f.critical, err) }),
		Observer:  f.observed,
	}
	return f
}

func serve(h http.Handler, r *http.Request) (*httptest.ResponseRecorder, httpx.ErrorResponse) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	var body httpx.ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func okHandler(t *testing.T, want rbac.Scope) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := rbac.SubjectFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, want, subject.Scope)
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireProfileWithoutActor(t *testing.T) {
	f := newFixture(stubBearers{}, stubBearers{})
	h := f.mw.RequireProfile()(okHandler(t, rbac.ScopeProfile))

	rec, body := serve(h, httptest.NewRequest(http.MethodGet, "/api/role", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "You have to be signed in to perform this action", body.Errors[0].Message)
	require.Equal(t, 1, f.observed["profile/denied"])
}

func TestRequireProfileWithoutEmployee(t *testing.T) {
	f := newFixture(stubBearers{}, stubBearers{"u1": {ID: "u1", ActorID: "u1"}})
	h := f.mw.RequireProfile()(okHandler(t, rbac.ScopeProfile))

	rec, body := serve(h, withActor(httptest.NewRequest(http.MethodGet, "/api/role", nil), "u1"))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "You have to be an employee to perform this action", body.Errors[0].Message)
	require.Equal(t, 1, f.observed["profile/no_profile"])
}

func TestRequireProfileDeniesMissingPermissions(t *testing.T) {
	profiles := stubBearers{"u1": {ID: "e1", ActorID: "u1", RoleIDs: []string{"viewer"}}}
	f := newFixture(profiles, stubBearers{})
	h := f.mw.RequireProfile(rbac.PermRolesManageAll)(okHandler(t, rbac.ScopeProfile))

	rec, body := serve(h, withActor(httptest.NewRequest(http.MethodPost, "/api/role", nil), "u1"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "You are missing following permissions: roles.manage_all", body.Errors[0].Message)
}

func TestRequireProfileAllowsGrantedRole(t *testing.T) {
	profiles := stubBearers{"u1": {ID: "e1", ActorID: "u1", RoleIDs: []string{"viewer", "roles"}}}
	f := newFixture(profiles, stubBearers{})
	var subject rbac.Subject
	h := f.mw.RequireProfile(rbac.PermRolesManageAll)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ = rbac.SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec, _ := serve(h, withActor(httptest.NewRequest(http.MethodPost, "/api/role", nil), "u1"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "e1", subject.ProfileID)
	require.Equal(t, "u1", subject.ActorID)
	require.Len(t, subject.Roles, 2)
	require.Equal(t, 1, f.observed["profile/allowed"])
}

func TestRequireProfileFullAccessSkipsChecks(t *testing.T) {
	profiles := stubBearers{"u1": {ID: "e1", ActorID: "u1", RoleIDs: []string{"admin"}}}
	f := newFixture(profiles, stubBearers{})
	h := f.mw.RequireProfile(rbac.PermUsersManageAll, rbac.PermRolesManageAll)(okHandler(t, rbac.ScopeProfile))

	rec, _ := serve(h, withActor(httptest.NewRequest(http.MethodDelete, "/api/role/x", nil), "u1"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireProfileSkipsDanglingRoles(t *testing.T) {
	profiles := stubBearers{"u1": {ID: "e1", ActorID: "u1", RoleIDs: []string{"deleted", "roles"}}}
	f := newFixture(profiles, stubBearers{})
	h := f.mw.RequireProfile(rbac.PermRolesManageAll)(okHandler(t, rbac.ScopeProfile))

	rec, _ := serve(h, withActor(httptest.NewRequest(http.MethodPost, "/api/role", nil), "u1"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireActorUsesActorRoleSet(t *testing.T) {
	profiles := stubBearers{"u1": {ID: "e1", ActorID: "u1", RoleIDs: []string{"admin"}}}
	actors := stubBearers{"u1": {ID: "u1", ActorID: "u1"}}
	f := newFixture(profiles, actors)
	h := f.mw.RequireActor(rbac.PermUsersManageAll)(okHandler(t, rbac.ScopeActor))

	rec, body := serve(h, withActor(httptest.NewRequest(http.MethodGet, "/api/user", nil), "u1"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "You are missing following permissions: users.manage_all", body.Errors[0].Message)
	require.Equal(t, 1, f.observed["actor/denied"])
}

func TestRequireActorEmptyRequirement(t *testing.T) {
	f := newFixture(stubBearers{}, stubBearers{"u1": {ID: "u1", ActorID: "u1"}})
	h := f.mw.RequireActor()(okHandler(t, rbac.ScopeActor))

	rec, _ := serve(h, withActor(httptest.NewRequest(http.MethodGet, "/api/permission", nil), "u1"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireActorStoreFailureIsSystemError(t *testing.T) {
	f := newFixture(stubBearers{}, failingBearers{})
	h := f.mw.RequireActor()(okHandler(t, rbac.ScopeActor))

	rec, _ := serve(h, withActor(httptest.NewRequest(http.MethodGet, "/api/permission", nil), "u1"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Empty(t, f.critical)
	require.Equal(t, 1, f.observed["actor/error"])
}

func TestRequirePanicsOnUnmappedPermission(t *testing.T) {
	f := newFixture(stubBearers{}, stubBearers{})
	require.Panics(t, func() { f.mw.RequireProfile("invoices.approve") })
}

func TestPermissionsHandlerListsCatalog(t *testing.T) {
	f := newFixture(stubBearers{}, stubBearers{"u1": {ID: "u1", ActorID: "u1", RoleIDs: []string{"roles"}}})
	router := chi.NewRouter()
	router.Route("/api/permission", rbac.NewPermissionsHandler(f.mw).MountRoutes)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withActor(httptest.NewRequest(http.MethodGet, "/api/permission/", nil), "u1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Permissions []rbac.PermissionInfo `json:"permissions"`
		Categories  []rbac.Category       `json:"categories"`
		Granted     []rbac.Permission     `json:"granted"`
		FullAccess  bool                  `json:"hasFullSystemAccess"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Permissions, 2)
	require.Equal(t, []rbac.Category{rbac.CategoryRoles, rbac.CategoryUsers}, body.Categories)
	require.Equal(t, []rbac.Permission{rbac.PermRolesManageAll}, body.Granted)
	require.False(t, body.FullAccess)
}

func TestPermissionsHandlerReportsFullAccess(t *testing.T) {
	f := newFixture(stubBearers{}, stubBearers{"u1": {ID: "u1", ActorID: "u1", RoleIDs: []string{"admin"}}})
	router := chi.NewRouter()
	router.Route("/api/permission", rbac.NewPermissionsHandler(f.mw).MountRoutes)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withActor(httptest.NewRequest(http.MethodGet, "/api/permission/", nil), "u1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Granted    []rbac.Permission `json:"granted"`
		FullAccess bool              `json:"hasFullSystemAccess"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.FullAccess)
	require.ElementsMatch(t, []rbac.Permission{rbac.PermRolesManageAll, rbac.PermUsersManageAll}, body.Granted)
}
