package roles

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtechcare/backoffice/internal/rbac"
	"github.com/mtechcare/backoffice/internal/shared"
	"github.com/mtechcare/backoffice/internal/users"
)

type failingResolver struct{}

func (failingResolver) ResolveForRole(context.Context, users.Role) (rbac.ModuleSet, error) {
	return nil, errors.New("role store down")
}

type noAccounts struct{}

func (noAccounts) FindByID(context.Context, int64) (users.Account, error) {
	return users.Account{}, shared.ErrNotFound
}

type noOverrides struct{}

func (noOverrides) ListOverrides(context.Context, int64) ([]rbac.ModuleCode, error) { return nil, nil }
func (noOverrides) ReplaceOverrides(context.Context, int64, rbac.ModuleSet) error   { return nil }
func (noOverrides) ClearOverrides(context.Context, int64) error                     { return nil }

func newResolver() *rbac.Resolver {
	return rbac.NewResolver(noAccounts{}, rbac.DefaultRoleModules(), noOverrides{})
}

func TestListRoles(t *testing.T) {
	list, err := NewService(newResolver()).ListRoles(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 5)

	assert.Equal(t, users.RoleSuperAdmin, list[0].Name)
	assert.Equal(t, rbac.AllModules(), list[0].Modules)
	assert.Equal(t, users.RoleViewer, list[4].Name)
	assert.Equal(t, rbac.ModuleSet{rbac.ModuleReports, rbac.ModuleDashboard}, list[4].Modules)
}

func TestListRolesPropagatesErrors(t *testing.T) {
	_, err := NewService(failingResolver{}).ListRoles(context.Background())
	assert.EqualError(t, err, "role store down")
}

type verifier map[string]rbac.Principal

func (v verifier) VerifyAccess(raw string) (rbac.Principal, error) {
	p, ok := v[raw]
	if !ok {
		return rbac.Principal{}, shared.ErrTokenInvalid
	}
	return p, nil
}

func TestRolesHandler(t *testing.T) {
	resolver := newResolver()
	guard := rbac.NewAccessGuard(verifier{
		"admin":  {AccountID: 2, Role: users.RoleAdmin},
		"viewer": {AccountID: 3, Role: users.RoleViewer},
	}, resolver, rbac.MustRouteTable(rbac.DefaultRouteRules()...), nil, nil)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(guard.Authenticate)
		NewHandler(nil, NewService(resolver), guard).MountRoutes(r)
	})

	req := httptest.NewRequest(http.MethodGet, "/roles", nil)
	req.Header.Set("Authorization", "Bearer admin")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"role":"MANAGER"`)

	req = httptest.NewRequest(http.MethodGet, "/roles", nil)
	req.Header.Set("Authorization", "Bearer viewer")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
