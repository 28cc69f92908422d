package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtechcare/backoffice/internal/users"
)

type permissionsFixture struct {
	router http.Handler
	store  *memStore
}

func newPermissionsFixture(t *testing.T) permissionsFixture {
	t.Helper()
	store := newMemStore(account(1, users.RoleSuperAdmin), account(2, users.RoleAdmin), account(3, users.RoleSupport))
	verifier := stubVerifier{principals: map[string]Principal{
		"root":    {AccountID: 1, Role: users.RoleSuperAdmin},
		"admin":   {AccountID: 2, Role: users.RoleAdmin, Modules: AllModules()},
		"support": {AccountID: 3, Role: users.RoleSupport, Modules: ModuleSet{ModuleClients}},
	}}
	resolver := newTestResolver(store)
	guard := NewAccessGuard(verifier, resolver, MustRouteTable(DefaultRouteRules()...), nil, nil)
	handler := NewPermissionsHandler(nil, NewModuleAdmin(store, resolver, store, store), guard)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(guard.Authenticate)
		handler.MountRoutes(r)
	})
	return permissionsFixture{router: r, store: store}
}

func (f permissionsFixture) do(t *testing.T, token, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestPermissionsListModules(t *testing.T) {
	f := newPermissionsFixture(t)
	rr := f.do(t, "admin", http.MethodGet, "/modules", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var modules []Module
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &modules))
	assert.Len(t, modules, 8)
}

func TestPermissionsRequireAuthModule(t *testing.T) {
	f := newPermissionsFixture(t)
	rr := f.do(t, "support", http.MethodGet, "/users/modules", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "AUTH")
}

func TestPermissionsListUsersWithModules(t *testing.T) {
	f := newPermissionsFixture(t)
	rr := f.do(t, "root", http.MethodGet, "/users/modules", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Users      []userModulesResponse `json:"users"`
		AllModules []Module              `json:"allModules"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Users, 3)
	assert.Len(t, body.AllModules, 8)
}

func TestPermissionsUpdateUserModules(t *testing.T) {
	f := newPermissionsFixture(t)
	rr := f.do(t, "admin", http.MethodPost, "/users/modules", `{"userId":3,"modules":["BILLING","REPORTS"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		Success bool     `json:"success"`
		Modules []string `json:"modules"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, []string{"REPORTS", "BILLING"}, body.Modules)
	assert.Equal(t, []ModuleCode{ModuleReports, ModuleBilling}, f.store.overrides[3])
}

func TestPermissionsUpdateRejectsInvalidInput(t *testing.T) {
	f := newPermissionsFixture(t)

	rr := f.do(t, "admin", http.MethodPost, "/users/modules", `{"userId":3,"modules":["NOPE"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "NOPE")

	rr = f.do(t, "admin", http.MethodPost, "/users/modules", `{"modules":["REPORTS"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, "admin", http.MethodPost, "/users/modules", `{"userId":3`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Zero(t, f.store.replaceCalls)
}

func TestPermissionsUpdateProtectedTargets(t *testing.T) {
	f := newPermissionsFixture(t)

	rr := f.do(t, "admin", http.MethodPost, "/users/modules", `{"userId":1,"modules":["REPORTS"]}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(t, "admin", http.MethodPost, "/users/modules", `{"userId":2,"modules":["REPORTS"]}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestPermissionsResetUserModules(t *testing.T) {
	f := newPermissionsFixture(t)
	f.store.overrides[3] = []ModuleCode{ModuleTools}

	rr := f.do(t, "admin", http.MethodPost, "/users/3/reset-modules", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "User reset to role-based modules")
	assert.NotContains(t, f.store.overrides, int64(3))

	rr = f.do(t, "admin", http.MethodPost, "/users/abc/reset-modules", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
