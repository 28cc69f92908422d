package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtechcare/backoffice/internal/auth"
	"github.com/mtechcare/backoffice/internal/rbac"
	"github.com/mtechcare/backoffice/internal/shared"
	"github.com/mtechcare/backoffice/internal/users"
)

func TestTokenConfigValidate(t *testing.T) {
	cfg := testTokenConfig()
	require.NoError(t, cfg.Validate())

	missing := cfg
	missing.RefreshSecret = nil
	assert.Error(t, missing.Validate())

	same := cfg
	same.RefreshSecret = append([]byte(nil), cfg.AccessSecret...)
	assert.Error(t, same.Validate())

	negative := cfg
	negative.AccessTTL = -time.Second
	assert.Error(t, negative.Validate())

	_, err := auth.NewTokenService(same, nil, nil)
	assert.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	e := newEnv(t)
	acc := users.Account{ID: 42, Email: "tech@mtechcare.com", Role: users.RoleSupport}
	perms := rbac.PermissionSet{AccountID: 42, Modules: rbac.NewModuleSet(rbac.ModuleEnquire, rbac.ModuleClients), ViewOnly: true}

	token, err := e.tokens.IssueAccessToken(acc, perms)
	require.NoError(t, err)
	assert.Equal(t, e.clock.Now().Add(auth.DefaultAccessTTL), token.ExpiresAt)

	claims, err := e.tokens.Verify(token.Value, auth.KindAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.AccountID)
	assert.Equal(t, "SUPPORT", claims.Role)
	assert.Equal(t, "tech@mtechcare.com", claims.Email)
	assert.ElementsMatch(t, []string{"CLIENTS", "ENQUIRE"}, claims.Modules)
	assert.True(t, claims.ViewOnly)
	assert.NotEmpty(t, claims.ID)

	principal, err := e.tokens.VerifyAccess(token.Value)
	require.NoError(t, err)
	assert.Equal(t, users.RoleSupport, principal.Role)
	assert.Equal(t, rbac.ModuleSet{rbac.ModuleClients, rbac.ModuleEnquire}, principal.Modules)
}

func TestEmptyModulesStayPresent(t *testing.T) {
	e := newEnv(t)
	token, err := e.tokens.IssueAccessToken(users.Account{ID: 5, Role: users.RoleViewer}, rbac.PermissionSet{Modules: rbac.ModuleSet{}})
	require.NoError(t, err)

	principal, err := e.tokens.VerifyAccess(token.Value)
	require.NoError(t, err)
	assert.NotNil(t, principal.Modules)
	assert.Empty(t, principal.Modules)
}

func TestMissingModulesClaimIsAbsent(t *testing.T) {
	e := newEnv(t)
	now := e.clock.Now()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  7,
		"role": "MANAGER",
		"kind": "access",
		"iat":  now.Unix(),
		"exp":  now.Add(time.Minute).Unix(),
	}).SignedString(e.cfg.AccessSecret)
	require.NoError(t, err)

	principal, err := e.tokens.VerifyAccess(raw)
	require.NoError(t, err)
	assert.Nil(t, principal.Modules)
	assert.Equal(t, int64(7), principal.AccountID)
}

func TestVerifyExpiredToken(t *testing.T) {
	e := newEnv(t)
	token, err := e.tokens.IssueAccessToken(users.Account{ID: 1, Role: users.RoleAdmin}, rbac.PermissionSet{})
	require.NoError(t, err)

	e.clock.Advance(auth.DefaultAccessTTL + auth.ClockSkew/2)
	_, err = e.tokens.Verify(token.Value, auth.KindAccess)
	require.NoError(t, err)

	e.clock.Advance(auth.ClockSkew)
	_, err = e.tokens.Verify(token.Value, auth.KindAccess)
	assert.ErrorIs(t, err, shared.ErrTokenExpired)
}

func TestVerifyToleratesIssuerClockAhead(t *testing.T) {
	e := newEnv(t)
	ahead := func() time.Time { return e.clock.Now().Add(3 * time.Second) }
	issuer, err := auth.NewTokenService(e.cfg, e.accounts, e.resolver, auth.WithClock(ahead))
	require.NoError(t, err)

	token, err := issuer.IssueAccessToken(users.Account{ID: 1, Role: users.RoleAdmin}, rbac.PermissionSet{})
	require.NoError(t, err)
	_, err = e.tokens.Verify(token.Value, auth.KindAccess)
	require.NoError(t, err)

	farAhead := func() time.Time { return e.clock.Now().Add(time.Minute) }
	issuer, err = auth.NewTokenService(e.cfg, e.accounts, e.resolver, auth.WithClock(farAhead))
	require.NoError(t, err)
	token, err = issuer.IssueAccessToken(users.Account{ID: 1, Role: users.RoleAdmin}, rbac.PermissionSet{})
	require.NoError(t, err)
	_, err = e.tokens.Verify(token.Value, auth.KindAccess)
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	e := newEnv(t)
	acc := users.Account{ID: 1, Role: users.RoleAdmin}
	access, err := e.tokens.IssueAccessToken(acc, rbac.PermissionSet{})
	require.NoError(t, err)
	refresh, err := e.tokens.IssueRefreshToken(acc, rbac.PermissionSet{})
	require.NoError(t, err)

	_, err = e.tokens.Verify(access.Value, auth.KindRefresh)
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)
	_, err = e.tokens.VerifyAccess(refresh.Value)
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)
	assert.Equal(t, e.clock.Now().Add(auth.DefaultRefreshTTL), refresh.ExpiresAt)
}

func TestVerifyRejectsTamperedAndForeignTokens(t *testing.T) {
	e := newEnv(t)
	token, err := e.tokens.IssueAccessToken(users.Account{ID: 1, Role: users.RoleAdmin}, rbac.PermissionSet{})
	require.NoError(t, err)

	parts := strings.Split(token.Value, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": 1, "kind": "access", "exp": e.clock.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("someone-else"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": 1, "kind": "access", "exp": e.clock.Now().Add(time.Minute).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"kind": "access", "exp": e.clock.Now().Add(time.Minute).Unix(),
	}).SignedString(e.cfg.AccessSecret)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"empty":      "",
		"garbage":    "not-a-token",
		"tampered":   tampered,
		"foreign":    foreign,
		"unsigned":   unsigned,
		"no subject": noSubject,
	} {
		_, err := e.tokens.Verify(raw, auth.KindAccess)
		assert.ErrorIs(t, err, shared.ErrTokenInvalid, name)
	}
}

func TestRefreshUsesCurrentPermissions(t *testing.T) {
	ctx := context.Background()
	acc := activeAccount(9, "ops@mtechcare.com", users.RoleSupport)
	e := newEnv(t, acc)

	perms, err := e.resolver.Resolve(ctx, acc)
	require.NoError(t, err)
	refresh, err := e.tokens.IssueRefreshToken(acc, perms)
	require.NoError(t, err)

	require.NoError(t, e.overrides.ReplaceOverrides(ctx, 9, rbac.NewModuleSet(rbac.ModuleBilling)))
	e.clock.Advance(time.Hour)

	access, err := e.tokens.Refresh(ctx, refresh.Value)
	require.NoError(t, err)
	claims, err := e.tokens.Verify(access.Value, auth.KindAccess)
	require.NoError(t, err)
	assert.Equal(t, []string{"BILLING"}, claims.Modules)
	assert.Equal(t, e.clock.Now().Add(auth.DefaultAccessTTL), access.ExpiresAt)
}

func TestRefreshRejectsInactiveOrMissingAccounts(t *testing.T) {
	ctx := context.Background()
	acc := activeAccount(9, "ops@mtechcare.com", users.RoleSupport)
	e := newEnv(t, acc)
	refresh, err := e.tokens.IssueRefreshToken(acc, rbac.PermissionSet{})
	require.NoError(t, err)

	acc.IsActive = false
	e.accounts.set(acc)
	_, err = e.tokens.Refresh(ctx, refresh.Value)
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)
	assert.False(t, errors.Is(err, shared.ErrAccountInactive))

	ghost, err := e.tokens.IssueRefreshToken(users.Account{ID: 404, Role: users.RoleAdmin}, rbac.PermissionSet{})
	require.NoError(t, err)
	_, err = e.tokens.Refresh(ctx, ghost.Value)
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)
}
