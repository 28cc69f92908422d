package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mtechcare/backoffice/internal/auth"
	"github.com/mtechcare/backoffice/internal/rbac"
	"github.com/mtechcare/backoffice/internal/shared"
	"github.com/mtechcare/backoffice/internal/users"
)

const testPassword = "correct-horse"

type memAccounts struct {
	mu       sync.Mutex
	byID     map[int64]users.Account
	touched  map[int64]time.Time
	touchErr error
}

func newMemAccounts(accounts ...users.Account) *memAccounts {
	m := &memAccounts{byID: make(map[int64]users.Account), touched: make(map[int64]time.Time)}
	for _, a := range accounts {
		m.byID[a.ID] = a
	}
	return m
}

func (m *memAccounts) FindByID(_ context.Context, id int64) (users.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return users.Account{}, shared.ErrNotFound
	}
	return a, nil
}

func (m *memAccounts) FindByEmail(_ context.Context, email string) (users.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if users.NormalizeEmail(a.Email) == users.NormalizeEmail(email) {
			return a, nil
		}
	}
	return users.Account{}, shared.ErrNotFound
}

func (m *memAccounts) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.touchErr != nil {
		return m.touchErr
	}
	m.touched[id] = at
	return nil
}

func (m *memAccounts) set(a users.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[a.ID] = a
}

type memOverrides struct {
	mu   sync.Mutex
	rows map[int64][]rbac.ModuleCode
}

func newMemOverrides() *memOverrides {
	return &memOverrides{rows: make(map[int64][]rbac.ModuleCode)}
}

func (m *memOverrides) ListOverrides(_ context.Context, id int64) ([]rbac.ModuleCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]rbac.ModuleCode(nil), m.rows[id]...), nil
}

func (m *memOverrides) ReplaceOverrides(_ context.Context, id int64, modules rbac.ModuleSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id] = append([]rbac.ModuleCode(nil), modules...)
	return nil
}

func (m *memOverrides) ClearOverrides(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

type recordedLogins struct {
	mu     sync.Mutex
	events []auth.LoginEvent
	err    error
}

func (r *recordedLogins) RecordLogin(_ context.Context, event auth.LoginEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

type outcomes map[string]int

func (o outcomes) ObserveLogin(outcome string) { o[outcome]++ }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	accounts  *memAccounts
	overrides *memOverrides
	resolver  *rbac.Resolver
	hasher    *auth.PasswordHasher
	tokens    *auth.TokenService
	clock     *clock
	cfg       auth.TokenConfig
}

func testTokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		AccessTTL:     auth.DefaultAccessTTL,
		RefreshTTL:    auth.DefaultRefreshTTL,
	}
}

func newEnv(t *testing.T, accounts ...users.Account) *env {
	t.Helper()
	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost, 2)
	require.NoError(t, err)
	hash, err := hasher.Hash(context.Background(), testPassword)
	require.NoError(t, err)
	for i := range accounts {
		if accounts[i].PasswordHash == "" {
			accounts[i].PasswordHash = hash
		}
	}
	e := &env{
		accounts:  newMemAccounts(accounts...),
		overrides: newMemOverrides(),
		hasher:    hasher,
		clock:     &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		cfg:       testTokenConfig(),
	}
	e.resolver = rbac.NewResolver(e.accounts, rbac.DefaultRoleModules(), e.overrides)
	e.tokens, err = auth.NewTokenService(e.cfg, e.accounts, e.resolver, auth.WithClock(e.clock.Now))
	require.NoError(t, err)
	return e
}

func (e *env) service(opts ...auth.Option) *auth.Service {
	opts = append([]auth.Option{auth.WithServiceClock(e.clock.Now)}, opts...)
	return auth.NewService(e.accounts, e.hasher, e.resolver, e.tokens, opts...)
}

func activeAccount(id int64, email string, role users.Role) users.Account {
	return users.Account{ID: id, Email: email, Role: role, IsActive: true}
}

var errBoom = errors.New("boom")
