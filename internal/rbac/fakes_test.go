package rbac

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/mtechcare/backoffice/internal/shared"
	"github.com/mtechcare/backoffice/internal/users"
)

type memStore struct {
	mu        sync.Mutex
	accounts  map[int64]users.Account
	overrides map[int64][]ModuleCode

	replaceCalls int
	clearCalls   int
	findCalls    int
	listErr      error
}

func newMemStore(accounts ...users.Account) *memStore {
	s := &memStore{
		accounts:  make(map[int64]users.Account),
		overrides: make(map[int64][]ModuleCode),
	}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *memStore) FindByID(_ context.Context, id int64) (users.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	a, ok := s.accounts[id]
	if !ok {
		return users.Account{}, shared.ErrNotFound
	}
	return a, nil
}

func (s *memStore) List(context.Context) ([]users.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]users.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ListOverrides(_ context.Context, accountID int64) ([]ModuleCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]ModuleCode(nil), s.overrides[accountID]...), nil
}

func (s *memStore) ReplaceOverrides(_ context.Context, accountID int64, modules ModuleSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceCalls++
	if len(modules) == 0 {
		delete(s.overrides, accountID)
		return nil
	}
	s.overrides[accountID] = append([]ModuleCode(nil), modules...)
	return nil
}

func (s *memStore) ClearOverrides(_ context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearCalls++
	delete(s.overrides, accountID)
	return nil
}

func (s *memStore) ListModules(context.Context) ([]Module, error) {
	return CatalogModules(), nil
}

type failingRoles struct{}

func (failingRoles) ModulesForRole(context.Context, users.Role) (ModuleSet, error) {
	return nil, errors.New("role store down")
}

func account(id int64, role users.Role) users.Account {
	return users.Account{ID: id, Email: "user@example.com", Role: role, IsActive: true}
}
