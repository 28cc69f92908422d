package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/mtechcare/backoffice/internal/shared"
	"github.com/mtechcare/backoffice/internal/users"
)

// ErrAccountNotFound indicates the account being resolved does not exist.
var ErrAccountNotFound = fmt.Errorf("%w: admin not found", shared.ErrUnauthenticated)

// Resolver computes effective permissions from the role default and the
// account's overrides. It holds no per-request state.
type Resolver struct {
	accounts  AccountReader
	roles     RoleDefaults
	overrides OverrideStore
}

// NewResolver constructs a Resolver.
func NewResolver(accounts AccountReader, roles RoleDefaults, overrides OverrideStore) *Resolver {
	return &Resolver{accounts: accounts, roles: roles, overrides: overrides}
}

// ResolveForRole returns the full catalog for SUPER_ADMIN and the role
// default otherwise. Unmapped roles resolve to the empty set.
func (r *Resolver) ResolveForRole(ctx context.Context, role users.Role) (ModuleSet, error) {
	if role == users.RoleSuperAdmin {
		return AllModules(), nil
	}
	set, err := r.roles.ModulesForRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("rbac: role modules for %s: %w", role, err)
	}
	if set == nil {
		return ModuleSet{}, nil
	}
	return set, nil
}

// ResolveForAccount loads the account and resolves its permissions.
func (r *Resolver) ResolveForAccount(ctx context.Context, accountID int64) (PermissionSet, error) {
	account, err := r.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return PermissionSet{}, ErrAccountNotFound
		}
		return PermissionSet{}, err
	}
	return r.Resolve(ctx, account)
}

// Resolve applies the resolution rule to an account already in hand.
// Any override row replaces the role default entirely; an account with no
// rows inherits the role default.
func (r *Resolver) Resolve(ctx context.Context, account users.Account) (PermissionSet, error) {
	set := PermissionSet{AccountID: account.ID, ViewOnly: account.ViewOnly}
	if account.IsSuperAdmin() {
		set.Modules = AllModules()
		return set, nil
	}
	overrides, err := r.overrides.ListOverrides(ctx, account.ID)
	if err != nil {
		return PermissionSet{}, fmt.Errorf("rbac: overrides for %d: %w", account.ID, err)
	}
	if len(overrides) > 0 {
		set.Modules = NewModuleSet(overrides...)
		return set, nil
	}
	modules, err := r.ResolveForRole(ctx, account.Role)
	if err != nil {
		return PermissionSet{}, err
	}
	set.Modules = modules
	return set, nil
}

// HasCustomModules reports whether the account has any override rows.
func (r *Resolver) HasCustomModules(ctx context.Context, accountID int64) (bool, error) {
	overrides, err := r.overrides.ListOverrides(ctx, accountID)
	if err != nil {
		return false, err
	}
	return len(overrides) > 0, nil
}
