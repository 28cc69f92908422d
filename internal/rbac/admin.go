package rbac

import (
	"context"
	"fmt"

	"github.com/mtechcare/backoffice/internal/shared"
	"github.com/mtechcare/backoffice/internal/users"
)

var (
	// ErrSuperAdminModules is returned when an override targets a SUPER_ADMIN.
	ErrSuperAdminModules = fmt.Errorf("%w: cannot modify Super Admin permissions", shared.ErrForbidden)
	// ErrOwnModules is returned when an admin edits their own overrides.
	ErrOwnModules = fmt.Errorf("%w: cannot modify your own permissions", shared.ErrForbidden)
)

// AccountLister is the account store slice used by module administration.
type AccountLister interface {
	AccountReader
	List(ctx context.Context) ([]users.Account, error)
}

// ModuleDirectory lists the modules known to the deployment.
type ModuleDirectory interface {
	ListModules(ctx context.Context) ([]Module, error)
}

// UserModules is one row of the module administration listing.
type UserModules struct {
	ID               int64
	Name             *string
	Email            string
	Role             users.Role
	IsActive         bool
	ViewOnly         bool
	Modules          ModuleSet
	HasCustomModules bool
}

// ModuleAdmin manages per-account overrides.
type ModuleAdmin struct {
	accounts  AccountLister
	resolver  *Resolver
	overrides OverrideStore
	directory ModuleDirectory
}

// NewModuleAdmin wires module administration.
func NewModuleAdmin(accounts AccountLister, resolver *Resolver, overrides OverrideStore, directory ModuleDirectory) *ModuleAdmin {
	return &ModuleAdmin{accounts: accounts, resolver: resolver, overrides: overrides, directory: directory}
}

// ListModules returns the module directory.
func (a *ModuleAdmin) ListModules(ctx context.Context) ([]Module, error) {
	return a.directory.ListModules(ctx)
}

// ListUsersWithModules returns every account with its resolved modules.
func (a *ModuleAdmin) ListUsersWithModules(ctx context.Context) ([]UserModules, error) {
	accounts, err := a.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserModules, 0, len(accounts))
	for _, account := range accounts {
		perms, err := a.resolver.Resolve(ctx, account)
		if err != nil {
			return nil, err
		}
		custom := false
		if !account.IsSuperAdmin() {
			if custom, err = a.resolver.HasCustomModules(ctx, account.ID); err != nil {
				return nil, err
			}
		}
		out = append(out, UserModules{
			ID:               account.ID,
			Name:             account.DisplayName(),
			Email:            account.Email,
			Role:             account.Role,
			IsActive:         account.IsActive,
			ViewOnly:         account.ViewOnly,
			Modules:          perms.Modules,
			HasCustomModules: custom,
		})
	}
	return out, nil
}

// UpdateUserModules replaces an account's overrides. Codes are validated
// before anything is read or written. An empty list clears the overrides,
// which returns the account to its role default.
func (a *ModuleAdmin) UpdateUserModules(ctx context.Context, accountID int64, raw []string, requestingID int64) (ModuleSet, error) {
	modules, err := ParseModules(raw)
	if err != nil {
		return nil, err
	}
	account, err := a.target(ctx, accountID, requestingID)
	if err != nil {
		return nil, err
	}
	if err := a.overrides.ReplaceOverrides(ctx, account.ID, modules); err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		return a.resolver.ResolveForRole(ctx, account.Role)
	}
	return modules, nil
}

// ResetUserModules removes an account's overrides and returns its role default.
func (a *ModuleAdmin) ResetUserModules(ctx context.Context, accountID, requestingID int64) (ModuleSet, error) {
	account, err := a.target(ctx, accountID, requestingID)
	if err != nil {
		return nil, err
	}
	if err := a.overrides.ClearOverrides(ctx, account.ID); err != nil {
		return nil, err
	}
	return a.resolver.ResolveForRole(ctx, account.Role)
}

func (a *ModuleAdmin) target(ctx context.Context, accountID, requestingID int64) (users.Account, error) {
	account, err := a.accounts.FindByID(ctx, accountID)
	if err != nil {
		return users.Account{}, err
	}
	if account.IsSuperAdmin() {
		return users.Account{}, ErrSuperAdminModules
	}
	if account.ID == requestingID {
		return users.Account{}, ErrOwnModules
	}
	return account, nil
}
