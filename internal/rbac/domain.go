package rbac

import (
	"context"

	"github.com/mtechcare/backoffice/internal/users"
)

// PermissionSet is the effective module access for one account. It is
// computed on demand and never stored.
type PermissionSet struct {
	AccountID int64
	Modules   ModuleSet
	ViewOnly  bool
}

// Principal describes the authenticated actor of a request.
type Principal struct {
	AccountID int64
	Email     string
	Role      users.Role
	// Modules is nil when the token carried no module claim.
	Modules  ModuleSet
	ViewOnly bool
}

// IsSuperAdmin reports whether the principal bypasses module checks.
func (p Principal) IsSuperAdmin() bool {
	return p.Role == users.RoleSuperAdmin
}

// RoleDefaults supplies the default module set for a role.
type RoleDefaults interface {
	ModulesForRole(ctx context.Context, role users.Role) (ModuleSet, error)
}

// OverrideStore persists per-account module overrides.
type OverrideStore interface {
	ListOverrides(ctx context.Context, accountID int64) ([]ModuleCode, error)
	ReplaceOverrides(ctx context.Context, accountID int64, modules ModuleSet) error
	ClearOverrides(ctx context.Context, accountID int64) error
}

// AccountReader is the slice of the account store the resolver needs.
type AccountReader interface {
	FindByID(ctx context.Context, id int64) (users.Account, error)
}

// StaticRoleDefaults maps roles to module sets in memory.
type StaticRoleDefaults map[users.Role]ModuleSet

// ModulesForRole implements RoleDefaults.
func (s StaticRoleDefaults) ModulesForRole(_ context.Context, role users.Role) (ModuleSet, error) {
	set, ok := s[role]
	if !ok {
		return ModuleSet{}, nil
	}
	return NewModuleSet(set...), nil
}

// DefaultRoleModules is the shipped role mapping written by the seed tool.
func DefaultRoleModules() StaticRoleDefaults {
	return StaticRoleDefaults{
		users.RoleAdmin: AllModules(),
		users.RoleManager: NewModuleSet(
			ModuleClients, ModuleOrganization, ModuleReports,
			ModuleEnquire, ModuleDashboard, ModuleBilling,
		),
		users.RoleSupport: NewModuleSet(ModuleClients, ModuleEnquire, ModuleDashboard),
		users.RoleViewer:  NewModuleSet(ModuleDashboard, ModuleReports),
	}
}
