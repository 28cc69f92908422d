package users

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role names an administrative role. The set is small and fixed but new roles
// only need a role_modules mapping to become usable.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
	RoleSupport    Role = "SUPPORT"
	RoleViewer     Role = "VIEWER"
)

// DefaultRole is applied when a stored account carries no role.
const DefaultRole = RoleAdmin

// Roles lists the known roles in display order.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleAdmin, RoleManager, RoleSupport, RoleViewer}
}

// Known reports whether r is one of the built-in roles.
func (r Role) Known() bool {
	for _, known := range Roles() {
		if r == known {
			return true
		}
	}
	return false
}

// Account is an administrative login identity.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         *string
	Role         Role
	IsActive     bool
	ViewOnly     bool
	StoreID      *int64
	LastLoginAt  *time.Time
	CreatedAt    time.Time
}

// IsSuperAdmin reports whether the account holds the unrestricted role.
func (a Account) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

// DisplayName returns the name or nil when unset.
func (a Account) DisplayName() *string {
	if a.Name == nil || strings.TrimSpace(*a.Name) == "" {
		return nil
	}
	return a.Name
}

// CreateInput carries the fields for a new account.
type CreateInput struct {
	Email    string
	Password string
	Role     Role
	Name     *string
	ViewOnly bool
	StoreID  *int64
}

// UpdateInput carries optional changes; nil fields are left untouched.
type UpdateInput struct {
	Email    *string
	Password *string
	Role     *Role
	Name     *string
	IsActive *bool
	ViewOnly *bool
}

// NormalizeEmail trims and lowercases an email for storage and lookup. It
// follows the database's LOWER() so stored rows keep matching.
// A Caser keeps state, so one is built per call.
func NormalizeEmail(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}
