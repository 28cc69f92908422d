package roles

import (
	"github.com/mtechcare/backoffice/internal/rbac"
	"github.com/mtechcare/backoffice/internal/users"
)

// Role pairs a role with its default modules.
type Role struct {
	Name    users.Role
	Modules rbac.ModuleSet
}
