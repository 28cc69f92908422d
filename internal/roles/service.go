package roles

import (
	"context"

	"github.com/mtechcare/backoffice/internal/rbac"
	"github.com/mtechcare/backoffice/internal/users"
)

// RoleResolver resolves a role to its modules.
type RoleResolver interface {
	ResolveForRole(ctx context.Context, role users.Role) (rbac.ModuleSet, error)
}

// Service handles role listing.
type Service struct {
	resolver RoleResolver
}

// NewService builds Service instance.
func NewService(resolver RoleResolver) *Service {
	return &Service{resolver: resolver}
}

// ListRoles returns every known role with its default modules.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	known := users.Roles()
	out := make([]Role, 0, len(known))
	for _, role := range known {
		modules, err := s.resolver.ResolveForRole(ctx, role)
		if err != nil {
			return nil, err
		}
		out = append(out, Role{Name: role, Modules: modules})
	}
	return out, nil
}
