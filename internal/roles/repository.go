package roles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtechcare/backoffice/internal/platform/db"
	"github.com/mtechcare/backoffice/internal/rbac"
	"github.com/mtechcare/backoffice/internal/users"
)

// Repository reads and writes the role_modules mapping.
type Repository struct {
	pool *pgxpool.Pool
	db   db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

// ModulesForRole returns the default modules of a role. Unmapped roles yield
// an empty set.
func (r *Repository) ModulesForRole(ctx context.Context, role users.Role) (rbac.ModuleSet, error) {
	rows, err := r.db.Query(ctx, `SELECT module_code FROM role_modules WHERE role = $1`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var codes []rbac.ModuleCode
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, rbac.ModuleCode(code))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rbac.NewModuleSet(codes...), nil
}

// ReplaceRoleModules rewrites the mapping of one role.
func (r *Repository) ReplaceRoleModules(ctx context.Context, role users.Role, modules rbac.ModuleSet) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_modules WHERE role = $1`, string(role)); err != nil {
			return fmt.Errorf("roles: clear %s: %w", role, err)
		}
		for _, code := range modules {
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_modules (role, module_code) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				string(role), string(code),
			); err != nil {
				return fmt.Errorf("roles: insert %s/%s: %w", role, code, err)
			}
		}
		return nil
	})
}

var _ rbac.RoleDefaults = (*Repository)(nil)
