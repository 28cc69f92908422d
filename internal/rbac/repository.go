package rbac

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtechcare/backoffice/internal/platform/cache"
	"github.com/mtechcare/backoffice/internal/platform/db"
)

// ModuleCacheNamespace prefixes cached module directory keys.
const ModuleCacheNamespace = "mtechcare:modules"

// Repository persists user_modules overrides and reads the modules table.
type Repository struct {
	pool  *pgxpool.Pool
	db    db.DBTX
	cache *cache.Cache
}

// NewRepository constructs a repository. The cache may be nil.
func NewRepository(pool *pgxpool.Pool, c *cache.Cache) *Repository {
	return &Repository{pool: pool, db: pool, cache: c}
}

// ListOverrides returns the override codes stored for an account.
func (r *Repository) ListOverrides(ctx context.Context, accountID int64) ([]ModuleCode, error) {
	rows, err := r.db.Query(ctx, `SELECT module_code FROM user_modules WHERE user_id = $1 ORDER BY module_code`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var codes []ModuleCode
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, ModuleCode(code))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

// ReplaceOverrides swaps the override rows for an account in one transaction.
func (r *Repository) ReplaceOverrides(ctx context.Context, accountID int64, modules ModuleSet) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_modules WHERE user_id = $1`, accountID); err != nil {
			return fmt.Errorf("rbac: clear overrides: %w", err)
		}
		for _, code := range modules {
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_modules (user_id, module_code) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				accountID, string(code),
			); err != nil {
				return fmt.Errorf("rbac: insert override %s: %w", code, err)
			}
		}
		return nil
	})
}

// ClearOverrides removes every override row for an account.
func (r *Repository) ClearOverrides(ctx context.Context, accountID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM user_modules WHERE user_id = $1`, accountID)
	return err
}

// ListModules returns the module directory. Results are cached; an unseeded
// table falls back to the built-in catalog.
func (r *Repository) ListModules(ctx context.Context) ([]Module, error) {
	key, err := r.cache.BuildKey(ctx, "modules")
	if err != nil {
		return nil, err
	}
	var modules []Module
	err = r.cache.FetchJSON(ctx, key, &modules, func(ctx context.Context) (any, error) {
		return r.queryModules(ctx)
	})
	if err != nil {
		return nil, err
	}
	return modules, nil
}

// InvalidateModules drops cached module listings. Call it after writing the
// modules table.
func (r *Repository) InvalidateModules(ctx context.Context) error {
	return r.cache.Bump(ctx)
}

func (r *Repository) queryModules(ctx context.Context) ([]Module, error) {
	rows, err := r.db.Query(ctx, `SELECT code, name FROM modules ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var modules []Module
	for rows.Next() {
		var (
			code string
			name pgtype.Text
		)
		if err := rows.Scan(&code, &name); err != nil {
			return nil, err
		}
		m := Module{Code: ModuleCode(code)}
		if name.Valid {
			m.Name = &name.String
		}
		modules = append(modules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		return CatalogModules(), nil
	}
	return modules, nil
}

var _ OverrideStore = (*Repository)(nil)
