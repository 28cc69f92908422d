package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtechcare/backoffice/internal/platform/db"
	"github.com/mtechcare/backoffice/internal/shared"
)

// Store is the Account Store consumed by the auth core and admin management.
type Store interface {
	FindByID(ctx context.Context, id int64) (Account, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
	List(ctx context.Context) ([]Account, error)
	Create(ctx context.Context, account Account) (Account, error)
	Update(ctx context.Context, account Account) (Account, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

const accountColumns = `id, email, password, name, role, is_active, view_only, store_id, last_login_at, created_at`

// Repository provides PostgreSQL backed persistence for admin_users.
type Repository struct {
	pool *pgxpool.Pool
	db   db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

// FindByID fetches an account by primary key.
func (r *Repository) FindByID(ctx context.Context, id int64) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM admin_users WHERE id = $1`, id)
	return scanAccount(row)
}

// FindByEmail fetches an account by case-insensitive email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM admin_users WHERE LOWER(email) = LOWER($1)`, NormalizeEmail(email))
	return scanAccount(row)
}

// List returns all accounts, newest first.
func (r *Repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM admin_users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Create inserts a new account. Duplicate emails surface as shared.ErrConflict.
func (r *Repository) Create(ctx context.Context, account Account) (Account, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO admin_users (email, password, name, role, is_active, view_only, store_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING `+accountColumns,
		NormalizeEmail(account.Email),
		account.PasswordHash,
		textOrNull(account.Name),
		string(account.Role),
		account.IsActive,
		account.ViewOnly,
		int8OrNull(account.StoreID),
	)
	created, err := scanAccount(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Account{}, fmt.Errorf("%w: an admin with this email already exists", shared.ErrConflict)
		}
		return Account{}, err
	}
	return created, nil
}

// Update persists every mutable column of account.
func (r *Repository) Update(ctx context.Context, account Account) (Account, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE admin_users
		SET email = $2, password = $3, name = $4, role = $5, is_active = $6, view_only = $7, store_id = $8
		WHERE id = $1
		RETURNING `+accountColumns,
		account.ID,
		NormalizeEmail(account.Email),
		account.PasswordHash,
		textOrNull(account.Name),
		string(account.Role),
		account.IsActive,
		account.ViewOnly,
		int8OrNull(account.StoreID),
	)
	updated, err := scanAccount(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Account{}, fmt.Errorf("%w: an admin with this email already exists", shared.ErrConflict)
		}
		return Account{}, err
	}
	return updated, nil
}

// TouchLastLogin records a successful login time.
func (r *Repository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE admin_users SET last_login_at = $2 WHERE id = $1`, id, at.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes module overrides and then the account in one transaction.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_modules WHERE user_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM admin_users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		account   Account
		name      pgtype.Text
		role      pgtype.Text
		storeID   pgtype.Int8
		lastLogin pgtype.Timestamptz
		createdAt pgtype.Timestamptz
	)
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&name,
		&role,
		&account.IsActive,
		&account.ViewOnly,
		&storeID,
		&lastLogin,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, err
	}
	if name.Valid {
		account.Name = &name.String
	}
	account.Role = DefaultRole
	if role.Valid && role.String != "" {
		account.Role = Role(role.String)
	}
	if storeID.Valid {
		account.StoreID = &storeID.Int64
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		account.LastLoginAt = &t
	}
	account.CreatedAt = createdAt.Time
	return account, nil
}

func textOrNull(s *string) pgtype.Text {
	if s == nil || *s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func int8OrNull(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

var _ Store = (*Repository)(nil)
