package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mtechcare/backoffice/internal/shared"
)

var (
	// ErrSuperAdminProtected is returned when a change would delete, deactivate or demote a SUPER_ADMIN.
	ErrSuperAdminProtected = fmt.Errorf("%w: super admin accounts cannot be deleted, deactivated or demoted", shared.ErrForbidden)
	// ErrSelfModification is returned when an account tries to delete or block itself.
	ErrSelfModification = fmt.Errorf("%w: cannot perform this action on your own account", shared.ErrForbidden)
)

// PasswordHasher hashes new passwords.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
}

// OverrideCleaner removes module overrides of an account.
type OverrideCleaner interface {
	ClearOverrides(ctx context.Context, accountID int64) error
}

// Service handles admin account lifecycle.
type Service struct {
	store     Store
	hasher    PasswordHasher
	overrides OverrideCleaner
}

// ServiceOption customises Service.
type ServiceOption func(*Service)

// WithOverrideCleaner clears module overrides before an account is deleted.
func WithOverrideCleaner(c OverrideCleaner) ServiceOption {
	return func(s *Service) { s.overrides = c }
}

// NewService builds Service instance.
func NewService(store Store, hasher PasswordHasher, opts ...ServiceOption) *Service {
	s := &Service{store: store, hasher: hasher}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.store.FindByID(ctx, id)
}

// ListUsers returns all accounts.
func (s *Service) ListUsers(ctx context.Context) ([]Account, error) {
	return s.store.List(ctx)
}

// Create registers a new account after checking the email is free.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	email := NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return Account{}, fmt.Errorf("%w: email and password are required", shared.ErrValidation)
	}
	if in.Role == "" {
		in.Role = DefaultRole
	}
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return Account{}, fmt.Errorf("%w: an admin with this email already exists", shared.ErrConflict)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Account{}, err
	}
	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}
	return s.store.Create(ctx, Account{
		Email:        email,
		PasswordHash: hash,
		Name:         trimmedOrNil(in.Name),
		Role:         in.Role,
		IsActive:     true,
		ViewOnly:     in.ViewOnly,
		StoreID:      in.StoreID,
	})
}

// Update applies the non-nil fields of in.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Account, error) {
	account, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if account.IsSuperAdmin() {
		if in.IsActive != nil && !*in.IsActive {
			return Account{}, ErrSuperAdminProtected
		}
		if in.Role != nil && *in.Role != RoleSuperAdmin {
			return Account{}, ErrSuperAdminProtected
		}
	}
	if in.Email != nil {
		email := NormalizeEmail(*in.Email)
		if email == "" {
			return Account{}, fmt.Errorf("%w: email must not be empty", shared.ErrValidation)
		}
		existing, err := s.store.FindByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != id:
			return Account{}, fmt.Errorf("%w: an admin with this email already exists", shared.ErrConflict)
		case err != nil && !errors.Is(err, shared.ErrNotFound):
			return Account{}, err
		}
		account.Email = email
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(ctx, *in.Password)
		if err != nil {
			return Account{}, fmt.Errorf("hash password: %w", err)
		}
		account.PasswordHash = hash
	}
	if in.Role != nil {
		account.Role = *in.Role
	}
	if in.Name != nil {
		account.Name = trimmedOrNil(in.Name)
	}
	if in.IsActive != nil {
		account.IsActive = *in.IsActive
	}
	if in.ViewOnly != nil {
		account.ViewOnly = *in.ViewOnly
	}
	return s.store.Update(ctx, account)
}

// SetBlocked blocks or re-allows login for an account.
func (s *Service) SetBlocked(ctx context.Context, id int64, blocked bool, requestingID int64) (Account, error) {
	account, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if blocked && account.IsSuperAdmin() {
		return Account{}, ErrSuperAdminProtected
	}
	if blocked && id == requestingID {
		return Account{}, ErrSelfModification
	}
	account.IsActive = !blocked
	return s.store.Update(ctx, account)
}

// Delete removes an account. SUPER_ADMIN and the caller's own account are refused.
func (s *Service) Delete(ctx context.Context, id, requestingID int64) error {
	account, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if account.IsSuperAdmin() {
		return ErrSuperAdminProtected
	}
	if id == requestingID {
		return ErrSelfModification
	}
	if s.overrides != nil {
		if err := s.overrides.ClearOverrides(ctx, id); err != nil {
			return fmt.Errorf("clear overrides: %w", err)
		}
	}
	return s.store.Delete(ctx, id)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
