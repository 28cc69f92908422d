package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/mtechcare/backoffice/internal/shared"
)

// DefaultBcryptCost is the work factor for stored admin passwords.
const DefaultBcryptCost = 10

// PasswordHasher runs bcrypt on a bounded number of goroutines so a burst of
// logins cannot occupy every CPU.
type PasswordHasher struct {
	cost  int
	sem   *semaphore.Weighted
	dummy []byte
}

// NewPasswordHasher builds a hasher. workers caps concurrent bcrypt calls.
func NewPasswordHasher(cost, workers int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	if workers <= 0 {
		workers = 1
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("mtechcare-timing-equalizer"), cost)
	if err != nil {
		return nil, fmt.Errorf("auth: dummy hash: %w", err)
	}
	return &PasswordHasher{cost: cost, sem: semaphore.NewWeighted(int64(workers)), dummy: dummy}, nil
}

// Hash returns the bcrypt hash of password.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password must be at most 72 bytes", shared.ErrValidation)
		}
		return "", err
	}
	return string(hash), nil
}

// Compare checks password against hash. A mismatch or a malformed hash yields
// shared.ErrInvalidCredentials.
func (h *PasswordHasher) Compare(ctx context.Context, hash, password string) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)
	if err := bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(hash)), []byte(password)); err != nil {
		return shared.ErrInvalidCredentials
	}
	return nil
}

// CompareDummy spends the same work as Compare against a throwaway hash.
// It always returns shared.ErrInvalidCredentials unless ctx is done.
func (h *PasswordHasher) CompareDummy(ctx context.Context, password string) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
	return shared.ErrInvalidCredentials
}
