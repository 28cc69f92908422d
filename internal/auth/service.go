package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtechcare/backoffice/internal/rbac"
	"github.com/mtechcare/backoffice/internal/shared"
	"github.com/mtechcare/backoffice/internal/users"
)

// AccountStore is the account store slice used by authentication.
type AccountStore interface {
	FindByID(ctx context.Context, id int64) (users.Account, error)
	FindByEmail(ctx context.Context, email string) (users.Account, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

// LoginRecorder hands successful logins to the audit trail.
type LoginRecorder interface {
	RecordLogin(ctx context.Context, event LoginEvent) error
}

// OutcomeObserver counts authentication outcomes.
type OutcomeObserver interface {
	ObserveLogin(outcome string)
}

// Service wraps authentication business rules.
type Service struct {
	accounts AccountStore
	hasher   *PasswordHasher
	resolver PermissionResolver
	tokens   *TokenService
	recorder LoginRecorder
	observer OutcomeObserver
	logger   *slog.Logger
	now      func() time.Time
}

// Option customises Service.
type Option func(*Service)

// WithLoginRecorder attaches the audit trail.
func WithLoginRecorder(r LoginRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithOutcomeObserver attaches outcome metrics.
func WithOutcomeObserver(o OutcomeObserver) Option {
	return func(s *Service) { s.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithServiceClock overrides the time source used for lastLoginAt.
func WithServiceClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a new Service.
func NewService(accounts AccountStore, hasher *PasswordHasher, resolver PermissionResolver, tokens *TokenService, opts ...Option) *Service {
	s := &Service{
		accounts: accounts,
		hasher:   hasher,
		resolver: resolver,
		tokens:   tokens,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify checks email and password. Unknown emails and wrong passwords are
// indistinguishable. Inactive accounts are refused whatever password is given;
// the hash is still compared so every known account costs the same.
func (s *Service) Verify(ctx context.Context, email, password string) (users.Account, error) {
	email = users.NormalizeEmail(email)
	if email == "" || password == "" {
		return users.Account{}, fmt.Errorf("%w: email and password are required", shared.ErrValidation)
	}
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return users.Account{}, s.hasher.CompareDummy(ctx, password)
		}
		return users.Account{}, err
	}
	err = s.hasher.Compare(ctx, account.PasswordHash, password)
	if err != nil && !errors.Is(err, shared.ErrInvalidCredentials) {
		return users.Account{}, err
	}
	if !account.IsActive {
		return users.Account{}, shared.ErrAccountInactive
	}
	if err != nil {
		return users.Account{}, err
	}
	return account, nil
}

// Login verifies credentials, resolves permissions and issues both tokens.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	account, err := s.Verify(ctx, in.Email, in.Password)
	if err != nil {
		s.observe(outcomeFor(err))
		return LoginResult{}, err
	}
	perms, err := s.resolver.Resolve(ctx, account)
	if err != nil {
		s.observe("error")
		return LoginResult{}, err
	}
	access, err := s.tokens.IssueAccessToken(account, perms)
	if err != nil {
		s.observe("error")
		return LoginResult{}, err
	}
	refresh, err := s.tokens.IssueRefreshToken(account, perms)
	if err != nil {
		s.observe("error")
		return LoginResult{}, err
	}
	at := s.now().UTC()
	if err := s.accounts.TouchLastLogin(ctx, account.ID, at); err != nil {
		s.observe("error")
		return LoginResult{}, fmt.Errorf("auth: record last login: %w", err)
	}
	account.LastLoginAt = &at
	s.observe("success")
	s.record(ctx, LoginEvent{AccountID: account.ID, Email: account.Email, IP: in.IP, UserAgent: in.UserAgent, At: at})
	return LoginResult{Account: account, Permissions: perms, AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh issues a new access token from a refresh token.
func (s *Service) Refresh(ctx context.Context, raw string) (Token, error) {
	token, err := s.tokens.Refresh(ctx, raw)
	if err != nil {
		s.observe("refresh_rejected")
		return Token{}, err
	}
	s.observe("refresh")
	return token, nil
}

// AdminMe returns the caller's profile with freshly resolved modules.
func (s *Service) AdminMe(ctx context.Context, accountID int64) (AdminProfile, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return AdminProfile{}, rbac.ErrAccountNotFound
		}
		return AdminProfile{}, err
	}
	perms, err := s.resolver.Resolve(ctx, account)
	if err != nil {
		return AdminProfile{}, err
	}
	return AdminProfile{
		ID:       account.ID,
		Email:    account.Email,
		Name:     account.DisplayName(),
		Role:     account.Role,
		Modules:  perms.Modules,
		ViewOnly: account.ViewOnly,
	}, nil
}

func (s *Service) record(ctx context.Context, event LoginEvent) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordLogin(ctx, event); err != nil {
		s.logger.Warn("enqueue login audit", slog.Int64("account_id", event.AccountID), slog.Any("error", err))
	}
}

func (s *Service) observe(outcome string) {
	if s.observer != nil {
		s.observer.ObserveLogin(outcome)
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, shared.ErrAccountInactive):
		return "inactive"
	case errors.Is(err, shared.ErrValidation):
		return "invalid_request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
