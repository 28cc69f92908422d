package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mtechcare/backoffice/internal/rbac"
	"github.com/mtechcare/backoffice/internal/shared"
	"github.com/mtechcare/backoffice/internal/users"
)

const (
	// DefaultAccessTTL is the lifetime of access tokens.
	DefaultAccessTTL = 15 * time.Minute
	// DefaultRefreshTTL is the lifetime of refresh tokens.
	DefaultRefreshTTL = 7 * 24 * time.Hour
	// ClockSkew is the tolerance applied to iat and exp between instances.
	ClockSkew = 5 * time.Second
)

// TokenKind distinguishes access from refresh tokens.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims is the signed token payload. The embedded subject is shadowed by a
// numeric account id.
type Claims struct {
	AccountID int64     `json:"sub"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Modules   []string  `json:"modules"`
	ViewOnly  bool      `json:"viewOnly"`
	Kind      TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// Token is a signed token and its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// TokenConfig carries signing material and lifetimes.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Validate checks both secrets are set and distinct.
func (c TokenConfig) Validate() error {
	if len(c.AccessSecret) == 0 || len(c.RefreshSecret) == 0 {
		return errors.New("auth: access and refresh secrets are required")
	}
	if subtle.ConstantTimeCompare(c.AccessSecret, c.RefreshSecret) == 1 {
		return errors.New("auth: access and refresh secrets must differ")
	}
	if c.AccessTTL < 0 || c.RefreshTTL < 0 {
		return errors.New("auth: token ttl must be positive")
	}
	return nil
}

// PermissionResolver computes permissions for an account already loaded.
type PermissionResolver interface {
	Resolve(ctx context.Context, account users.Account) (rbac.PermissionSet, error)
}

// AccountFinder loads accounts by id.
type AccountFinder interface {
	FindByID(ctx context.Context, id int64) (users.Account, error)
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// TokenService issues and verifies HS256 tokens.
type TokenService struct {
	cfg      TokenConfig
	accounts AccountFinder
	resolver PermissionResolver
	now      func() time.Time
}

// NewTokenService validates cfg and builds the service.
func NewTokenService(cfg TokenConfig, accounts AccountFinder, resolver PermissionResolver, opts ...TokenOption) (*TokenService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	s := &TokenService{cfg: cfg, accounts: accounts, resolver: resolver, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RefreshTTL reports the refresh token lifetime.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.cfg.RefreshTTL
}

// IssueAccessToken signs a short-lived token with the access secret.
func (s *TokenService) IssueAccessToken(account users.Account, perms rbac.PermissionSet) (Token, error) {
	return s.issue(account, perms, KindAccess)
}

// IssueRefreshToken signs a long-lived token with the refresh secret.
func (s *TokenService) IssueRefreshToken(account users.Account, perms rbac.PermissionSet) (Token, error) {
	return s.issue(account, perms, KindRefresh)
}

func (s *TokenService) issue(account users.Account, perms rbac.PermissionSet, kind TokenKind) (Token, error) {
	secret, ttl := s.material(kind)
	now := s.now().UTC()
	expires := now.Add(ttl)
	claims := Claims{
		AccountID: account.ID,
		Email:     account.Email,
		Role:      string(account.Role),
		Modules:   perms.Modules.Strings(),
		ViewOnly:  perms.ViewOnly,
		Kind:      kind,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return Token{}, fmt.Errorf("auth: sign %s token: %w", kind, err)
	}
	return Token{Value: signed, ExpiresAt: expires}, nil
}

// Verify checks signature, expiry and kind. Expired tokens yield
// shared.ErrTokenExpired; anything else yields shared.ErrTokenInvalid.
func (s *TokenService) Verify(raw string, kind TokenKind) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, shared.ErrTokenInvalid
	}
	secret, _ := s.material(kind)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(ClockSkew),
	)
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, shared.ErrTokenExpired
		}
		return nil, shared.ErrTokenInvalid
	}
	if !parsed.Valid || claims.Kind != kind || claims.AccountID <= 0 {
		return nil, shared.ErrTokenInvalid
	}
	return claims, nil
}

// VerifyAccess adapts a verified access token to a request principal.
func (s *TokenService) VerifyAccess(raw string) (rbac.Principal, error) {
	claims, err := s.Verify(raw, KindAccess)
	if err != nil {
		return rbac.Principal{}, err
	}
	principal := rbac.Principal{
		AccountID: claims.AccountID,
		Email:     claims.Email,
		Role:      users.Role(claims.Role),
		ViewOnly:  claims.ViewOnly,
	}
	if claims.Modules != nil {
		principal.Modules = make(rbac.ModuleSet, 0, len(claims.Modules))
		for _, code := range claims.Modules {
			principal.Modules = append(principal.Modules, rbac.ModuleCode(code))
		}
	}
	return principal, nil
}

// Refresh exchanges a refresh token for a new access token built from the
// account's current state. Blocked or deleted accounts fail with
// shared.ErrTokenInvalid. The refresh token itself is not rotated.
func (s *TokenService) Refresh(ctx context.Context, raw string) (Token, error) {
	claims, err := s.Verify(raw, KindRefresh)
	if err != nil {
		return Token{}, err
	}
	account, err := s.accounts.FindByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Token{}, fmt.Errorf("%w: account no longer exists", shared.ErrTokenInvalid)
		}
		return Token{}, err
	}
	if !account.IsActive {
		return Token{}, fmt.Errorf("%w: account is blocked", shared.ErrTokenInvalid)
	}
	perms, err := s.resolver.Resolve(ctx, account)
	if err != nil {
		return Token{}, err
	}
	return s.IssueAccessToken(account, perms)
}

func (s *TokenService) material(kind TokenKind) ([]byte, time.Duration) {
	if kind == KindRefresh {
		return s.cfg.RefreshSecret, s.cfg.RefreshTTL
	}
	return s.cfg.AccessSecret, s.cfg.AccessTTL
}

var _ rbac.TokenVerifier = (*TokenService)(nil)
