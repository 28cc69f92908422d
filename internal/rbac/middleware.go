package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mtechcare/backoffice/internal/platform/httpx"
	"github.com/mtechcare/backoffice/internal/shared"
)

// TokenVerifier turns a raw bearer token into a principal.
type TokenVerifier interface {
	VerifyAccess(raw string) (Principal, error)
}

// DenialObserver records guard rejections. Reasons are "unauthenticated",
// "module" and "view_only".
type DenialObserver interface {
	ObserveAccessDenied(reason string)
}

// ModuleForbiddenError reports a missing module grant.
type ModuleForbiddenError struct {
	Module ModuleCode
}

func (e *ModuleForbiddenError) Error() string {
	return fmt.Sprintf("Access to module '%s' is not allowed", e.Module)
}

// Unwrap lets errors.Is match shared.ErrForbidden.
func (e *ModuleForbiddenError) Unwrap() error {
	return shared.ErrForbidden
}

type principalKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the principal stored by Authenticate.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// AccessGuard authenticates bearer tokens and enforces module requirements.
type AccessGuard struct {
	tokens   TokenVerifier
	resolver *Resolver
	routes   *RouteTable
	logger   *slog.Logger
	observer DenialObserver
}

// NewAccessGuard wires the guard. observer may be nil.
func NewAccessGuard(tokens TokenVerifier, resolver *Resolver, routes *RouteTable, logger *slog.Logger, observer DenialObserver) *AccessGuard {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessGuard{tokens: tokens, resolver: resolver, routes: routes, logger: logger, observer: observer}
}

// Authenticate requires a valid access token and stores the principal.
func (g *AccessGuard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			g.deny(w, "unauthenticated", shared.ErrUnauthenticated)
			return
		}
		principal, err := g.tokens.VerifyAccess(raw)
		if err != nil {
			g.deny(w, "unauthenticated", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

// Require enforces the module mapped to op in the route table.
func (g *AccessGuard) Require(op Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				g.deny(w, "unauthenticated", shared.ErrUnauthenticated)
				return
			}
			if err := g.Authorize(r.Context(), principal, op); err != nil {
				if errors.Is(err, shared.ErrForbidden) {
					g.logger.Warn("access denied", slog.Int64("account_id", principal.AccountID), slog.String("operation", op.String()))
					g.deny(w, "module", err)
					return
				}
				g.logger.Error("authorize", slog.String("operation", op.String()), slog.Any("error", err))
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authorize decides whether principal may invoke op.
func (g *AccessGuard) Authorize(ctx context.Context, principal Principal, op Operation) error {
	required, ok := g.routes.Lookup(op)
	if !ok {
		return nil
	}
	if principal.IsSuperAdmin() {
		return nil
	}
	modules := principal.Modules
	if modules == nil {
		var err error
		if modules, err = g.resolver.ResolveForRole(ctx, principal.Role); err != nil {
			return err
		}
	}
	if modules.Contains(required) {
		return nil
	}
	return &ModuleForbiddenError{Module: required}
}

func (g *AccessGuard) deny(w http.ResponseWriter, reason string, err error) {
	if g.observer != nil {
		g.observer.ObserveAccessDenied(reason)
	}
	httpx.RespondError(w, err)
}

// WriteModeGuard blocks mutating methods for view-only principals.
type WriteModeGuard struct {
	observer DenialObserver
}

// NewWriteModeGuard builds the guard. observer may be nil.
func NewWriteModeGuard(observer DenialObserver) *WriteModeGuard {
	return &WriteModeGuard{observer: observer}
}

// Check returns shared.ErrViewOnly when a view-only principal sends a mutating method.
func (g *WriteModeGuard) Check(principal Principal, method string) error {
	if principal.IsSuperAdmin() || !principal.ViewOnly {
		return nil
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return shared.ErrViewOnly
	}
	return nil
}

// Middleware applies Check to every request. It must run after Authenticate.
func (g *WriteModeGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		if err := g.Check(principal, r.Method); err != nil {
			if g.observer != nil {
				g.observer.ObserveAccessDenied("view_only")
			}
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}
