package auth

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/mtechcare/backoffice/internal/platform/httpx"
	"github.com/mtechcare/backoffice/internal/rbac"
	"github.com/mtechcare/backoffice/internal/shared"
)

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "refreshToken"

// CookieConfig controls refresh cookie attributes.
type CookieConfig struct {
	Secure bool
	Domain string
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	guard      *rbac.AccessGuard
	cookies    CookieConfig
	refreshTTL time.Duration
	loginLimit int
	validator  *validator.Validate
}

// NewHandler constructs a Handler instance. loginLimit caps login attempts
// per IP per minute; zero disables the limiter.
func NewHandler(logger *slog.Logger, service *Service, guard *rbac.AccessGuard, cookies CookieConfig, refreshTTL time.Duration, loginLimit int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Handler{
		logger:     logger,
		service:    service,
		guard:      guard,
		cookies:    cookies,
		refreshTTL: refreshTTL,
		loginLimit: loginLimit,
		validator:  validator.New(),
	}
}

// MountRoutes registers the token refresh route under /auth.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/refresh", h.handleRefresh)
}

// MountAdminRoutes registers login and the caller's permissions under /auth/admin.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.loginLimit > 0 {
			r.Use(httprate.LimitByIP(h.loginLimit, time.Minute))
		}
		r.Post("/login", h.handleLogin)
	})
	r.With(h.guard.Authenticate).Get("/permissions", h.handlePermissions)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

type adminSummary struct {
	ID          int64      `json:"id"`
	Name        *string    `json:"name"`
	Email       string     `json:"email"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
}

type loginResponse struct {
	Success      bool         `json:"success"`
	Message      string       `json:"message"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	Admin        adminSummary `json:"admin"`
}

type permissionsResponse struct {
	ID       int64    `json:"id"`
	Email    string   `json:"email"`
	Name     *string  `json:"name"`
	Role     string   `json:"role"`
	Modules  []string `json:"modules"`
	ViewOnly bool     `json:"viewOnly"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", shared.ErrValidation, err.Error()))
		return
	}
	result, err := h.service.Login(r.Context(), LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		if !shared.IsAuthentication(err) {
			h.logger.Error("admin login", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	http.SetCookie(w, h.refreshCookie(result.RefreshToken.Value))
	httpx.JSON(w, http.StatusOK, loginResponse{
		Success:      true,
		Message:      "Admin login successful",
		AccessToken:  result.AccessToken.Value,
		RefreshToken: result.RefreshToken.Value,
		Admin: adminSummary{
			ID:          result.Account.ID,
			Name:        result.Account.DisplayName(),
			Email:       result.Account.Email,
			LastLoginAt: result.Account.LastLoginAt,
		},
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	token, err := h.service.Refresh(r.Context(), cookie.Value)
	if err != nil {
		if !shared.IsAuthentication(err) {
			h.logger.Error("refresh token", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "accessToken": token.Value})
}

func (h *Handler) handlePermissions(w http.ResponseWriter, r *http.Request) {
	principal, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	profile, err := h.service.AdminMe(r.Context(), principal.AccountID)
	if err != nil {
		if !shared.IsAuthentication(err) {
			h.logger.Error("admin permissions", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, permissionsResponse{
		ID:       profile.ID,
		Email:    profile.Email,
		Name:     profile.Name,
		Role:     string(profile.Role),
		Modules:  profile.Modules.Strings(),
		ViewOnly: profile.ViewOnly,
	})
}

func (h *Handler) refreshCookie(value string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(h.refreshTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if h.cookies.Secure {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
		cookie.Domain = h.cookies.Domain
	}
	return cookie
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
