// Package usershttp exposes admin account management over HTTP.
package usershttp

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mtechcare/backoffice/internal/platform/httpx"
	"github.com/mtechcare/backoffice/internal/rbac"
	"github.com/mtechcare/backoffice/internal/shared"
	"github.com/mtechcare/backoffice/internal/users"
)

// Handler manages admin account endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *users.Service
	guard     *rbac.AccessGuard
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *users.Service, guard *rbac.AccessGuard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers account routes. The router must already authenticate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Require(rbac.Op(rbac.GroupAdminUsers, "list"))).Get("/users", h.listUsers)
	r.With(h.guard.Require(rbac.Op(rbac.GroupAdminUsers, "get"))).Get("/users/{userId}", h.getUser)
	r.With(h.guard.Require(rbac.Op(rbac.GroupAdminUsers, "create"))).Post("/users", h.createUser)
	r.With(h.guard.Require(rbac.Op(rbac.GroupAdminUsers, "update"))).Patch("/users/{userId}", h.updateUser)
	r.With(h.guard.Require(rbac.Op(rbac.GroupAdminUsers, "block"))).Patch("/users/{userId}/block-login", h.blockLogin)
	r.With(h.guard.Require(rbac.Op(rbac.GroupAdminUsers, "delete"))).Delete("/users/{userId}", h.deleteUser)
}

type createUserRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Role     string  `json:"role" validate:"required,oneof=SUPER_ADMIN ADMIN MANAGER SUPPORT VIEWER"`
	Name     *string `json:"name" validate:"omitempty,max=255"`
	ViewOnly bool    `json:"viewOnly"`
	StoreID  *int64  `json:"storeId" validate:"omitempty,gt=0"`
}

type updateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6,max=72"`
	Role     *string `json:"role" validate:"omitempty,oneof=SUPER_ADMIN ADMIN MANAGER SUPPORT VIEWER"`
	Name     *string `json:"name" validate:"omitempty,max=255"`
	IsActive *bool   `json:"isActive"`
	ViewOnly *bool   `json:"viewOnly"`
}

type blockLoginRequest struct {
	Blocked *bool `json:"blocked" validate:"required"`
}

type adminResponse struct {
	ID          int64      `json:"id"`
	Name        *string    `json:"name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"isActive"`
	ViewOnly    bool       `json:"viewOnly"`
	StoreID     *int64     `json:"storeId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
}

func toResponse(a users.Account) adminResponse {
	return adminResponse{
		ID:          a.ID,
		Name:        a.DisplayName(),
		Email:       a.Email,
		Role:        string(a.Role),
		IsActive:    a.IsActive,
		ViewOnly:    a.ViewOnly,
		StoreID:     a.StoreID,
		CreatedAt:   a.CreatedAt,
		LastLoginAt: a.LastLoginAt,
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	out := make([]adminResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toResponse(a))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Admins fetched successfully",
		"count":   len(out),
		"admins":  out,
	})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := rbac.PathID(r, "userId")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	account, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"admin":   toResponse(account),
	})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	account, err := h.service.Create(r.Context(), users.CreateInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     users.Role(req.Role),
		Name:     req.Name,
		ViewOnly: req.ViewOnly,
		StoreID:  req.StoreID,
	})
	if err != nil {
		h.fail(w, "create user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Admin user created successfully. They can log in with this email and password.",
		"admin":   toResponse(account),
	})
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := rbac.PathID(r, "userId")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	in := users.UpdateInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		IsActive: req.IsActive,
		ViewOnly: req.ViewOnly,
	}
	if req.Role != nil {
		role := users.Role(*req.Role)
		in.Role = &role
	}
	account, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Admin user updated successfully",
		"admin":   toResponse(account),
	})
}

func (h *Handler) blockLogin(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	id, err := rbac.PathID(r, "userId")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req blockLoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	account, err := h.service.SetBlocked(r.Context(), id, *req.Blocked, principal.AccountID)
	if err != nil {
		h.fail(w, "block login", err)
		return
	}
	message := "Login allowed for this account"
	if *req.Blocked {
		message = "Login blocked for this account"
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"blocked": *req.Blocked,
		"userId":  account.ID,
	})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	id, err := rbac.PathID(r, "userId")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id, principal.AccountID); err != nil {
		h.fail(w, "delete user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Admin user deleted successfully",
		"userId":  id,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", shared.ErrValidation, err.Error()))
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrConflict),
		errors.Is(err, shared.ErrForbidden), errors.Is(err, shared.ErrNotFound):
		h.logger.Info(op, slog.Any("error", err))
	default:
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
