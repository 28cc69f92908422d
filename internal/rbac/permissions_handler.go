package rbac

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mtechcare/backoffice/internal/platform/httpx"
	"github.com/mtechcare/backoffice/internal/shared"
)

// PermissionsHandler exposes module administration.
type PermissionsHandler struct {
	logger    *slog.Logger
	admin     *ModuleAdmin
	guard     *AccessGuard
	validator *validator.Validate
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, admin *ModuleAdmin, guard *AccessGuard) *PermissionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionsHandler{logger: logger, admin: admin, guard: guard, validator: validator.New()}
}

// MountRoutes registers module routes. The router must already authenticate.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.With(h.guard.Require(Op(GroupAdminModules, "list"))).Get("/modules", h.listModules)
	r.With(h.guard.Require(Op(GroupAdminModules, "users"))).Get("/users/modules", h.listUsersWithModules)
	r.With(h.guard.Require(Op(GroupAdminModules, "update"))).Post("/users/modules", h.updateUserModules)
	r.With(h.guard.Require(Op(GroupAdminModules, "reset"))).Post("/users/{userId}/reset-modules", h.resetUserModules)
}

type updateModulesRequest struct {
	UserID  int64    `json:"userId" validate:"required,gt=0"`
	Modules []string `json:"modules" validate:"required"`
}

type userModulesResponse struct {
	ID               int64    `json:"id"`
	Name             *string  `json:"name"`
	Email            string   `json:"email"`
	Role             string   `json:"role"`
	IsActive         bool     `json:"isActive"`
	Modules          []string `json:"modules"`
	HasCustomModules bool     `json:"hasCustomModules"`
	ViewOnly         bool     `json:"viewOnly"`
}

func (h *PermissionsHandler) listModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.admin.ListModules(r.Context())
	if err != nil {
		h.fail(w, "list modules", err)
		return
	}
	httpx.JSON(w, http.StatusOK, modules)
}

func (h *PermissionsHandler) listUsersWithModules(w http.ResponseWriter, r *http.Request) {
	rows, err := h.admin.ListUsersWithModules(r.Context())
	if err != nil {
		h.fail(w, "list users with modules", err)
		return
	}
	modules, err := h.admin.ListModules(r.Context())
	if err != nil {
		h.fail(w, "list modules", err)
		return
	}
	out := make([]userModulesResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, userModulesResponse{
			ID:               row.ID,
			Name:             row.Name,
			Email:            row.Email,
			Role:             string(row.Role),
			IsActive:         row.IsActive,
			Modules:          row.Modules.Strings(),
			HasCustomModules: row.HasCustomModules,
			ViewOnly:         row.ViewOnly,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": out, "allModules": modules})
}

func (h *PermissionsHandler) updateUserModules(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	var req updateModulesRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", shared.ErrValidation, err.Error()))
		return
	}
	modules, err := h.admin.UpdateUserModules(r.Context(), req.UserID, req.Modules, principal.AccountID)
	if err != nil {
		h.fail(w, "update user modules", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "User modules updated successfully",
		"modules": modules.Strings(),
	})
}

func (h *PermissionsHandler) resetUserModules(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	userID, err := PathID(r, "userId")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	modules, err := h.admin.ResetUserModules(r.Context(), userID, principal.AccountID)
	if err != nil {
		h.fail(w, "reset user modules", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "User reset to role-based modules",
		"modules": modules.Strings(),
	})
}

func (h *PermissionsHandler) fail(w http.ResponseWriter, op string, err error) {
	var unknown *UnknownModuleError
	switch {
	case errors.As(err, &unknown), errors.Is(err, shared.ErrForbidden), errors.Is(err, shared.ErrNotFound):
		h.logger.Info(op, slog.Any("error", err))
	default:
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

// PathID parses a positive integer URL parameter.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", shared.ErrValidation, name)
	}
	return id, nil
}

