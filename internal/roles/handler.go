package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mtechcare/backoffice/internal/platform/httpx"
	"github.com/mtechcare/backoffice/internal/rbac"
)

// Handler exposes the role listing.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   *rbac.AccessGuard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *rbac.AccessGuard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Require(rbac.Op(rbac.GroupAdminRoles, "list"))).Get("/roles", h.listRoles)
}

type roleResponse struct {
	Role    string   `json:"role"`
	Modules []string `json:"modules"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(list))
	for _, role := range list {
		out = append(out, roleResponse{Role: string(role.Name), Modules: role.Modules.Strings()})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}
