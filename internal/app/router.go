package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mtechcare/backoffice/internal/auth"
	"github.com/mtechcare/backoffice/internal/observability"
	"github.com/mtechcare/backoffice/internal/platform/httpx"
	"github.com/mtechcare/backoffice/internal/rbac"
	"github.com/mtechcare/backoffice/internal/roles"
	usershttp "github.com/mtechcare/backoffice/internal/users/http"
	"github.com/mtechcare/backoffice/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Guard              *rbac.AccessGuard
	WriteGuard         *rbac.WriteModeGuard
	AuthHandler        *auth.Handler
	UsersHandler       *usershttp.Handler
	RolesHandler       *roles.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
	// AccessLog toggles chi's request logger.
	AccessLog bool
}

// NewRouter constructs the chi.Router with back office defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	if params.AccessLog {
		r.Use(chimw.Logger)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)
		r.Route("/admin", func(r chi.Router) {
			params.AuthHandler.MountAdminRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(params.Guard.Authenticate, params.WriteGuard.Middleware)
				if params.UsersHandler != nil {
					params.UsersHandler.MountRoutes(r)
				}
				if params.RolesHandler != nil {
					params.RolesHandler.MountRoutes(r)
				}
				if params.PermissionsHandler != nil {
					params.PermissionsHandler.MountRoutes(r)
				}
			})
		})
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

// NewWorkerRouter serves the worker's health and Prometheus endpoints.
func NewWorkerRouter(metrics *observability.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}
