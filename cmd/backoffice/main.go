package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mtechcare/backoffice/internal/app"
	"github.com/mtechcare/backoffice/internal/auth"
	"github.com/mtechcare/backoffice/internal/observability"
	"github.com/mtechcare/backoffice/internal/platform/cache"
	"github.com/mtechcare/backoffice/internal/platform/db"
	"github.com/mtechcare/backoffice/internal/rbac"
	"github.com/mtechcare/backoffice/internal/roles"
	"github.com/mtechcare/backoffice/internal/users"
	usershttp "github.com/mtechcare/backoffice/internal/users/http"
	"github.com/mtechcare/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, module cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}
	moduleCache := cache.NewCache(redisClient, rbac.ModuleCacheNamespace, cfg.ModuleCacheTTL)

	metrics := observability.NewMetrics()

	usersRepo := users.NewRepository(pool)
	rbacRepo := rbac.NewRepository(pool, moduleCache)
	rolesRepo := roles.NewRepository(pool)
	resolver := rbac.NewResolver(usersRepo, rolesRepo, rbacRepo)

	hasher, err := auth.NewPasswordHasher(cfg.BcryptCost, cfg.HashWorkers)
	if err != nil {
		logger.Error("init password hasher", slog.Any("error", err))
		os.Exit(1)
	}
	tokens, err := auth.NewTokenService(cfg.TokenConfig(), usersRepo, resolver)
	if err != nil {
		logger.Error("init token service", slog.Any("error", err))
		os.Exit(1)
	}
	routes, err := rbac.NewRouteTable(rbac.DefaultRouteRules()...)
	if err != nil {
		logger.Error("build route table", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	authService := auth.NewService(usersRepo, hasher, resolver, tokens,
		auth.WithLoginRecorder(jobClient),
		auth.WithOutcomeObserver(metrics),
		auth.WithLogger(logger),
	)
	guard := rbac.NewAccessGuard(tokens, resolver, routes, logger, metrics)
	writeGuard := rbac.NewWriteModeGuard(metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Guard:              guard,
		WriteGuard:         writeGuard,
		AuthHandler:        auth.NewHandler(logger, authService, guard, cfg.CookieConfig(), cfg.RefreshTokenTTL, cfg.LoginRateLimit),
		UsersHandler:       usershttp.NewHandler(logger, users.NewService(usersRepo, hasher, users.WithOverrideCleaner(rbacRepo)), guard),
		RolesHandler:       roles.NewHandler(logger, roles.NewService(resolver), guard),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbac.NewModuleAdmin(usersRepo, resolver, rbacRepo, rbacRepo), guard),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
		AccessLog:          !cfg.IsProduction(),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
