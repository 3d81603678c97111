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
	"github.com/redis/go-redis/v9"

	"github.com/lattice-cms/lattice/internal/app"
	"github.com/lattice-cms/lattice/internal/audit"
	"github.com/lattice-cms/lattice/internal/auth"
	"github.com/lattice-cms/lattice/internal/authz"
	"github.com/lattice-cms/lattice/internal/channels"
	"github.com/lattice-cms/lattice/internal/contents"
	"github.com/lattice-cms/lattice/internal/hierarchy"
	"github.com/lattice-cms/lattice/internal/library"
	"github.com/lattice-cms/lattice/internal/observability"
	"github.com/lattice-cms/lattice/internal/platform/db"
	"github.com/lattice-cms/lattice/internal/rbac"
	"github.com/lattice-cms/lattice/internal/shared"
	"github.com/lattice-cms/lattice/internal/sites"
	"github.com/lattice-cms/lattice/internal/users"
	"github.com/lattice-cms/lattice/internal/workflow"
	"github.com/lattice-cms/lattice/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "lattice_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	hierRepo := hierarchy.NewRepository(dbpool)
	hierService := hierarchy.NewService(hierRepo)

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo, logger)

	authzRepo := authz.NewRepository(dbpool)
	authzCache := authz.NewCache(redisClient, cfg.AuthzCacheTTL)
	resolver := authz.NewResolver(authzRepo, authzCache, logger, authz.ResolverOptions{
		ChannelGrantsStandalone: cfg.AuthzChannelStandalone,
	})
	facade := authz.NewFacade(resolver, hierService, auditService, logger)

	wfRepo := workflow.NewRepository(dbpool)
	wfHistory := workflow.NewHistoryRecorder(dbpool, logger)
	wfService := workflow.NewService(hierService, resolver, wfRepo, wfHistory, logger)
	wfService.SetAuditRecorder(auditService)

	rbacRepo := rbac.NewRepository(dbpool)
	rbacService := rbac.NewService(rbacRepo, resolver)
	rbacHandler := rbac.NewHandler(logger, rbacService, facade)

	sitesRepo := sites.NewRepository(dbpool)
	sitesService := sites.NewService(sitesRepo)
	sitesHandler := sites.NewHandler(logger, sitesService, facade)

	channelsRepo := channels.NewRepository(dbpool)
	channelsService := channels.NewService(channelsRepo)
	channelsHandler := channels.NewHandler(logger, channelsService, hierService, facade)

	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	contentsRepo := contents.NewRepository(dbpool)
	contentsService := contents.NewService(contentsRepo, facade, hierService, wfService)
	contentsHandler := contents.NewHandler(logger, contentsService, wfService, idempotencyStore)

	libraryRepo := library.NewRepository(dbpool)
	libraryService := library.NewService(libraryRepo, facade)
	libraryHandler := library.NewHandler(logger, libraryService)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, facade)

	auditHandler := audit.NewHandler(auditService, facade)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)
	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		AuthService:     authService,
		AuthHandler:     authHandler,
		SitesHandler:    sitesHandler,
		ChannelsHandler: channelsHandler,
		ContentsHandler: contentsHandler,
		LibraryHandler:  libraryHandler,
		RBACHandler:     rbacHandler,
		UsersHandler:    usersHandler,
		AuditHandler:    auditHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
		Pool:            dbpool,
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
