package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	database "github.com/Fonality-code/wayfinder-life-sub000/app/db"
	appLogger "github.com/Fonality-code/wayfinder-life-sub000/app/logger"
	"github.com/Fonality-code/wayfinder-life-sub000/app/observability/metrics"
	"github.com/Fonality-code/wayfinder-life-sub000/app/tracer"
	"github.com/Fonality-code/wayfinder-life-sub000/config"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/api"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/api/access"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/api/admin"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/api/auth"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/api/notifications"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/api/packages"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/api/routes"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/cache"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails.
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracer.InitTracingAndMetrics(cfg.Server.MetricsPort)
	metrics.InitAppMetrics()

	// --- Database Setup ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	// Run migrations before initializing the pools.
	err = database.RunMigrations(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// The role resolver reads profiles through a BYPASSRLS role so the
	// row-level policies on that table never apply to it.
	privilegedPool, err := database.Init(dbConfig.PrivilegedConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize privileged database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer privilegedPool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- Redis Setup ---
	redisCache, err := cache.New(ctx, cfg.Repositories.Redis)
	if err != nil {
		logger.Error("Failed to connect to Redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer redisCache.Close()

	// --- Dependency Injection ---
	auth.ConfigureOAuth(cfg.OAuth)

	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	authService := auth.NewAuthService(authRepo, cfg.JWT, logger)
	authHandler := auth.NewAuthHandler(authService, cfg.JWT, logger)
	sessionReader := auth.NewSessionReader(cfg.JWT, logger)

	accessRepo := access.NewPostgresAccessRepo(privilegedPool, logger)
	accessService := access.NewAccessService(accessRepo, cfg.Access, logger)
	accessHandler := access.NewAccessHandler(accessService, logger)

	notificationsRepo := notifications.NewPostgresNotificationsRepo(pool, logger)
	notificationsService := notifications.NewNotificationsService(notificationsRepo, logger)
	notificationsHandler := notifications.NewNotificationsHandler(notificationsService, logger)

	packagesRepo := packages.NewPostgresPackagesRepo(pool, logger)
	packagesService := packages.NewPackagesService(packagesRepo, redisCache, notificationsService, cfg.Track, logger)
	packagesHandler := packages.NewPackagesHandler(packagesService, logger)

	routesRepo := routes.NewPostgresRoutesRepo(pool, logger)
	routesService := routes.NewRoutesService(routesRepo, logger)
	routesHandler := routes.NewRoutesHandler(routesService, logger)

	adminHandler := admin.NewAdminHandler(accessService, authRepo, logger)

	// --- Router Setup ---
	mainRouter := api.SetupRouter(&api.RouterConfig{
		Logger:                   logger,
		Identify:                 sessionReader.Identify,
		RequireAuthenticated:     auth.RequireAuthenticated(logger),
		WithAccess:               access.WithAccess(accessService),
		RequireAdmin:             access.RequireRole(logger, types.RoleAdmin),
		TrackLookupRatePerMinute: cfg.Track.LookupRatePerMinute,
		AuthHandler:              authHandler,
		AccessHandler:            accessHandler,
		PackagesHandler:          packagesHandler,
		RoutesHandler:            routesHandler,
		NotificationsHandler:     notificationsHandler,
		AdminHandler:             adminHandler,
	})

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appLogger.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(cfg.Server.Timeout))
	router.Use(middleware.Compress(5, "application/json"))
	router.Mount("/", mainRouter)

	// --- HTTP Server Setup ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" {
		// Colored logs for development
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		// JSON logs for production
		jsonOpts := &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
