package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"dailymission/internal/config"
	"dailymission/internal/database"
	"dailymission/internal/handlers"
	"dailymission/internal/security"
	"dailymission/internal/service"
)

const (
	stepDatabase   = "Connecting to database"
	stepMigrations = "Running migrations"
	stepServices   = "Starting services"
)

func main() {
	cfg := config.Load()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SessionSecret == "" {
		cfg.SessionSecret = security.GenerateSessionID()
		logger.Warn("SESSION_SECRET not set; generated a random secret, sessions will not survive restarts")
	}

	startup := handlers.NewStartupStatus(stepDatabase, stepMigrations, stepServices)
	router := &lateHandler{fallback: startup}

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	startup.SetCurrentStep(stepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logger.Error("Failed to initialize database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()
	startup.CompleteStep(stepDatabase)
	logger.Info("Database connection established", slog.String("type", cfg.DatabaseType))

	startup.SetCurrentStep(stepMigrations)
	if err := db.RunMigrations(ctx, cfg.MigrationsPath); err != nil {
		logger.Error("Failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	startup.CompleteStep(stepMigrations)
	logger.Info("Migrations completed successfully")

	startup.SetCurrentStep(stepServices)
	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.Debug, logger)
	if err != nil {
		logger.Warn("Email notifications disabled", slog.Any("error", err))
		emailService = nil
	}

	authService, err := service.NewAuthService(db, security.NewTokenIssuer(cfg.SessionSecret), cfg.SessionDuration, cfg.SessionCacheSize, cfg.CategoryGoal, emailService, logger)
	if err != nil {
		logger.Error("Failed to create auth service", slog.Any("error", err))
		os.Exit(1)
	}

	var notifier service.BadgeNotifier
	if emailService != nil {
		notifier = emailService
	}
	missionService := service.NewMissionService(db, cfg.Location(), cfg.CategoryGoal, notifier, logger)
	if err := missionService.VerifyBadgeCatalog(ctx); err != nil {
		logger.Warn("Badge catalog check failed", slog.Any("error", err))
	}

	providers := map[string]handlers.OAuthProvider{
		"google": handlers.GoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret),
	}
	if cfg.GoogleClientID == "" {
		logger.Warn("GOOGLE_CLIENT_ID not set; sign-in is unavailable")
	}

	middleware := handlers.NewMiddleware(authService, security.NewRateLimiter(ctx, 10, time.Minute), logger)
	router.set(handlers.NewRouter(handlers.Handlers{
		Middleware: middleware,
		Auth:       handlers.NewAuthHandler(authService, providers, security.NewStateSigner(cfg.SessionSecret), cfg.OAuthRedirectBaseURL, logger),
		Missions:   handlers.NewMissionHandler(missionService),
		Progress:   handlers.NewProgressHandler(missionService),
		Startup:    startup,
		Logger:     logger,
	}))
	startup.CompleteStep(stepServices)
	startup.MarkReady()
	logger.Info("Server ready")

	go cleanupExpiredSessions(ctx, authService, logger)

	<-ctx.Done()
	logger.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", slog.Any("error", err))
	}
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(ctx context.Context, authService *service.AuthService, logger *slog.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := authService.CleanupExpiredSessions(ctx)
			if err != nil {
				logger.Error("Error cleaning up expired sessions", slog.Any("error", err))
				continue
			}
			logger.Info("Expired sessions cleaned up", slog.Int64("removed", removed))
		}
	}
}

// lateHandler serves fallback until the real router is installed, so the
// listener can answer health checks while the database comes up.
type lateHandler struct {
	fallback http.Handler
	handler  atomic.Pointer[http.Handler]
}

func (h *lateHandler) set(next http.Handler) {
	h.handler.Store(&next)
}

func (h *lateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if next := h.handler.Load(); next != nil {
		(*next).ServeHTTP(w, r)
		return
	}
	h.fallback.ServeHTTP(w, r)
}
