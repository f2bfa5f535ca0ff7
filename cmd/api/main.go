package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/sitegate/internal/auth"
	"github.com/BradenHooton/sitegate/internal/background"
	"github.com/BradenHooton/sitegate/internal/config"
	"github.com/BradenHooton/sitegate/internal/database"
	"github.com/BradenHooton/sitegate/internal/handlers"
	middlewareCustom "github.com/BradenHooton/sitegate/internal/middleware"
	"github.com/BradenHooton/sitegate/internal/repositories"
	"github.com/BradenHooton/sitegate/internal/routes"
	"github.com/BradenHooton/sitegate/internal/services"
	pkglogger "github.com/BradenHooton/sitegate/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("attempt_store", cfg.Store.Backend))

	// Attempt store
	var (
		attemptRepo services.AttemptRepository
		health      handlers.HealthChecker
	)
	switch cfg.Store.Backend {
	case config.StorePostgres:
		db, err := database.NewConnection(&cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = db.Migrate(migrateCtx)
		cancel()
		if err != nil {
			logger.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}

		attemptRepo = repositories.NewAttemptRepository(db)
		health = db
	default:
		attemptRepo = repositories.NewMemoryAttemptRepository()
	}

	// Gate components
	verifier, err := auth.NewCredentialVerifier(cfg.Gate.Password)
	if err != nil {
		logger.Error("invalid gate password", slog.Any("error", err))
		os.Exit(1)
	}

	sessionManager, err := auth.NewSessionManager(cfg.Gate.SessionSecret, cfg.Gate.SessionDuration)
	if err != nil {
		logger.Error("failed to initialize session manager", slog.Any("error", err))
		os.Exit(1)
	}

	tracker := services.NewAttemptTracker(attemptRepo, services.AttemptTrackerConfig{
		MaxAttempts:   cfg.Gate.MaxAttempts,
		LockoutWindow: cfg.Gate.LockoutWindow,
	}, logger)

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   cfg.Gate.TimingBase,
		RandomDelay: cfg.Gate.TimingRandom,
	})

	auditLogger := pkglogger.NewAuditLogger(logger, cfg.Server.Env)
	gateService := services.NewGateService(tracker, verifier, timingDelay, logger, auditLogger)

	// Optional lockout alerts via AWS SES
	if cfg.Alert.Enabled() {
		notifier, err := services.NewSESLockoutNotifier(context.Background(), cfg.Alert.AWSRegion, cfg.Alert.From, cfg.Alert.To, logger)
		if err != nil {
			logger.Error("failed to initialize lockout notifier", slog.Any("error", err))
			os.Exit(1)
		}
		gateService.SetLockoutNotifier(notifier, cfg.Alert.Interval)
	}

	cookieConfig := auth.CookieConfig{
		Domain:   cfg.Gate.CookieDomain,
		Secure:   cfg.Server.Env == "production",
		SameSite: cfg.Gate.CookieSameSite,
	}
	authHandler := handlers.NewAuthHandler(gateService, sessionManager, cookieConfig, auditLogger, logger)

	router := routes.NewRouter(routes.Config{
		Env:            cfg.Server.Env,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Gate.RateLimitPerMin},
		PrivateDir:     cfg.Server.PrivateDir,
	}, authHandler, sessionManager, health, logger)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	cleanupManager := background.NewCleanupManager(tracker, logger, cfg.Store.SweepInterval)
	if err := cleanupManager.Start(cleanupCtx); err != nil {
		logger.Error("failed to start attempt cleanup", slog.Any("error", err))
		os.Exit(1)
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	gateService.WaitForAlerts()

	logger.Info("server stopped gracefully")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
