package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/sitegate/internal/auth"
	"github.com/BradenHooton/sitegate/internal/handlers"
	middlewareCustom "github.com/BradenHooton/sitegate/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Config carries everything the router needs
type Config struct {
	Env            string
	AllowedOrigins []string
	RateLimit      middlewareCustom.RateLimitConfig
	RequestTimeout time.Duration
	// PrivateDir is served under /private/ to authenticated clients. Empty
	// disables the route.
	PrivateDir string
}

// NewRouter builds the application router with its middleware chain
func NewRouter(
	cfg Config,
	authHandler *handlers.AuthHandler,
	sessions auth.SessionParser,
	health handlers.HealthChecker,
	logger *slog.Logger,
) chi.Router {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.CORSConfig{AllowedOrigins: cfg.AllowedOrigins, MaxAge: 3600}))
	router.Use(middlewareCustom.SecureLogger(logger, cfg.Env))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	router.Get("/health", handlers.Health(health))

	RegisterRoutes(router, authHandler, sessions, cfg)

	return router
}

// RegisterRoutes registers the gate routes
func RegisterRoutes(router chi.Router, authHandler *handlers.AuthHandler, sessions auth.SessionParser, cfg Config) {
	// Only login attempts draw on the per-client request budget. Status polls
	// and logout stay free so a page can check its session as often as it likes.
	router.Route("/auth", func(r chi.Router) {
		r.With(middlewareCustom.RateLimitByClientKey(cfg.RateLimit)).Post("/", authHandler.Login)
		r.Get("/", authHandler.Status)
		r.Delete("/", authHandler.Logout)
	})

	if cfg.PrivateDir == "" {
		return
	}

	// Protected content, valid session required
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(sessions))
		r.Handle("/private/*", http.StripPrefix("/private", http.FileServer(http.Dir(cfg.PrivateDir))))
	})
}
