package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/roadease/workshop-management/internal/audit"
	"github.com/roadease/workshop-management/internal/auth"
	"github.com/roadease/workshop-management/internal/obs"
	"github.com/roadease/workshop-management/internal/transport/middleware"
	"github.com/roadease/workshop-management/internal/transport/swagger"
	"github.com/roadease/workshop-management/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// RouterConfig tunes the transport-level throttle.
type RouterConfig struct {
	ThrottlePerSecond float64
	ThrottleBurst     int
}

func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	cfg RouterConfig,
	authHandler *auth.Handler,
	rbac *auth.RBACAuthorization,
	userHandler *user.Handler,
	auditHandler *audit.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(obs.Instrument)
	if cfg.ThrottlePerSecond > 0 {
		router.Use(middleware.Throttle(cfg.ThrottlePerSecond, cfg.ThrottleBurst))
	}

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Prometheus scrape endpoint
	router.Handle("/metrics", obs.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check routes
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		if authHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/setup", authHandler.Setup)
				sr.Post("/login", authHandler.Login)
				sr.Post("/logout", authHandler.Logout)
				sr.Post("/password-reset/request", authHandler.RequestPasswordReset)
				sr.Post("/password-reset/confirm", authHandler.ConfirmPasswordReset)
			})

			// Protected routes that require a live session
			r.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)

				// Current account
				if userHandler != nil {
					pr.Get("/users/me", userHandler.Me)
				}

				// Security event log, admin only
				if auditHandler != nil && rbac != nil {
					pr.Group(func(ar chi.Router) {
						ar.Use(rbac.RequireAdmin())
						ar.Get("/security/events", auditHandler.ListEvents)
					})
				}
			})
		}
	})
}
