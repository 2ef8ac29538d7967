package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/satrapit/db-conn/internal/service"
	"github.com/satrapit/db-conn/pkg/health"
	"github.com/satrapit/db-conn/pkg/middleware"
)

// NewRouter creates a chi router with all auth service routes registered.
func NewRouter(
	authService *service.AuthService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Tracing("phoneauth"))
	r.Use(middleware.PrometheusMetrics("phoneauth"))

	// Operational endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authHandler := NewAuthHandler(authService, logger)
	profileHandler := NewProfileHandler(authService, logger)

	// Public endpoints
	r.Group(func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/send-otp", authHandler.SendOTP)
		r.Post("/verify-otp", authHandler.VerifyOTP)
	})

	// Token-protected endpoints. Token checking happens in the service, not
	// in middleware: the revocation lookup and the profile fetch share one
	// code path there.
	r.Get("/profile", profileHandler.GetProfile)
	r.Get("/validate-token", profileHandler.ValidateToken)
	r.Get("/sessions", profileHandler.Sessions)
	r.Post("/logout", profileHandler.Logout)
	r.Group(func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Put("/profile", profileHandler.UpdateProfile)
	})

	return r
}
