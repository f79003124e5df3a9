package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
)

// ServiceName labels metrics and spans emitted by the router.
const ServiceName = "identity"

// RouterConfig holds the settings NewRouter needs from the service config.
type RouterConfig struct {
	APIPrefix   string
	Development bool
	CORS        middleware.CORSConfig

	// Per-IP limit on /auth routes; a non-positive RPS disables it.
	AuthRateLimitRPS   float64
	AuthRateLimitBurst int

	PprofEnabled      bool
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all identity service routes registered.
func NewRouter(
	userService *service.UserService,
	tokens auth.TokenVerifier,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.PrometheusMetrics(ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if cfg.PprofEnabled {
		middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)
	}

	errs := httputil.NewErrorWriter(logger, cfg.Development)
	authHandler := NewAuthHandler(userService, errs, logger)
	userHandler := NewUserHandler(userService, errs, logger)
	accessHandler := NewAccessHandler(errs)

	r.Route(cfg.APIPrefix, func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(middleware.RateLimit(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst, logger))

			// Public
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.With(auth.OptionalAuthenticate(tokens)).Get("/access/{requirement}", accessHandler.Check)

			// Authenticated
			r.Group(func(r chi.Router) {
				r.Use(auth.Authenticate(tokens))

				r.Get("/profile", userHandler.GetProfile)
				r.Get("/profile/{id}", userHandler.GetProfile)
				r.Patch("/profile/update", userHandler.UpdateProfile)
				r.Patch("/profile/update/{id}", userHandler.UpdateProfile)
				r.Patch("/profile/password", authHandler.ChangePassword)
				r.Delete("/profile/delete", userHandler.DeleteProfile)
				r.Delete("/profile/delete/{id}", userHandler.DeleteProfile)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(auth.Authenticate(tokens))
			r.Use(auth.RequireCapability(domain.CapManageUsers))

			r.Get("/", userHandler.ListUsers)
		})
	})

	return r
}
