package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SIACAML/cooqu-order/internal/auth"
	"github.com/SIACAML/cooqu-order/internal/service"
	"github.com/SIACAML/cooqu-order/internal/session"
	"github.com/SIACAML/cooqu-order/pkg/health"
	"github.com/SIACAML/cooqu-order/pkg/middleware"
)

// RouterConfig carries the knobs the router needs beyond its dependencies.
type RouterConfig struct {
	AllowedOrigins  []string
	SearchRPS       int
	SearchBurst     int
	MaxSubmissionMB int64
}

// NewRouter creates a chi router with all order-intake routes registered.
func NewRouter(
	authService *service.AuthService,
	placesService *service.PlacesService,
	orderService *service.OrderService,
	store session.Store,
	cookies *auth.CookieManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(CORS(cfg.AllowedOrigins))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("cooqu-order"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	sessionHandler := NewSessionHandler(store, authService, logger)
	authHandler := NewAuthHandler(authService, logger)
	placesHandler := NewPlacesHandler(placesService, logger)
	orderHandler := NewOrderHandler(orderService, cfg.MaxSubmissionMB<<20, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionCookie(cookies, logger))

		r.Get("/catalog", Catalog)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Get("/session", sessionHandler.Get)
			r.Delete("/session", sessionHandler.Logout)

			r.Route("/auth", func(r chi.Router) {
				r.Post("/begin", authHandler.Begin)
				r.Post("/verify", authHandler.Verify)
				r.Post("/resend", authHandler.Resend)
				r.Post("/change-details", authHandler.ChangeDetails)
			})

			r.Route("/places", func(r chi.Router) {
				r.Use(middleware.RateLimit(cfg.SearchRPS, cfg.SearchBurst, logger))

				r.Get("/search", placesHandler.Search)
				r.Get("/resolve", placesHandler.Resolve)
				r.Get("/reverse", placesHandler.Reverse)
			})

			r.Post("/address/confirm", placesHandler.Confirm)
			r.Post("/orders/validate", orderHandler.Validate)
		})

		// Multipart endpoint, mounted outside the JSON content-type guard.
		r.Post("/orders", orderHandler.Submit)
	})

	return r
}
