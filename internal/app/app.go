// Package app wires the order-intake service together and runs it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SIACAML/cooqu-order/internal/auth"
	"github.com/SIACAML/cooqu-order/internal/config"
	"github.com/SIACAML/cooqu-order/internal/geocode"
	handler "github.com/SIACAML/cooqu-order/internal/handler/http"
	"github.com/SIACAML/cooqu-order/internal/service"
	"github.com/SIACAML/cooqu-order/internal/session"
	"github.com/SIACAML/cooqu-order/internal/upstream"
	"github.com/SIACAML/cooqu-order/pkg/health"
	"github.com/SIACAML/cooqu-order/pkg/httpclient"
)

// App wires together all dependencies and runs the order-intake service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	rdb        *redis.Client
	places     *service.PlacesService
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Redis backs the session store.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	store := session.NewRedisStore(rdb, cfg.SessionTTL)
	cookies := auth.NewCookieManager(cfg.SessionSecret, cfg.SessionCookieName, cfg.SessionTTL, cfg.SecureCookies)

	// Marketplace API client, behind retry and a circuit breaker.
	upstreamHTTPCfg := httpclient.DefaultConfig()
	upstreamHTTPCfg.Timeout = cfg.UpstreamTimeout
	upstreamDoer := httpclient.NewCircuitBreakerClient(
		httpclient.New(upstreamHTTPCfg),
		httpclient.DefaultCircuitBreakerConfig("marketplace"),
		logger,
	)
	marketplace := upstream.NewClient(cfg.UpstreamBaseURL, upstreamDoer, logger)

	// Geocoding client with its own breaker; warm-up is kicked off at start.
	geocodeHTTPCfg := httpclient.DefaultConfig()
	geocodeHTTPCfg.Timeout = cfg.GeocodeTimeout
	geocodeDoer := httpclient.NewCircuitBreakerClient(
		httpclient.New(geocodeHTTPCfg),
		httpclient.DefaultCircuitBreakerConfig("geocoder"),
		logger,
	)
	geocoder := geocode.NewClient(cfg.GeocodeBaseURL, cfg.GeocodeAPIKey, geocodeDoer, logger)
	searcher := geocode.NewSearcher(geocoder, cfg.SearchCoalesceWindow)

	// Build the dependency graph.
	authService := service.NewAuthService(store, marketplace, cfg.OTPLength, cfg.OTPResendWindow, logger)
	placesService := service.NewPlacesService(geocoder, searcher, store, logger)
	orderService := service.NewOrderService(store, marketplace, cfg.MaxPhotos, logger)

	// Health checks. Redis is critical: no session store, no service. The
	// geocoder only degrades address search, so it stays non-critical.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("geocoder", func(ctx context.Context) error {
		return geocoder.Ready(ctx)
	})

	router := handler.NewRouter(
		authService,
		placesService,
		orderService,
		store,
		cookies,
		healthHandler,
		logger,
		handler.RouterConfig{
			AllowedOrigins:  cfg.AllowedOrigins,
			SearchRPS:       cfg.SearchRPS,
			SearchBurst:     cfg.SearchBurst,
			MaxSubmissionMB: cfg.MaxSubmissionMB,
		},
	)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		rdb:        rdb,
		places:     placesService,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	// Warm the geocoder in the background so the first address search does
	// not pay for the readiness probe.
	go a.places.WarmUp()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
