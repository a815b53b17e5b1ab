// Package app wires configuration, providers and services into an HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/alex-user-go/travelgw/internal/config"
	"github.com/alex-user-go/travelgw/internal/handler"
	"github.com/alex-user-go/travelgw/internal/middleware"
	"github.com/alex-user-go/travelgw/internal/obs"
	"github.com/alex-user-go/travelgw/internal/providers"
	"github.com/alex-user-go/travelgw/internal/search"
	"github.com/alex-user-go/travelgw/internal/search/cache"
	"github.com/alex-user-go/travelgw/internal/search/ratelimit"
	"github.com/alex-user-go/travelgw/internal/search/types"
)

// App is the assembled gateway.
type App struct {
	Handler http.Handler
	Metrics *obs.Metrics

	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New builds every component described by cfg.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		Metrics: obs.NewMetrics(logger),
		cfg:     cfg,
		logger:  logger,
	}

	clients := newClientSet(cfg, a.Metrics, logger)
	locClient, err := clients.get(cfg.Providers.Locations)
	if err != nil {
		return nil, err
	}
	flightClient, err := clients.get(cfg.Providers.Flights)
	if err != nil {
		return nil, err
	}
	hotelClient, err := clients.get(cfg.Providers.Hotels)
	if err != nil {
		return nil, err
	}

	static, err := search.LoadStaticLocations()
	if err != nil {
		return nil, err
	}

	// Initialize cache
	autocompleteCache := cache.New[[]types.Location](10 * time.Minute)
	a.closers = append(a.closers, autocompleteCache.Close)

	// Initialize rate limiter
	limiter := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	a.closers = append(a.closers, limiter.Close)

	locations := search.NewLocations(locClient, autocompleteCache, static, search.LocationsConfig{
		TTL:   cfg.Autocomplete.TTL,
		Limit: cfg.Autocomplete.Limit,
	}, a.Metrics, logger)
	flights := search.NewFlights(flightClient, a.Metrics, logger)
	hotels := search.NewHotels(hotelClient, locations, a.Metrics, logger)
	deals := search.NewDeals(flights, hotels, cfg.Deals.Search(), a.Metrics, logger)

	h := handler.New(locations, flights, hotels, deals, a.Metrics, logger)

	r := chi.NewRouter()
	r.Use(middleware.Logging(logger), middleware.Recover(logger))
	r.MethodNotAllowed(handler.MethodNotAllowed)
	r.NotFound(handler.NotFound)

	r.Get("/healthz", obs.HealthHandler(logger))
	r.Get("/metrics", a.Metrics.MetricsHandler())
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(limiter, a.Metrics, logger))
		h.Register(r)
	})

	a.Handler = cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
	}).Handler(r)

	logger.Info("gateway assembled",
		"locations_provider", locClient.Name(),
		"flights_provider", flightClient.Name(),
		"hotels_provider", hotelClient.Name(),
	)
	return a, nil
}

// Close stops background goroutines.
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// Configure server
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      a.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}

// clientSet builds each configured provider once so routes sharing a
// provider share its token cache.
type clientSet struct {
	cfg     *config.Config
	metrics *obs.Metrics
	logger  *slog.Logger
	built   map[string]providers.Client
}

func newClientSet(cfg *config.Config, metrics *obs.Metrics, logger *slog.Logger) *clientSet {
	return &clientSet{cfg: cfg, metrics: metrics, logger: logger, built: map[string]providers.Client{}}
}

func (s *clientSet) get(name string) (providers.Client, error) {
	if c, ok := s.built[name]; ok {
		return c, nil
	}
	c, err := NewClient(name, s.cfg, s.metrics, s.logger)
	if err != nil {
		return nil, err
	}
	s.built[name] = c
	return c, nil
}

// NewClient constructs the named provider client. Missing credentials are
// not an error here; the client reports them per request.
func NewClient(name string, cfg *config.Config, metrics *obs.Metrics, logger *slog.Logger) (providers.Client, error) {
	logger = logger.With("provider", name)
	timeout := cfg.Providers.Timeout

	switch name {
	case providers.NameAmadeus:
		return providers.NewAmadeus(providers.AmadeusConfig{
			ClientID:     cfg.Amadeus.ClientID,
			ClientSecret: cfg.Amadeus.ClientSecret,
			BaseURL:      cfg.Amadeus.BaseURL,
			TokenMargin:  cfg.Amadeus.TokenMargin,
			Timeout:      timeout,
		}, metrics, logger), nil
	case providers.NameSerpAPI:
		return providers.NewSerpAPI(providers.SerpAPIConfig{
			APIKey:  cfg.SerpAPI.APIKey,
			BaseURL: cfg.SerpAPI.BaseURL,
			Timeout: timeout,
		}, logger), nil
	case providers.NameSkyscraper:
		return providers.NewSkyscraper(providers.SkyscraperConfig{
			APIKey:  cfg.Skyscraper.APIKey,
			Host:    cfg.Skyscraper.Host,
			BaseURL: cfg.Skyscraper.BaseURL,
			Timeout: timeout,
		}, logger), nil
	case providers.NameFake:
		return providers.NewFake(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
