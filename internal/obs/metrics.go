package obs

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks application metrics using atomic counters.
type Metrics struct {
	requests         atomic.Int64
	cacheHits        atomic.Int64
	providerErrors   atomic.Int64
	tokenRefreshes   atomic.Int64
	fallbacksServed  atomic.Int64
	dealLegsFailed   atomic.Int64
	rateLimitedCalls atomic.Int64
	logger           *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requests.Add(1)
}

// IncCacheHits increments the autocomplete cache hits counter.
func (m *Metrics) IncCacheHits() {
	m.cacheHits.Add(1)
}

// IncProviderErrors increments the provider errors counter.
func (m *Metrics) IncProviderErrors() {
	m.providerErrors.Add(1)
}

// IncTokenRefreshes increments the OAuth token endpoint call counter.
func (m *Metrics) IncTokenRefreshes() {
	m.tokenRefreshes.Add(1)
}

// IncFallbacks counts responses served from the static location dataset.
func (m *Metrics) IncFallbacks() {
	m.fallbacksServed.Add(1)
}

// IncDealLegsFailed counts deal candidates dropped because their search failed.
func (m *Metrics) IncDealLegsFailed() {
	m.dealLegsFailed.Add(1)
}

// IncRateLimited counts requests rejected by the rate limiter.
func (m *Metrics) IncRateLimited() {
	m.rateLimitedCalls.Add(1)
}

// Snapshot returns current metric values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Requests:        m.requests.Load(),
		CacheHits:       m.cacheHits.Load(),
		ProviderErrors:  m.providerErrors.Load(),
		TokenRefreshes:  m.tokenRefreshes.Load(),
		FallbacksServed: m.fallbacksServed.Load(),
		DealLegsFailed:  m.dealLegsFailed.Load(),
		RateLimited:     m.rateLimitedCalls.Load(),
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	Requests        int64
	CacheHits       int64
	ProviderErrors  int64
	TokenRefreshes  int64
	FallbacksServed int64
	DealLegsFailed  int64
	RateLimited     int64
}

// HealthHandler returns a handler for /healthz requests.
func HealthHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health response", "error", err)
		}
	}
}

type counter struct {
	name  string
	help  string
	value int64
}

// MetricsHandler returns a handler for /metrics requests in Prometheus format.
func (m *Metrics) MetricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := m.Snapshot()
		counters := []counter{
			{"requests_total", "Total number of requests", s.Requests},
			{"cache_hits_total", "Total number of autocomplete cache hits", s.CacheHits},
			{"provider_errors_total", "Total number of provider errors", s.ProviderErrors},
			{"token_refreshes_total", "Total number of OAuth token requests", s.TokenRefreshes},
			{"fallbacks_served_total", "Total number of static fallback responses", s.FallbacksServed},
			{"deal_legs_failed_total", "Total number of failed deal candidate searches", s.DealLegsFailed},
			{"rate_limited_total", "Total number of rate limited requests", s.RateLimited},
		}

		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.WriteHeader(http.StatusOK)

		for _, c := range counters {
			if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", c.name, c.help, c.name, c.name, c.value); err != nil {
				m.logger.Error("failed to write metrics", "error", err)
				return
			}
		}
	}
}
