package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/alex-user-go/travelgw/internal/obs"
	"github.com/alex-user-go/travelgw/internal/providers"
	"github.com/alex-user-go/travelgw/internal/search/cache"
	"github.com/alex-user-go/travelgw/internal/search/types"
)

// Minimum keyword lengths before a provider is queried.
const (
	MinAirportQuery = 1
	MinCityQuery    = 2
)

// DefaultAutocompleteTTL is how long live suggestions are cached.
const DefaultAutocompleteTTL = 24 * time.Hour

// Locations serves airport and city typeahead. It never fails: when the
// provider errors the static dataset answers instead.
type Locations struct {
	client  providers.Client
	cache   *cache.Cache[[]types.Location]
	static  *StaticLocations
	ttl     time.Duration
	limit   int
	metrics *obs.Metrics
	logger  *slog.Logger
}

// LocationsConfig tunes the autocomplete service.
type LocationsConfig struct {
	TTL   time.Duration
	Limit int
}

// NewLocations creates the autocomplete service.
func NewLocations(
	client providers.Client,
	c *cache.Cache[[]types.Location],
	static *StaticLocations,
	cfg LocationsConfig,
	metrics *obs.Metrics,
	logger *slog.Logger,
) *Locations {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultAutocompleteTTL
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	return &Locations{
		client:  client,
		cache:   c,
		static:  static,
		ttl:     cfg.TTL,
		limit:   cfg.Limit,
		metrics: metrics,
		logger:  logger,
	}
}

// Airports returns airport suggestions for q.
func (s *Locations) Airports(ctx context.Context, q string) []types.Location {
	return s.suggest(ctx, types.KindAirport, strings.TrimSpace(q), MinAirportQuery)
}

// Cities returns city suggestions. Only the text before the first comma is
// used, so "Paris, France" searches for "Paris".
func (s *Locations) Cities(ctx context.Context, q string) []types.Location {
	keyword, _, _ := strings.Cut(q, ",")
	return s.suggest(ctx, types.KindCity, strings.TrimSpace(keyword), MinCityQuery)
}

func (s *Locations) suggest(ctx context.Context, kind types.LocationKind, keyword string, minLen int) []types.Location {
	if len([]rune(keyword)) < minLen {
		return []types.Location{}
	}

	key := cacheKey(kind, keyword)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncCacheHits()
		return cached
	}

	live, err := s.client.SearchLocations(ctx, providers.LocationQuery{Keyword: keyword, Kind: kind, Limit: s.limit})
	if err != nil {
		s.metrics.IncProviderErrors()
		s.metrics.IncFallbacks()
		s.logger.Warn("location search failed, serving static list",
			"provider", s.client.Name(),
			"kind", kind,
			"keyword", keyword,
			"error", err,
		)
		return nonNil(s.static.Match(kind, keyword))
	}

	merged := mergeLocations(live, s.static.Match(kind, keyword))
	s.cache.Set(key, merged, s.ttl)
	return merged
}

// ResolveCity maps a free-text city name to a 3-letter code using the
// provider. City matches win over airports.
func (s *Locations) ResolveCity(ctx context.Context, name string) (types.Location, error) {
	keyword, _, _ := strings.Cut(name, ",")
	keyword = strings.TrimSpace(keyword)

	found, err := s.client.SearchLocations(ctx, providers.LocationQuery{Keyword: keyword, Kind: types.KindCity, Limit: s.limit})
	if err != nil {
		return types.Location{}, err
	}

	var fallback *types.Location
	for i, l := range found {
		if !types.IsIATACode(l.Code) {
			continue
		}
		if l.Kind == types.KindCity {
			return l, nil
		}
		if fallback == nil {
			fallback = &found[i]
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return types.Location{}, errCityNotFound
}

// Describe builds the location dictionary for the airports touched by
// offers. Codes missing from the static dataset carry only their code.
func (s *Locations) Describe(offers []types.FlightOffer) map[string]types.Location {
	dict := make(map[string]types.Location)
	add := func(code string) {
		if code == "" {
			return
		}
		if _, ok := dict[code]; ok {
			return
		}
		if l, ok := s.static.Lookup(code); ok {
			dict[code] = l
			return
		}
		dict[code] = types.Location{Code: code, Kind: types.KindAirport}
	}
	for _, o := range offers {
		add(o.Origin)
		add(o.Destination)
		for _, seg := range o.Itinerary {
			add(seg.DepartureAirport)
			add(seg.ArrivalAirport)
		}
	}
	return dict
}

func cacheKey(kind types.LocationKind, keyword string) string {
	return strings.ToLower(string(kind)) + ":" + strings.ToLower(keyword)
}

// mergeLocations keeps live results first and appends static entries whose
// code is not already present.
func mergeLocations(live, static []types.Location) []types.Location {
	seen := make(map[string]struct{}, len(live)+len(static))
	out := make([]types.Location, 0, len(live)+len(static))
	for _, group := range [][]types.Location{live, static} {
		for _, l := range group {
			code := strings.ToUpper(l.Code)
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
