package providers

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/alex-user-go/travelgw/internal/search/types"
)

// Provider names accepted in configuration.
const (
	NameAmadeus    = "amadeus"
	NameSerpAPI    = "serpapi"
	NameSkyscraper = "skyscraper"
	NameFake       = "fake"
)

// DefaultTimeout bounds every outbound provider call.
const DefaultTimeout = 5 * time.Second

// LocationQuery is a typeahead lookup.
type LocationQuery struct {
	Keyword string
	Kind    types.LocationKind
	Limit   int
}

// FlightQuery is a normalized flight search.
type FlightQuery struct {
	Origin      string
	Destination string
	Date        string
	ReturnDate  string
	Adults      int
	Cabin       types.CabinClass
	Currency    string
	Max         int
}

// HotelQuery is a normalized hotel search. CityCode is a 3-letter code.
type HotelQuery struct {
	CityCode string
	CityName string
	CheckIn  string
	CheckOut string
	Adults   int
	Rooms    int
	Currency string
}

// InspirationQuery drives the cheapest-destination and cheapest-date lookups.
type InspirationQuery struct {
	Origin      string
	Destination string
	MaxPrice    int
}

// Client is implemented once per travel-data provider. Implementations
// translate queries into provider requests and normalize responses into the
// shared types; provider field names never escape an implementation.
type Client interface {
	// Name returns the provider name.
	Name() string
	// NativeCityCodes reports whether flight searches accept metropolitan
	// city codes such as LON or NYC.
	NativeCityCodes() bool
	SearchLocations(ctx context.Context, q LocationQuery) ([]types.Location, error)
	SearchFlights(ctx context.Context, q FlightQuery) (*types.FlightResult, error)
	SearchHotels(ctx context.Context, q HotelQuery) ([]types.HotelOffer, error)
}

// InspirationSearcher is implemented by providers with cheapest-fare
// discovery endpoints.
type InspirationSearcher interface {
	FlightDestinations(ctx context.Context, q InspirationQuery) ([]types.FlightOffer, error)
	FlightDates(ctx context.Context, q InspirationQuery) ([]types.FlightOffer, error)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func currencyOrUSD(c string) string {
	if c == "" {
		return "USD"
	}
	return c
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// datePart returns the YYYY-MM-DD prefix of a local date-time.
func datePart(ts string) string {
	if len(ts) < 10 {
		return ts
	}
	return ts[:10]
}

// titleCase turns "CHARLES DE GAULLE" into "Charles De Gaulle".
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func sumSegmentMinutes(segments []types.Segment) int {
	total := 0
	for _, s := range segments {
		total += s.DurationMinutes
	}
	return total
}
