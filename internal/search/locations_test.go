package search_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-user-go/travelgw/internal/apperr"
	"github.com/alex-user-go/travelgw/internal/providers"
	"github.com/alex-user-go/travelgw/internal/search"
	"github.com/alex-user-go/travelgw/internal/search/cache"
	"github.com/alex-user-go/travelgw/internal/search/types"
)

func newLocations(t *testing.T, client providers.Client) *search.Locations {
	t.Helper()
	static, err := search.LoadStaticLocations()
	require.NoError(t, err)
	c := cache.New[[]types.Location](0)
	t.Cleanup(c.Close)
	metrics, logger := testDeps()
	return search.NewLocations(client, c, static, search.LocationsConfig{TTL: time.Hour}, metrics, logger)
}

func TestLocations_AirportsIdempotentWithinTTL(t *testing.T) {
	client := &mockClient{
		locations: func(q providers.LocationQuery) ([]types.Location, error) {
			assert.Equal(t, types.KindAirport, q.Kind)
			return []types.Location{
				{Code: "CDG", Name: "Charles de Gaulle", CityName: "Paris", CountryName: "France", Kind: types.KindAirport},
			}, nil
		},
	}
	svc := newLocations(t, client)

	first := svc.Airports(context.Background(), "Paris")
	second := svc.Airports(context.Background(), "paris")

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)

	assert.Equal(t, firstJSON, secondJSON)
	assert.EqualValues(t, 1, client.locationCalls.Load())
	assert.Equal(t, "CDG", first[0].Code)
}

func TestLocations_MergePrefersLive(t *testing.T) {
	client := &mockClient{
		locations: func(q providers.LocationQuery) ([]types.Location, error) {
			return []types.Location{
				{Code: "LHR", Name: "Heathrow (live)", Kind: types.KindAirport},
				{Code: "LCY", Name: "London City", Kind: types.KindAirport},
			}, nil
		},
	}
	svc := newLocations(t, client)

	got := svc.Airports(context.Background(), "london")
	require.GreaterOrEqual(t, len(got), 3)
	assert.Equal(t, "LHR", got[0].Code)
	assert.Equal(t, "Heathrow (live)", got[0].Name)
	assert.Equal(t, "LCY", got[1].Code)

	seen := map[string]int{}
	for _, l := range got {
		seen[l.Code]++
	}
	assert.Equal(t, 1, seen["LHR"])
	assert.Equal(t, 1, seen["LGW"], "static match appended")
}

func TestLocations_FallbackOnProviderError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"configuration", apperr.Configuration("SERPAPI_KEY is not configured")},
		{"upstream", apperr.UpstreamRequest("serpapi returned status 502", 502, nil)},
		{"unclassified", errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{
				locations: func(q providers.LocationQuery) ([]types.Location, error) { return nil, tt.err },
			}
			svc := newLocations(t, client)

			got := svc.Cities(context.Background(), "par")
			require.NotEmpty(t, got)
			assert.Equal(t, "PAR", got[0].Code)
			assert.Equal(t, types.KindCity, got[0].Kind)

			// Fallback answers are not cached.
			svc.Cities(context.Background(), "par")
			assert.EqualValues(t, 2, client.locationCalls.Load())
		})
	}
}

func TestLocations_ShortQueriesSkipProvider(t *testing.T) {
	client := &mockClient{}
	svc := newLocations(t, client)

	assert.Empty(t, svc.Airports(context.Background(), "  "))
	assert.Empty(t, svc.Cities(context.Background(), "p"))
	assert.Empty(t, svc.Cities(context.Background(), "p, France"))
	assert.Zero(t, client.locationCalls.Load())
}

func TestLocations_CitiesUseTextBeforeComma(t *testing.T) {
	client := &mockClient{
		locations: func(q providers.LocationQuery) ([]types.Location, error) {
			assert.Equal(t, "Paris", q.Keyword)
			return nil, nil
		},
	}
	svc := newLocations(t, client)

	got := svc.Cities(context.Background(), "Paris, France")
	require.NotEmpty(t, got)
	assert.Equal(t, "PAR", got[0].Code)
}

func TestLocations_ResolveCity(t *testing.T) {
	client := &mockClient{
		locations: func(q providers.LocationQuery) ([]types.Location, error) {
			switch q.Keyword {
			case "Lisbon":
				return []types.Location{
					{Code: "/m/04llb", Name: "Lisbon", Kind: types.KindCity},
					{Code: "LIS", Name: "Humberto Delgado", Kind: types.KindAirport},
					{Code: "LIS", Name: "Lisbon", Kind: types.KindCity},
				}, nil
			case "Nowhere":
				return nil, nil
			default:
				return nil, errors.New("boom")
			}
		},
	}
	svc := newLocations(t, client)

	loc, err := svc.ResolveCity(context.Background(), "Lisbon")
	require.NoError(t, err)
	assert.Equal(t, "LIS", loc.Code)
	assert.Equal(t, types.KindCity, loc.Kind)

	_, err = svc.ResolveCity(context.Background(), "Nowhere")
	assert.Error(t, err)

	_, err = svc.ResolveCity(context.Background(), "Broken")
	assert.Error(t, err)
}

func TestStaticLocations_Match(t *testing.T) {
	static, err := search.LoadStaticLocations()
	require.NoError(t, err)
	require.NotEmpty(t, static.Airports)
	require.NotEmpty(t, static.Cities)

	for _, l := range static.Airports {
		assert.True(t, types.IsIATACode(l.Code), l.Code)
		assert.Equal(t, types.KindAirport, l.Kind)
	}

	got := static.Match(types.KindAirport, "TOKYO")
	codes := make([]string, 0, len(got))
	for _, l := range got {
		codes = append(codes, l.Code)
	}
	assert.ElementsMatch(t, []string{"HND", "NRT"}, codes)

	_, err = search.ParseStaticLocations([]byte("airports: [oops"))
	assert.Error(t, err)
}

func TestLocations_Describe(t *testing.T) {
	svc := newLocations(t, &mockClient{})

	dict := svc.Describe([]types.FlightOffer{{
		Origin:      "DXB",
		Destination: "JFK",
		Itinerary: []types.Segment{
			{DepartureAirport: "DXB", ArrivalAirport: "QQX"},
			{DepartureAirport: "QQX", ArrivalAirport: "JFK"},
		},
	}})

	require.Len(t, dict, 3)
	assert.Equal(t, "Dubai International", dict["DXB"].Name)
	assert.Equal(t, types.KindAirport, dict["DXB"].Kind)
	assert.Equal(t, types.Location{Code: "QQX", Kind: types.KindAirport}, dict["QQX"])

	assert.Empty(t, svc.Describe(nil))
}
