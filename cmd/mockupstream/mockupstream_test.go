package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-user-go/travelgw/internal/apperr"
	"github.com/alex-user-go/travelgw/internal/obs"
	"github.com/alex-user-go/travelgw/internal/providers"
	"github.com/alex-user-go/travelgw/internal/search/types"
)

func newUpstream(t *testing.T, opts chaosOptions) *httptest.Server {
	t.Helper()
	h, err := newServer(opts, 42, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAmadeusClientAgainstMock(t *testing.T) {
	srv := newUpstream(t, chaosOptions{})
	metrics := obs.NewMetrics(discard())
	client := providers.NewAmadeus(providers.AmadeusConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		BaseURL:      srv.URL,
	}, metrics, discard())
	ctx := context.Background()

	cities, err := client.SearchLocations(ctx, providers.LocationQuery{Keyword: "paris", Kind: types.KindCity})
	require.NoError(t, err)
	require.NotEmpty(t, cities)
	assert.Equal(t, "PAR", cities[0].Code)
	assert.Equal(t, "Paris", cities[0].Name)

	flights, err := client.SearchFlights(ctx, providers.FlightQuery{Origin: "DXB", Destination: "LHR", Date: "2026-05-01", ReturnDate: "2026-05-08", Cabin: types.CabinBusiness})
	require.NoError(t, err)
	require.Len(t, flights.Offers, 4)
	assert.NotEmpty(t, flights.Carriers)
	for _, o := range flights.Offers {
		assert.Equal(t, "DXB", o.Origin)
		assert.Equal(t, "LHR", o.Destination)
		assert.Equal(t, "2026-05-08", o.ReturnDate)
		assert.Len(t, o.Itinerary, 2)
	}

	hotels, err := client.SearchHotels(ctx, providers.HotelQuery{CityCode: "PAR", CheckIn: "2026-05-01", CheckOut: "2026-05-03"})
	require.NoError(t, err)
	assert.Len(t, hotels, 5, "sold out hotels are skipped")

	_, err = client.SearchHotels(ctx, providers.HotelQuery{CityCode: "QQQ", CheckIn: "2026-05-01", CheckOut: "2026-05-03"})
	assert.ErrorIs(t, err, apperr.ErrNotFoundUpstream)

	dests, err := client.FlightDestinations(ctx, providers.InspirationQuery{Origin: "DXB"})
	require.NoError(t, err)
	assert.NotEmpty(t, dests)

	// One token serves every call above.
	assert.EqualValues(t, 1, metrics.Snapshot().TokenRefreshes)
}

func TestAmadeusMock_RejectsBadCredentials(t *testing.T) {
	srv := newUpstream(t, chaosOptions{})

	resp, err := http.PostForm(srv.URL+"/v1/security/oauth2/token", map[string][]string{"grant_type": {"client_credentials"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/reference-data/locations?keyword=par", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer forged")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestSerpAPIClientAgainstMock(t *testing.T) {
	srv := newUpstream(t, chaosOptions{})
	client := providers.NewSerpAPI(providers.SerpAPIConfig{APIKey: "k", BaseURL: srv.URL}, discard())
	ctx := context.Background()

	airports, err := client.SearchLocations(ctx, providers.LocationQuery{Keyword: "heathrow", Kind: types.KindAirport})
	require.NoError(t, err)
	require.NotEmpty(t, airports)
	assert.Equal(t, "LHR", airports[0].Code)

	flights, err := client.SearchFlights(ctx, providers.FlightQuery{Origin: "DXB", Destination: "LHR", Date: "2026-05-01"})
	require.NoError(t, err)
	assert.Len(t, flights.Offers, 5)

	_, err = client.SearchFlights(ctx, providers.FlightQuery{Origin: "DXB", Destination: "DXB", Date: "2026-05-01"})
	assert.ErrorIs(t, err, apperr.ErrNotFoundUpstream)

	hotels, err := client.SearchHotels(ctx, providers.HotelQuery{CityCode: "PAR", CityName: "Paris", CheckIn: "2026-05-01", CheckOut: "2026-05-03"})
	require.NoError(t, err)
	assert.Len(t, hotels, 6)
}

func TestSkyscraperClientAgainstMock(t *testing.T) {
	srv := newUpstream(t, chaosOptions{})
	client := providers.NewSkyscraper(providers.SkyscraperConfig{APIKey: "k", BaseURL: srv.URL}, discard())
	ctx := context.Background()

	flights, err := client.SearchFlights(ctx, providers.FlightQuery{Origin: "DXB", Destination: "LHR", Date: "2026-05-01"})
	require.NoError(t, err)
	require.Len(t, flights.Offers, 4)
	assert.Equal(t, "DXB", flights.Offers[0].Origin)

	hotels, err := client.SearchHotels(ctx, providers.HotelQuery{CityCode: "PAR", CityName: "Paris", CheckIn: "2026-05-01", CheckOut: "2026-05-04"})
	require.NoError(t, err)
	require.Len(t, hotels, 6)
	for _, h := range hotels {
		assert.NotNil(t, h.Rating)
	}
}

func TestChaos_FailsEverything(t *testing.T) {
	srv := newUpstream(t, chaosOptions{FailureRate: 1})
	client := providers.NewSerpAPI(providers.SerpAPIConfig{APIKey: "k", BaseURL: srv.URL}, discard())

	_, err := client.SearchFlights(context.Background(), providers.FlightQuery{Origin: "DXB", Destination: "LHR", Date: "2026-05-01"})
	assert.ErrorIs(t, err, apperr.ErrUpstreamRequest)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
