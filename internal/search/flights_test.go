package search_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-user-go/travelgw/internal/apperr"
	"github.com/alex-user-go/travelgw/internal/providers"
	"github.com/alex-user-go/travelgw/internal/search"
	"github.com/alex-user-go/travelgw/internal/search/types"
)

func TestFlights_ValidationHappensBeforeProviderCall(t *testing.T) {
	tests := []struct {
		name   string
		params search.FlightParams
	}{
		{"missing from", search.FlightParams{To: "LHR", Date: "2026-12-01"}},
		{"missing to", search.FlightParams{From: "JFK", Date: "2026-12-01"}},
		{"missing date", search.FlightParams{From: "JFK", To: "LHR"}},
		{"bad date", search.FlightParams{From: "JFK", To: "LHR", Date: "01/12/2026"}},
		{"bad code", search.FlightParams{From: "JFKX", To: "LHR", Date: "2026-12-01"}},
		{"return before departure", search.FlightParams{From: "JFK", To: "LHR", Date: "2026-12-10", ReturnDate: "2026-12-01"}},
		{"negative adults", search.FlightParams{From: "JFK", To: "LHR", Date: "2026-12-01", Adults: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{}
			metrics, logger := testDeps()
			svc := search.NewFlights(client, metrics, logger)

			_, err := svc.Offers(context.Background(), tt.params)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
			assert.Equal(t, 400, apperr.HTTPStatus(err))
			assert.Zero(t, client.flightCalls.Load())
		})
	}
}

func TestFlights_CityCodeAliases(t *testing.T) {
	tests := []struct {
		name       string
		native     bool
		from, to   string
		wantOrigin string
		wantDest   string
	}{
		{"airport-only provider maps LON", false, "LON", "NYC", "LHR", "JFK"},
		{"airport codes pass through", false, "lgw", "ewr", "LGW", "EWR"},
		{"native provider keeps city codes", true, "LON", "PAR", "LON", "PAR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{native: tt.native}
			metrics, logger := testDeps()
			svc := search.NewFlights(client, metrics, logger)

			_, err := svc.Offers(context.Background(), search.FlightParams{From: tt.from, To: tt.to, Date: "2026-12-01"})
			require.NoError(t, err)
			require.Len(t, client.flightQueries, 1)
			assert.Equal(t, tt.wantOrigin, client.flightQueries[0].Origin)
			assert.Equal(t, tt.wantDest, client.flightQueries[0].Destination)
			assert.Equal(t, 1, client.flightQueries[0].Adults)
			assert.Equal(t, types.CabinEconomy, client.flightQueries[0].Cabin)
		})
	}
}

func TestFlights_NotFoundIsEmpty(t *testing.T) {
	client := &mockClient{
		flights: func(q providers.FlightQuery) (*types.FlightResult, error) {
			return nil, apperr.NotFoundUpstream("amadeus: no fares")
		},
	}
	metrics, logger := testDeps()
	svc := search.NewFlights(client, metrics, logger)

	res, err := svc.Offers(context.Background(), search.FlightParams{From: "JFK", To: "LHR", Date: "2026-12-01"})
	require.NoError(t, err)
	assert.NotNil(t, res.Offers)
	assert.Empty(t, res.Offers)
	assert.Zero(t, metrics.Snapshot().ProviderErrors)
}

func TestFlights_UpstreamErrorPropagates(t *testing.T) {
	client := &mockClient{
		flights: func(q providers.FlightQuery) (*types.FlightResult, error) {
			return nil, apperr.UpstreamRequest("amadeus: invalid date", 400, nil)
		},
	}
	metrics, logger := testDeps()
	svc := search.NewFlights(client, metrics, logger)

	_, err := svc.Offers(context.Background(), search.FlightParams{From: "JFK", To: "LHR", Date: "2026-12-01", Cabin: "business"})
	require.Error(t, err)
	assert.Equal(t, 400, apperr.HTTPStatus(err))
	assert.EqualValues(t, 1, metrics.Snapshot().ProviderErrors)
	assert.Equal(t, types.CabinBusiness, client.flightQueries[0].Cabin)
}

func TestFlights_InspirationSoftFails(t *testing.T) {
	metrics, logger := testDeps()

	plain := search.NewFlights(&mockClient{}, metrics, logger)
	got, err := plain.Destinations(context.Background(), "MAD", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	failing := search.NewFlights(&inspirationClient{
		mockClient: &mockClient{},
		destinations: func(q providers.InspirationQuery) ([]types.FlightOffer, error) {
			return nil, errors.New("upstream exploded")
		},
	}, metrics, logger)
	got, err = failing.Destinations(context.Background(), "mad", 200)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = failing.Dates(context.Background(), "MAD", "MUC")
	require.NoError(t, err)
	assert.Empty(t, got)

	working := search.NewFlights(&inspirationClient{
		mockClient: &mockClient{},
		destinations: func(q providers.InspirationQuery) ([]types.FlightOffer, error) {
			assert.Equal(t, "MAD", q.Origin)
			assert.Equal(t, 200, q.MaxPrice)
			return []types.FlightOffer{offer("MAD", "PAR", 110)}, nil
		},
	}, metrics, logger)
	got, err = working.Destinations(context.Background(), "mad", 200)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "PAR", got[0].Destination)

	_, err = working.Destinations(context.Background(), "", 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
}
