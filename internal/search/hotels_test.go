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

func newHotels(t *testing.T, client *mockClient) *search.Hotels {
	t.Helper()
	metrics, logger := testDeps()
	return search.NewHotels(client, newLocations(t, client), metrics, logger)
}

func hotel(id string, price float64) types.HotelOffer {
	return types.HotelOffer{ID: id, Name: "Hotel " + id, CityCode: "PAR", PriceTotal: price, Currency: "EUR", Amenities: []string{}}
}

func TestHotels_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params search.HotelParams
	}{
		{"missing city", search.HotelParams{CheckIn: "2026-12-01", CheckOut: "2026-12-03"}},
		{"missing checkIn", search.HotelParams{City: "PAR", CheckOut: "2026-12-03"}},
		{"missing checkOut", search.HotelParams{City: "PAR", CheckIn: "2026-12-01"}},
		{"checkOut before checkIn", search.HotelParams{City: "PAR", CheckIn: "2026-12-03", CheckOut: "2026-12-01"}},
		{"bad checkIn", search.HotelParams{City: "PAR", CheckIn: "tomorrow", CheckOut: "2026-12-03"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{}
			_, err := newHotels(t, client).Search(context.Background(), tt.params)
			assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
			assert.Zero(t, client.hotelCalls.Load())
		})
	}
}

func TestHotels_ZeroResultsEnvelope(t *testing.T) {
	tests := []struct {
		name string
		fn   func(q providers.HotelQuery) ([]types.HotelOffer, error)
	}{
		{"upstream not found", func(q providers.HotelQuery) ([]types.HotelOffer, error) {
			return nil, apperr.NotFoundUpstream("amadeus: nothing found for requested city")
		}},
		{"empty list", func(q providers.HotelQuery) ([]types.HotelOffer, error) { return nil, nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newHotels(t, &mockClient{hotels: tt.fn}).Search(context.Background(), search.HotelParams{
				City: "par", CheckIn: "2026-12-01", CheckOut: "2026-12-03",
			})
			require.NoError(t, err)
			assert.NotNil(t, res.Hotels)
			assert.Empty(t, res.Hotels)
			assert.Equal(t, search.MsgNoHotels, res.Message)
			assert.Equal(t, types.HotelMeta{CityCode: "PAR", CheckInDate: "2026-12-01", CheckOutDate: "2026-12-03"}, res.Meta)
		})
	}
}

func TestHotels_ResolvesCityNames(t *testing.T) {
	client := &mockClient{
		locations: func(q providers.LocationQuery) ([]types.Location, error) {
			assert.Equal(t, types.KindCity, q.Kind)
			return []types.Location{{Code: "LIS", Name: "Lisbon", CityName: "Lisbon", Kind: types.KindCity}}, nil
		},
		hotels: func(q providers.HotelQuery) ([]types.HotelOffer, error) {
			return []types.HotelOffer{hotel("b", 180), hotel("a", 95)}, nil
		},
	}

	res, err := newHotels(t, client).Search(context.Background(), search.HotelParams{
		City: "Lisbon, Portugal", CheckIn: "2026-12-01", CheckOut: "2026-12-03",
	})
	require.NoError(t, err)
	assert.Equal(t, "LIS", res.Meta.CityCode)
	assert.Empty(t, res.Message)
	require.Len(t, res.Hotels, 2)
	assert.Equal(t, "a", res.Hotels[0].ID, "sorted by price")

	require.Len(t, client.hotelQueries, 1)
	q := client.hotelQueries[0]
	assert.Equal(t, "LIS", q.CityCode)
	assert.Equal(t, "Lisbon", q.CityName)
	assert.Equal(t, 1, q.Adults)
	assert.Equal(t, 1, q.Rooms)
}

func TestHotels_StaticNameForCodes(t *testing.T) {
	client := &mockClient{}
	_, err := newHotels(t, client).Search(context.Background(), search.HotelParams{
		City: "par", CheckIn: "2026-12-01", CheckOut: "2026-12-03", Adults: 2,
	})
	require.NoError(t, err)
	require.Len(t, client.hotelQueries, 1)
	assert.Equal(t, "PAR", client.hotelQueries[0].CityCode)
	assert.Equal(t, "Paris", client.hotelQueries[0].CityName)
	assert.Equal(t, 2, client.hotelQueries[0].Adults)
	assert.Zero(t, client.locationCalls.Load())
}

func TestHotels_CityNotFound(t *testing.T) {
	tests := []struct {
		name string
		fn   func(q providers.LocationQuery) ([]types.Location, error)
	}{
		{"no match", func(q providers.LocationQuery) ([]types.Location, error) { return nil, nil }},
		{"lookup failed", func(q providers.LocationQuery) ([]types.Location, error) { return nil, errors.New("timeout") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{locations: tt.fn}
			res, err := newHotels(t, client).Search(context.Background(), search.HotelParams{
				City: "Atlantis", CheckIn: "2026-12-01", CheckOut: "2026-12-03",
			})
			require.NoError(t, err)
			assert.Empty(t, res.Hotels)
			assert.Equal(t, search.MsgCityNotFound, res.Message)
			assert.Zero(t, client.hotelCalls.Load())
		})
	}
}

func TestHotels_UpstreamErrorPropagates(t *testing.T) {
	client := &mockClient{
		hotels: func(q providers.HotelQuery) ([]types.HotelOffer, error) {
			return nil, apperr.UpstreamAuth("amadeus rejected the access token", 401, nil)
		},
	}

	_, err := newHotels(t, client).Search(context.Background(), search.HotelParams{
		City: "PAR", CheckIn: "2026-12-01", CheckOut: "2026-12-03",
	})
	assert.ErrorIs(t, err, apperr.ErrUpstreamAuth)
	assert.Equal(t, 500, apperr.HTTPStatus(err))
}
