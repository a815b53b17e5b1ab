package search_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alex-user-go/travelgw/internal/obs"
	"github.com/alex-user-go/travelgw/internal/providers"
	"github.com/alex-user-go/travelgw/internal/search/types"
)

// mockClient is a providers.Client whose behaviour is set per test.
type mockClient struct {
	native    bool
	locations func(q providers.LocationQuery) ([]types.Location, error)
	flights   func(q providers.FlightQuery) (*types.FlightResult, error)
	hotels    func(q providers.HotelQuery) ([]types.HotelOffer, error)

	locationCalls atomic.Int32
	flightCalls   atomic.Int32
	hotelCalls    atomic.Int32

	mu            sync.Mutex
	flightQueries []providers.FlightQuery
	hotelQueries  []providers.HotelQuery
}

func (m *mockClient) Name() string { return "mock" }

func (m *mockClient) NativeCityCodes() bool { return m.native }

func (m *mockClient) SearchLocations(_ context.Context, q providers.LocationQuery) ([]types.Location, error) {
	m.locationCalls.Add(1)
	if m.locations == nil {
		return nil, nil
	}
	return m.locations(q)
}

func (m *mockClient) SearchFlights(_ context.Context, q providers.FlightQuery) (*types.FlightResult, error) {
	m.flightCalls.Add(1)
	m.mu.Lock()
	m.flightQueries = append(m.flightQueries, q)
	m.mu.Unlock()
	if m.flights == nil {
		return &types.FlightResult{}, nil
	}
	return m.flights(q)
}

func (m *mockClient) SearchHotels(_ context.Context, q providers.HotelQuery) ([]types.HotelOffer, error) {
	m.hotelCalls.Add(1)
	m.mu.Lock()
	m.hotelQueries = append(m.hotelQueries, q)
	m.mu.Unlock()
	if m.hotels == nil {
		return nil, nil
	}
	return m.hotels(q)
}

// inspirationClient adds the optional inspiration endpoints.
type inspirationClient struct {
	*mockClient
	destinations func(q providers.InspirationQuery) ([]types.FlightOffer, error)
}

func (c *inspirationClient) FlightDestinations(_ context.Context, q providers.InspirationQuery) ([]types.FlightOffer, error) {
	return c.destinations(q)
}

func (c *inspirationClient) FlightDates(_ context.Context, q providers.InspirationQuery) ([]types.FlightOffer, error) {
	return c.destinations(q)
}

func testDeps() (*obs.Metrics, *slog.Logger) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return obs.NewMetrics(logger), logger
}

func offer(origin, dest string, price float64) types.FlightOffer {
	return types.FlightOffer{
		ID:          origin + "-" + dest,
		Origin:      origin,
		Destination: dest,
		PriceTotal:  price,
		Currency:    "USD",
		Itinerary:   []types.Segment{},
	}
}
