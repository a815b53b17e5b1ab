package providers

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/alex-user-go/travelgw/internal/apperr"
	"github.com/alex-user-go/travelgw/internal/search/types"
)

var fakeLocations = []types.Location{
	{Code: "LHR", Name: "Heathrow", CityName: "London", CountryName: "United Kingdom", Kind: types.KindAirport},
	{Code: "LGW", Name: "Gatwick", CityName: "London", CountryName: "United Kingdom", Kind: types.KindAirport},
	{Code: "LON", Name: "London", CityName: "London", CountryName: "United Kingdom", Kind: types.KindCity},
	{Code: "CDG", Name: "Charles de Gaulle", CityName: "Paris", CountryName: "France", Kind: types.KindAirport},
	{Code: "PAR", Name: "Paris", CityName: "Paris", CountryName: "France", Kind: types.KindCity},
	{Code: "DXB", Name: "Dubai International", CityName: "Dubai", CountryName: "United Arab Emirates", Kind: types.KindAirport},
	{Code: "DXB", Name: "Dubai", CityName: "Dubai", CountryName: "United Arab Emirates", Kind: types.KindCity},
	{Code: "JFK", Name: "John F. Kennedy", CityName: "New York", CountryName: "United States", Kind: types.KindAirport},
	{Code: "NYC", Name: "New York", CityName: "New York", CountryName: "United States", Kind: types.KindCity},
}

var fakeHotelNames = []string{"Grand Plaza", "Riverside Inn", "City Lights Hotel", "Harbour View", "The Meridian", "Old Town Suites"}

// Fake is an offline client that derives stable prices from the query.
type Fake struct{}

// NewFake creates a Fake client.
func NewFake() *Fake {
	return &Fake{}
}

// Name returns the provider name.
func (f *Fake) Name() string {
	return NameFake
}

// NativeCityCodes reports true so demos exercise city codes directly.
func (f *Fake) NativeCityCodes() bool {
	return true
}

// SearchLocations matches the built-in list by code, name or city.
func (f *Fake) SearchLocations(_ context.Context, q LocationQuery) ([]types.Location, error) {
	kw := strings.ToLower(q.Keyword)
	var out []types.Location
	for _, l := range fakeLocations {
		if q.Kind != "" && l.Kind != q.Kind {
			continue
		}
		if strings.Contains(strings.ToLower(l.Code), kw) ||
			strings.Contains(strings.ToLower(l.Name), kw) ||
			strings.Contains(strings.ToLower(l.CityName), kw) {
			out = append(out, l)
		}
	}
	return out, nil
}

// SearchFlights returns three offers whose prices depend only on the route.
func (f *Fake) SearchFlights(_ context.Context, q FlightQuery) (*types.FlightResult, error) {
	if q.Origin == q.Destination {
		return nil, apperr.NotFoundUpstream("fake: origin equals destination")
	}
	base := float64(80 + seed(q.Origin, q.Destination)%600)
	cabin := types.ParseCabinClass(string(q.Cabin))

	offers := make([]types.FlightOffer, 0, 3)
	for i := range 3 {
		minutes := 90 + int(seed(q.Destination, q.Origin)%600) + i*45
		dep := q.Date + "T08:00:00"
		arr := addMinutes(q.Date, 8*60+minutes)
		offers = append(offers, types.FlightOffer{
			ID:                fmt.Sprintf("fake-%s-%s-%d", q.Origin, q.Destination, i+1),
			Origin:            q.Origin,
			Destination:       q.Destination,
			DepartureDate:     q.Date,
			ReturnDate:        q.ReturnDate,
			PriceTotal:        base + float64(i)*37.5,
			Currency:          currencyOrUSD(q.Currency),
			Duration:          types.FormatISODuration(minutes),
			DurationMinutes:   minutes,
			Stops:             i,
			CabinClass:        string(cabin),
			ValidatingCarrier: "FK",
			Itinerary: []types.Segment{{
				DepartureAirport: q.Origin,
				ArrivalAirport:   q.Destination,
				DepartureTime:    dep,
				ArrivalTime:      arr,
				CarrierCode:      "FK",
				FlightNumber:     fmt.Sprintf("FK%d", 100+i),
				DurationMinutes:  minutes,
			}},
		})
	}
	return &types.FlightResult{Offers: offers, Carriers: map[string]string{"FK": "Fake Air"}}, nil
}

// SearchHotels returns one offer per built-in hotel name.
func (f *Fake) SearchHotels(_ context.Context, q HotelQuery) ([]types.HotelOffer, error) {
	hotels := make([]types.HotelOffer, 0, len(fakeHotelNames))
	for i, name := range fakeHotelNames {
		rating := float64(3 + i%3)
		hotels = append(hotels, types.HotelOffer{
			ID:         fmt.Sprintf("fake-%s-%d", q.CityCode, i+1),
			Name:       name,
			CityCode:   q.CityCode,
			PriceTotal: float64(60 + seed(q.CityCode, name)%340),
			Currency:   currencyOrUSD(q.Currency),
			Rating:     &rating,
			Reviews:    100 + i*17,
			Amenities:  []string{"wifi"},
		})
	}
	return hotels, nil
}

// FlightDestinations returns a fixed fan of destinations under maxPrice.
func (f *Fake) FlightDestinations(ctx context.Context, q InspirationQuery) ([]types.FlightOffer, error) {
	var out []types.FlightOffer
	for _, dest := range []string{"LHR", "CDG", "JFK", "IST"} {
		if dest == q.Origin {
			continue
		}
		res, err := f.SearchFlights(ctx, FlightQuery{Origin: q.Origin, Destination: dest, Date: time.Now().AddDate(0, 1, 0).Format(time.DateOnly)})
		if err != nil {
			return nil, err
		}
		if len(res.Offers) == 0 {
			continue
		}
		cheapest := res.Offers[0]
		if q.MaxPrice > 0 && cheapest.PriceTotal > float64(q.MaxPrice) {
			continue
		}
		out = append(out, cheapest)
	}
	return out, nil
}

// FlightDates returns the route price on a few upcoming dates.
func (f *Fake) FlightDates(ctx context.Context, q InspirationQuery) ([]types.FlightOffer, error) {
	var out []types.FlightOffer
	for week := range 4 {
		date := time.Now().AddDate(0, 0, 7*(week+1)).Format(time.DateOnly)
		res, err := f.SearchFlights(ctx, FlightQuery{Origin: q.Origin, Destination: q.Destination, Date: date})
		if err != nil {
			return nil, err
		}
		offer := res.Offers[0]
		offer.PriceTotal += float64(week * 10)
		out = append(out, offer)
	}
	return out, nil
}

func seed(parts ...string) uint32 {
	h := fnv.New32a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
	}
	return h.Sum32()
}

func addMinutes(date string, minutes int) string {
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return ""
	}
	return d.Add(time.Duration(minutes) * time.Minute).Format("2006-01-02T15:04:05")
}
