package search

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/alex-user-go/travelgw/internal/apperr"
	"github.com/alex-user-go/travelgw/internal/obs"
	"github.com/alex-user-go/travelgw/internal/providers"
	"github.com/alex-user-go/travelgw/internal/search/types"
)

// Messages attached to empty hotel results.
const (
	MsgCityNotFound = "City not found"
	MsgNoHotels     = "No hotels found"
)

var errCityNotFound = errors.New("city not found")

// HotelParams are the user-facing hotel search inputs. City may be a
// 3-letter code or a city name.
type HotelParams struct {
	City     string
	CheckIn  string
	CheckOut string
	Adults   int
	Rooms    int
	Currency string
}

// Hotels serves hotel offers.
type Hotels struct {
	client    providers.Client
	locations *Locations
	metrics   *obs.Metrics
	logger    *slog.Logger
}

// NewHotels creates the hotel search service. locations resolves city names.
func NewHotels(client providers.Client, locations *Locations, metrics *obs.Metrics, logger *slog.Logger) *Hotels {
	return &Hotels{
		client:    client,
		locations: locations,
		metrics:   metrics,
		logger:    logger,
	}
}

// Search validates p, resolves the city and returns offers sorted by price.
// Unknown cities and empty upstream results are successful empty results
// with a message.
func (s *Hotels) Search(ctx context.Context, p HotelParams) (*types.HotelResult, error) {
	city := strings.TrimSpace(p.City)
	if city == "" || p.CheckIn == "" || p.CheckOut == "" {
		return nil, apperr.InvalidRequest("missing required params: city, checkIn, checkOut")
	}
	in, err := time.Parse(time.DateOnly, p.CheckIn)
	if err != nil {
		return nil, apperr.InvalidRequest("checkIn must be in YYYY-MM-DD format")
	}
	out, err := time.Parse(time.DateOnly, p.CheckOut)
	if err != nil {
		return nil, apperr.InvalidRequest("checkOut must be in YYYY-MM-DD format")
	}
	if !out.After(in) {
		return nil, apperr.InvalidRequest("checkOut must be after checkIn")
	}
	if p.Adults < 0 || p.Rooms < 0 {
		return nil, apperr.InvalidRequest("adults and rooms must be positive integers")
	}

	result := &types.HotelResult{
		Hotels: []types.HotelOffer{},
		Meta:   types.HotelMeta{CityCode: strings.ToUpper(city), CheckInDate: p.CheckIn, CheckOutDate: p.CheckOut},
	}

	loc, err := s.resolveCity(ctx, city)
	if err != nil {
		s.logger.Info("hotel city not resolved", "city", city, "error", err)
		result.Message = MsgCityNotFound
		return result, nil
	}
	result.Meta.CityCode = loc.Code

	hotels, err := s.client.SearchHotels(ctx, providers.HotelQuery{
		CityCode: loc.Code,
		CityName: firstNonEmpty(loc.CityName, loc.Name),
		CheckIn:  p.CheckIn,
		CheckOut: p.CheckOut,
		Adults:   max(p.Adults, 1),
		Rooms:    max(p.Rooms, 1),
		Currency: p.Currency,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFoundUpstream) {
			result.Message = MsgNoHotels
			return result, nil
		}
		s.metrics.IncProviderErrors()
		s.logger.Error("hotel search failed",
			"provider", s.client.Name(),
			"city", loc.Code,
			"check_in", p.CheckIn,
			"error", err,
		)
		return nil, err
	}

	if len(hotels) == 0 {
		result.Message = MsgNoHotels
		return result, nil
	}
	slices.SortStableFunc(hotels, func(a, b types.HotelOffer) int {
		return cmp.Compare(a.PriceTotal, b.PriceTotal)
	})
	result.Hotels = hotels
	return result, nil
}

// resolveCity turns input into a location with a 3-letter code. Codes pass
// through; names go to the provider.
func (s *Hotels) resolveCity(ctx context.Context, city string) (types.Location, error) {
	if types.IsIATACode(city) {
		code := strings.ToUpper(city)
		loc := types.Location{Code: code, Kind: types.KindCity}
		for _, l := range s.locations.static.Match(types.KindCity, code) {
			if l.Code == code {
				loc = l
				break
			}
		}
		return loc, nil
	}
	return s.locations.ResolveCity(ctx, city)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
