package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/alex-user-go/travelgw/internal/apperr"
	"github.com/alex-user-go/travelgw/internal/obs"
	"github.com/alex-user-go/travelgw/internal/providers"
	"github.com/alex-user-go/travelgw/internal/search/types"
)

// cityAirports maps metropolitan city codes to their main airport for
// providers that only search airport codes.
var cityAirports = map[string]string{
	"LON": "LHR",
	"NYC": "JFK",
	"PAR": "CDG",
	"TYO": "HND",
	"ROM": "FCO",
	"MIL": "MXP",
	"WAS": "IAD",
	"CHI": "ORD",
	"MOW": "SVO",
	"STO": "ARN",
	"OSA": "KIX",
	"SAO": "GRU",
	"BUE": "EZE",
	"SEL": "ICN",
	"RIO": "GIG",
	"YTO": "YYZ",
	"YMQ": "YUL",
	"BJS": "PEK",
	"JKT": "CGK",
	"REK": "KEF",
	"BUH": "OTP",
	"DTT": "DTW",
	"QDF": "DFW",
	"HOU": "IAH",
}

// AirportFor returns the main airport for a city code, or code unchanged.
func AirportFor(code string) string {
	if airport, ok := cityAirports[code]; ok {
		return airport
	}
	return code
}

// FlightParams are the user-facing flight search inputs.
type FlightParams struct {
	From       string
	To         string
	Date       string
	ReturnDate string
	Adults     int
	Cabin      string
	Currency   string
}

// Flights serves flight offers and fare inspiration.
type Flights struct {
	client  providers.Client
	metrics *obs.Metrics
	logger  *slog.Logger
}

// NewFlights creates the flight search service.
func NewFlights(client providers.Client, metrics *obs.Metrics, logger *slog.Logger) *Flights {
	return &Flights{
		client:  client,
		metrics: metrics,
		logger:  logger,
	}
}

// Offers validates p and searches the provider. An upstream "nothing found"
// is an empty result, not an error.
func (s *Flights) Offers(ctx context.Context, p FlightParams) (*types.FlightResult, error) {
	q, err := s.buildQuery(p)
	if err != nil {
		return nil, err
	}

	res, err := s.client.SearchFlights(ctx, q)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFoundUpstream) {
			return &types.FlightResult{Offers: []types.FlightOffer{}, Carriers: map[string]string{}}, nil
		}
		s.metrics.IncProviderErrors()
		s.logger.Error("flight search failed",
			"provider", s.client.Name(),
			"origin", q.Origin,
			"destination", q.Destination,
			"date", q.Date,
			"error", err,
		)
		return nil, err
	}

	if res.Offers == nil {
		res.Offers = []types.FlightOffer{}
	}
	if res.Carriers == nil {
		res.Carriers = map[string]string{}
	}
	return res, nil
}

func (s *Flights) buildQuery(p FlightParams) (providers.FlightQuery, error) {
	from := strings.ToUpper(strings.TrimSpace(p.From))
	to := strings.ToUpper(strings.TrimSpace(p.To))
	date := strings.TrimSpace(p.Date)

	if from == "" || to == "" || date == "" {
		return providers.FlightQuery{}, apperr.InvalidRequest("missing required params: from, to, date")
	}
	if !types.IsIATACode(from) || !types.IsIATACode(to) {
		return providers.FlightQuery{}, apperr.InvalidRequest("from and to must be 3-letter IATA codes")
	}
	departure, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return providers.FlightQuery{}, apperr.InvalidRequest("date must be in YYYY-MM-DD format")
	}
	if p.ReturnDate != "" {
		ret, err := time.Parse(time.DateOnly, p.ReturnDate)
		if err != nil {
			return providers.FlightQuery{}, apperr.InvalidRequest("returnDate must be in YYYY-MM-DD format")
		}
		if ret.Before(departure) {
			return providers.FlightQuery{}, apperr.InvalidRequest("returnDate must not be before date")
		}
	}
	if p.Adults < 0 {
		return providers.FlightQuery{}, apperr.InvalidRequest("adults must be a positive integer")
	}

	if !s.client.NativeCityCodes() {
		from, to = AirportFor(from), AirportFor(to)
	}

	return providers.FlightQuery{
		Origin:      from,
		Destination: to,
		Date:        date,
		ReturnDate:  p.ReturnDate,
		Adults:      max(p.Adults, 1),
		Cabin:       types.ParseCabinClass(p.Cabin),
		Currency:    p.Currency,
	}, nil
}

// Destinations lists the cheapest destinations from origin. Provider failures
// produce an empty list.
func (s *Flights) Destinations(ctx context.Context, origin string, maxPrice int) ([]types.FlightOffer, error) {
	origin = strings.ToUpper(strings.TrimSpace(origin))
	if !types.IsIATACode(origin) {
		return nil, apperr.InvalidRequest("origin must be a 3-letter IATA code")
	}
	insp, ok := s.client.(providers.InspirationSearcher)
	if !ok {
		return []types.FlightOffer{}, nil
	}

	offers, err := insp.FlightDestinations(ctx, providers.InspirationQuery{Origin: origin, MaxPrice: maxPrice})
	if err != nil {
		s.softFail("flight destinations", err, "origin", origin)
		return []types.FlightOffer{}, nil
	}
	return nonNil(offers), nil
}

// Dates lists the cheapest departure dates for a route.
func (s *Flights) Dates(ctx context.Context, from, to string) ([]types.FlightOffer, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if !types.IsIATACode(from) || !types.IsIATACode(to) {
		return nil, apperr.InvalidRequest("from and to must be 3-letter IATA codes")
	}
	insp, ok := s.client.(providers.InspirationSearcher)
	if !ok {
		return []types.FlightOffer{}, nil
	}

	offers, err := insp.FlightDates(ctx, providers.InspirationQuery{Origin: from, Destination: to})
	if err != nil {
		s.softFail("flight dates", err, "origin", from, "destination", to)
		return []types.FlightOffer{}, nil
	}
	return nonNil(offers), nil
}

func (s *Flights) softFail(op string, err error, attrs ...any) {
	if errors.Is(err, apperr.ErrNotFoundUpstream) {
		return
	}
	s.metrics.IncProviderErrors()
	s.logger.Warn(op+" failed, returning empty list",
		append([]any{"provider", s.client.Name(), "error", err}, attrs...)...)
}
