package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/alex-user-go/travelgw/internal/apperr"
	"github.com/alex-user-go/travelgw/internal/search/types"
)

// SerpAPIBaseURL is the public SerpApi endpoint.
const SerpAPIBaseURL = "https://serpapi.com"

const (
	serpSearchPath = "/search.json"
	serpNoResults  = "hasn't returned any results"
)

var serpTravelClasses = map[types.CabinClass]string{
	types.CabinEconomy:        "1",
	types.CabinPremiumEconomy: "2",
	types.CabinBusiness:       "3",
	types.CabinFirst:          "4",
}

// SerpAPIConfig configures the SerpApi client.
type SerpAPIConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// SerpAPI is the SerpApi Google Flights / Google Hotels client.
type SerpAPI struct {
	apiKey    string
	transport *httpTransport
	logger    *slog.Logger
}

// NewSerpAPI creates a SerpApi client.
func NewSerpAPI(cfg SerpAPIConfig, logger *slog.Logger) *SerpAPI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = SerpAPIBaseURL
	}
	return &SerpAPI{
		apiKey:    cfg.APIKey,
		transport: newHTTPTransport(NameSerpAPI, cfg.BaseURL, cfg.Timeout, classifySerp),
		logger:    logger,
	}
}

// Name returns the provider name.
func (s *SerpAPI) Name() string {
	return NameSerpAPI
}

// NativeCityCodes is false: Google Flights wants airport codes.
func (s *SerpAPI) NativeCityCodes() bool {
	return false
}

func classifySerp(status int, body []byte) error {
	var payload serpError
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		return nil
	}
	return serpFailure(status, payload.Error)
}

func serpFailure(status int, msg string) error {
	if strings.Contains(msg, serpNoResults) {
		return apperr.NotFoundUpstream("serpapi: %s", msg)
	}
	if status == http.StatusUnauthorized {
		return apperr.UpstreamAuth("serpapi rejected the api key", status, errors.New(msg))
	}
	return apperr.UpstreamRequest("serpapi: "+msg, status, nil)
}

func (s *SerpAPI) search(ctx context.Context, engine string, query url.Values, out serpEnvelope) error {
	if s.apiKey == "" {
		return apperr.Configuration("SERPAPI_KEY is not configured")
	}
	query.Set("engine", engine)
	query.Set("api_key", s.apiKey)
	query.Set("hl", "en")
	query.Set("gl", "us")
	if err := s.transport.getJSON(ctx, serpSearchPath, query, nil, out); err != nil {
		return err
	}
	// SerpApi reports empty searches as a 200 carrying an error string.
	if msg := out.errorMessage(); msg != "" {
		return serpFailure(http.StatusOK, msg)
	}
	return nil
}

type serpEnvelope interface {
	errorMessage() string
}

type serpError struct {
	Error string `json:"error"`
}

func (e *serpError) errorMessage() string {
	return e.Error
}

type serpSuggestions struct {
	serpError
	Suggestions []struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Subtitle string `json:"subtitle"`
		Type     string `json:"type"`
	} `json:"suggestions"`
}

// SearchLocations uses the Google Flights autocomplete engine.
func (s *SerpAPI) SearchLocations(ctx context.Context, q LocationQuery) ([]types.Location, error) {
	query := url.Values{}
	query.Set("q", q.Keyword)

	var resp serpSuggestions
	if err := s.search(ctx, "google_flights_autocomplete", query, &resp); err != nil {
		return nil, err
	}

	locations := make([]types.Location, 0, len(resp.Suggestions))
	for _, item := range resp.Suggestions {
		if item.ID == "" {
			continue
		}
		if q.Kind == types.KindAirport && !types.IsIATACode(item.ID) {
			continue
		}
		city, country := splitSubtitle(item.Subtitle)
		if q.Kind == types.KindCity && city == "" {
			city = item.Title
		}
		locations = append(locations, types.Location{
			Code:        strings.ToUpper(item.ID),
			Name:        item.Title,
			CityName:    city,
			CountryName: country,
			Kind:        q.Kind,
		})
		if q.Limit > 0 && len(locations) == q.Limit {
			break
		}
	}
	return locations, nil
}

// splitSubtitle reads "Paris, France" as city and country. The subtitle is
// display text, so this is a best-effort guess and the only place that
// interprets it.
func splitSubtitle(subtitle string) (city, country string) {
	parts := strings.Split(subtitle, ",")
	city = strings.TrimSpace(parts[0])
	country = strings.TrimSpace(parts[len(parts)-1])
	return city, country
}

type serpFlight struct {
	DepartureAirport struct {
		ID   string `json:"id"`
		Time string `json:"time"`
	} `json:"departure_airport"`
	ArrivalAirport struct {
		ID   string `json:"id"`
		Time string `json:"time"`
	} `json:"arrival_airport"`
	Duration     int    `json:"duration"`
	Airline      string `json:"airline"`
	FlightNumber string `json:"flight_number"`
	TravelClass  string `json:"travel_class"`
}

type serpItinerary struct {
	Flights       []serpFlight `json:"flights"`
	TotalDuration int          `json:"total_duration"`
	Price         json.Number  `json:"price"`
	BookingToken  string       `json:"booking_token"`
}

type serpFlights struct {
	serpError
	BestFlights  []serpItinerary `json:"best_flights"`
	OtherFlights []serpItinerary `json:"other_flights"`
}

// SearchFlights uses the Google Flights engine.
func (s *SerpAPI) SearchFlights(ctx context.Context, q FlightQuery) (*types.FlightResult, error) {
	cabin := types.ParseCabinClass(string(q.Cabin))
	query := url.Values{}
	query.Set("departure_id", q.Origin)
	query.Set("arrival_id", q.Destination)
	query.Set("outbound_date", q.Date)
	if q.ReturnDate != "" {
		query.Set("type", "1")
		query.Set("return_date", q.ReturnDate)
	} else {
		query.Set("type", "2")
	}
	query.Set("adults", strconv.Itoa(orDefault(q.Adults, 1)))
	query.Set("travel_class", serpTravelClasses[cabin])
	query.Set("currency", currencyOrUSD(q.Currency))

	var resp serpFlights
	if err := s.search(ctx, "google_flights", query, &resp); err != nil {
		return nil, err
	}

	all := slices.Concat(resp.BestFlights, resp.OtherFlights)
	offers := make([]types.FlightOffer, 0, len(all))
	carriers := map[string]string{}
	for i, it := range all {
		if len(it.Flights) == 0 {
			continue
		}
		price, err := types.ParsePrice(it.Price.String())
		if err != nil {
			s.logger.Debug("dropping serpapi itinerary without price", "index", i)
			continue
		}

		segments := make([]types.Segment, 0, len(it.Flights))
		for _, f := range it.Flights {
			code := carrierPrefix(f.FlightNumber)
			if code != "" {
				carriers[code] = f.Airline
			}
			segments = append(segments, types.Segment{
				DepartureAirport: f.DepartureAirport.ID,
				ArrivalAirport:   f.ArrivalAirport.ID,
				DepartureTime:    f.DepartureAirport.Time,
				ArrivalTime:      f.ArrivalAirport.Time,
				CarrierCode:      code,
				FlightNumber:     strings.ReplaceAll(f.FlightNumber, " ", ""),
				DurationMinutes:  f.Duration,
			})
		}

		minutes := it.TotalDuration
		if minutes == 0 {
			minutes = sumSegmentMinutes(segments)
		}
		first, last := segments[0], segments[len(segments)-1]
		offers = append(offers, types.FlightOffer{
			ID:                fmt.Sprintf("serp-%d", i+1),
			Origin:            first.DepartureAirport,
			Destination:       last.ArrivalAirport,
			DepartureDate:     datePart(first.DepartureTime),
			ReturnDate:        q.ReturnDate,
			PriceTotal:        price,
			Currency:          currencyOrUSD(q.Currency),
			Duration:          types.FormatISODuration(minutes),
			DurationMinutes:   minutes,
			Stops:             len(segments) - 1,
			CabinClass:        string(cabin),
			ValidatingCarrier: first.CarrierCode,
			Itinerary:         segments,
		})
	}
	return &types.FlightResult{Offers: offers, Carriers: carriers}, nil
}

// carrierPrefix returns "BA" for "BA 117".
func carrierPrefix(flightNumber string) string {
	code, _, ok := strings.Cut(strings.TrimSpace(flightNumber), " ")
	if !ok {
		return ""
	}
	return code
}

type serpHotels struct {
	serpError
	Properties []struct {
		Name          string   `json:"name"`
		PropertyToken string   `json:"property_token"`
		OverallRating float64  `json:"overall_rating"`
		Reviews       int      `json:"reviews"`
		Amenities     []string `json:"amenities"`
		RatePerNight  struct {
			Lowest string `json:"lowest"`
		} `json:"rate_per_night"`
		TotalRate struct {
			Lowest string `json:"lowest"`
		} `json:"total_rate"`
		Images []struct {
			Thumbnail string `json:"thumbnail"`
		} `json:"images"`
	} `json:"properties"`
}

// SearchHotels uses the Google Hotels engine. Google Hotels takes a free
// text query, so the city name is preferred over the code.
func (s *SerpAPI) SearchHotels(ctx context.Context, q HotelQuery) ([]types.HotelOffer, error) {
	query := url.Values{}
	query.Set("q", firstNonEmpty(q.CityName, q.CityCode)+" hotels")
	query.Set("check_in_date", q.CheckIn)
	query.Set("check_out_date", q.CheckOut)
	query.Set("adults", strconv.Itoa(orDefault(q.Adults, 1)))
	query.Set("currency", currencyOrUSD(q.Currency))

	var resp serpHotels
	if err := s.search(ctx, "google_hotels", query, &resp); err != nil {
		return nil, err
	}

	hotels := make([]types.HotelOffer, 0, len(resp.Properties))
	for i, p := range resp.Properties {
		price, err := types.ParsePrice(firstNonEmpty(p.TotalRate.Lowest, p.RatePerNight.Lowest))
		if err != nil {
			continue
		}
		hotel := types.HotelOffer{
			ID:         firstNonEmpty(p.PropertyToken, fmt.Sprintf("serp-hotel-%d", i+1)),
			Name:       p.Name,
			CityCode:   q.CityCode,
			PriceTotal: price,
			Currency:   currencyOrUSD(q.Currency),
			Reviews:    p.Reviews,
			Amenities:  p.Amenities,
		}
		if hotel.Amenities == nil {
			hotel.Amenities = []string{}
		}
		if p.OverallRating > 0 {
			rating := p.OverallRating
			hotel.Rating = &rating
		}
		if len(p.Images) > 0 {
			hotel.ImageURL = p.Images[0].Thumbnail
		}
		hotels = append(hotels, hotel)
	}
	return hotels, nil
}
