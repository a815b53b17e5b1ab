package providers

import (
	"cmp"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alex-user-go/travelgw/internal/apperr"
	"github.com/alex-user-go/travelgw/internal/search/types"
)

// SkyscraperDefaultHost is the RapidAPI host of the Sky Scrapper API.
const SkyscraperDefaultHost = "sky-scrapper.p.rapidapi.com"

var skyscraperCabins = map[types.CabinClass]string{
	types.CabinEconomy:        "economy",
	types.CabinPremiumEconomy: "premium_economy",
	types.CabinBusiness:       "business",
	types.CabinFirst:          "first",
}

// SkyscraperConfig configures the RapidAPI Skyscraper client. BaseURL
// defaults to https://<Host>.
type SkyscraperConfig struct {
	APIKey  string
	Host    string
	BaseURL string
	Timeout time.Duration
}

// Skyscraper is the RapidAPI Sky Scrapper client.
type Skyscraper struct {
	apiKey    string
	host      string
	transport *httpTransport
	logger    *slog.Logger
}

// NewSkyscraper creates a Skyscraper client.
func NewSkyscraper(cfg SkyscraperConfig, logger *slog.Logger) *Skyscraper {
	if cfg.Host == "" {
		cfg.Host = SkyscraperDefaultHost
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://" + cfg.Host
	}
	return &Skyscraper{
		apiKey:    cfg.APIKey,
		host:      cfg.Host,
		transport: newHTTPTransport(NameSkyscraper, cfg.BaseURL, cfg.Timeout, classifySkyscraper),
		logger:    logger,
	}
}

// Name returns the provider name.
func (s *Skyscraper) Name() string {
	return NameSkyscraper
}

// NativeCityCodes is false: searchFlights needs resolvable airport codes.
func (s *Skyscraper) NativeCityCodes() bool {
	return false
}

func classifySkyscraper(status int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Message == "" {
		return nil
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return apperr.UpstreamAuth("rapidapi: "+payload.Message, status, nil)
	}
	return apperr.UpstreamRequest("rapidapi: "+payload.Message, status, nil)
}

func (s *Skyscraper) get(ctx context.Context, path string, query url.Values, out any) error {
	if s.apiKey == "" {
		return apperr.Configuration("RAPIDAPI_KEY is not configured")
	}
	header := http.Header{}
	header.Set("X-RapidAPI-Key", s.apiKey)
	header.Set("X-RapidAPI-Host", s.host)
	return s.transport.getJSON(ctx, path, query, header, out)
}

type skyPlace struct {
	SkyID        string `json:"skyId"`
	EntityID     string `json:"entityId"`
	Presentation struct {
		Title    string `json:"title"`
		Subtitle string `json:"subtitle"`
	} `json:"presentation"`
	Navigation struct {
		EntityType string `json:"entityType"`
	} `json:"navigation"`
}

func (s *Skyscraper) searchAirport(ctx context.Context, query string) ([]skyPlace, error) {
	var resp struct {
		Data []skyPlace `json:"data"`
	}
	if err := s.get(ctx, "/api/v1/flights/searchAirport", url.Values{"query": {query}}, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// SearchLocations uses searchAirport for both airports and cities.
func (s *Skyscraper) SearchLocations(ctx context.Context, q LocationQuery) ([]types.Location, error) {
	places, err := s.searchAirport(ctx, q.Keyword)
	if err != nil {
		return nil, err
	}

	locations := make([]types.Location, 0, len(places))
	for _, p := range places {
		kind := types.LocationKind(p.Navigation.EntityType)
		if q.Kind != "" && kind != q.Kind {
			continue
		}
		if q.Kind == types.KindAirport && !types.IsIATACode(p.SkyID) {
			continue
		}
		city := p.Presentation.Title
		if kind == types.KindAirport {
			city = ""
		}
		locations = append(locations, types.Location{
			Code:        p.SkyID,
			Name:        p.Presentation.Title,
			CityName:    city,
			CountryName: p.Presentation.Subtitle,
			Kind:        kind,
		})
		if q.Limit > 0 && len(locations) == q.Limit {
			break
		}
	}
	return locations, nil
}

// resolve finds the place whose skyId equals code, else the first result.
// A lookup that succeeds with no places returns nil and no error.
func (s *Skyscraper) resolve(ctx context.Context, code string) (*skyPlace, error) {
	places, err := s.searchAirport(ctx, code)
	if err != nil {
		s.logger.Warn("skyscraper location lookup failed", "query", code, "error", err)
		return nil, err
	}
	if len(places) == 0 {
		return nil, nil
	}
	for i := range places {
		if places[i].SkyID == code {
			return &places[i], nil
		}
	}
	return &places[0], nil
}

type skyLeg struct {
	Origin struct {
		DisplayCode string `json:"displayCode"`
	} `json:"origin"`
	Destination struct {
		DisplayCode string `json:"displayCode"`
	} `json:"destination"`
	DurationInMinutes int    `json:"durationInMinutes"`
	StopCount         int    `json:"stopCount"`
	Departure         string `json:"departure"`
	Arrival           string `json:"arrival"`
	Carriers          struct {
		Marketing []struct {
			Name        string `json:"name"`
			AlternateID string `json:"alternateId"`
		} `json:"marketing"`
	} `json:"carriers"`
	Segments []struct {
		Origin struct {
			DisplayCode string `json:"displayCode"`
		} `json:"origin"`
		Destination struct {
			DisplayCode string `json:"displayCode"`
		} `json:"destination"`
		Departure         string `json:"departure"`
		Arrival           string `json:"arrival"`
		DurationInMinutes int    `json:"durationInMinutes"`
		FlightNumber      string `json:"flightNumber"`
		MarketingCarrier  struct {
			Name        string `json:"name"`
			AlternateID string `json:"alternateId"`
		} `json:"marketingCarrier"`
	} `json:"segments"`
}

type skyFlights struct {
	Data struct {
		Itineraries []struct {
			ID    string `json:"id"`
			Price struct {
				Raw       float64 `json:"raw"`
				Formatted string  `json:"formatted"`
			} `json:"price"`
			Legs []skyLeg `json:"legs"`
		} `json:"itineraries"`
	} `json:"data"`
}

// SearchFlights resolves both endpoints to skyId/entityId pairs, then searches.
func (s *Skyscraper) SearchFlights(ctx context.Context, q FlightQuery) (*types.FlightResult, error) {
	if s.apiKey == "" {
		return nil, apperr.Configuration("RAPIDAPI_KEY is not configured")
	}

	var origin, destination *skyPlace
	var originErr, destErr error
	var wg sync.WaitGroup
	wg.Go(func() { origin, originErr = s.resolve(ctx, q.Origin) })
	wg.Go(func() { destination, destErr = s.resolve(ctx, q.Destination) })
	wg.Wait()

	if err := cmp.Or(originErr, destErr); err != nil {
		return nil, err
	}
	if origin == nil || destination == nil {
		return nil, apperr.InvalidRequest("invalid origin or destination code")
	}

	cabin := types.ParseCabinClass(string(q.Cabin))
	query := url.Values{}
	query.Set("originSkyId", origin.SkyID)
	query.Set("destinationSkyId", destination.SkyID)
	query.Set("originEntityId", origin.EntityID)
	query.Set("destinationEntityId", destination.EntityID)
	query.Set("date", q.Date)
	if q.ReturnDate != "" {
		query.Set("returnDate", q.ReturnDate)
	}
	query.Set("adults", strconv.Itoa(orDefault(q.Adults, 1)))
	query.Set("cabinClass", skyscraperCabins[cabin])
	query.Set("currency", currencyOrUSD(q.Currency))
	query.Set("market", "en-US")
	query.Set("countryCode", "US")

	var resp skyFlights
	if err := s.get(ctx, "/api/v1/flights/searchFlights", query, &resp); err != nil {
		return nil, err
	}

	carriers := map[string]string{}
	offers := make([]types.FlightOffer, 0, len(resp.Data.Itineraries))
	for _, it := range resp.Data.Itineraries {
		if len(it.Legs) == 0 {
			continue
		}
		price := it.Price.Raw
		if price == 0 {
			parsed, err := types.ParsePrice(it.Price.Formatted)
			if err != nil {
				continue
			}
			price = parsed
		}

		var segments []types.Segment
		for _, leg := range it.Legs {
			for _, seg := range leg.Segments {
				code := firstNonEmpty(seg.MarketingCarrier.AlternateID, seg.MarketingCarrier.Name)
				if code != "" {
					carriers[code] = seg.MarketingCarrier.Name
				}
				segments = append(segments, types.Segment{
					DepartureAirport: seg.Origin.DisplayCode,
					ArrivalAirport:   seg.Destination.DisplayCode,
					DepartureTime:    seg.Departure,
					ArrivalTime:      seg.Arrival,
					CarrierCode:      code,
					FlightNumber:     code + seg.FlightNumber,
					DurationMinutes:  seg.DurationInMinutes,
				})
			}
		}

		out := it.Legs[0]
		offer := types.FlightOffer{
			ID:              it.ID,
			Origin:          out.Origin.DisplayCode,
			Destination:     out.Destination.DisplayCode,
			DepartureDate:   datePart(out.Departure),
			PriceTotal:      price,
			Currency:        currencyOrUSD(q.Currency),
			Duration:        types.FormatISODuration(out.DurationInMinutes),
			DurationMinutes: out.DurationInMinutes,
			Stops:           out.StopCount,
			CabinClass:      string(cabin),
			Itinerary:       segments,
		}
		if len(it.Legs) > 1 {
			offer.ReturnDate = datePart(it.Legs[1].Departure)
		}
		if len(out.Carriers.Marketing) > 0 {
			m := out.Carriers.Marketing[0]
			offer.ValidatingCarrier = firstNonEmpty(m.AlternateID, m.Name)
		}
		if offer.Itinerary == nil {
			offer.Itinerary = []types.Segment{}
		}
		offers = append(offers, offer)
	}
	return &types.FlightResult{Offers: offers, Carriers: carriers}, nil
}

type skyDestination struct {
	EntityName string `json:"entityName"`
	EntityID   string `json:"entityId"`
	EntityType string `json:"entityType"`
}

type skyHotels struct {
	Data struct {
		Hotels []struct {
			HotelID     string          `json:"hotelId"`
			Name        string          `json:"name"`
			Stars       float64         `json:"stars"`
			Rating      json.RawMessage `json:"rating"`
			ReviewCount int             `json:"reviewCount"`
			Price       string          `json:"price"`
			HeroImage   string          `json:"heroImage"`
		} `json:"hotels"`
	} `json:"data"`
}

// SearchHotels resolves the destination entity, then lists hotels in it.
func (s *Skyscraper) SearchHotels(ctx context.Context, q HotelQuery) ([]types.HotelOffer, error) {
	var dest struct {
		Data []skyDestination `json:"data"`
	}
	keyword := firstNonEmpty(q.CityName, q.CityCode)
	if err := s.get(ctx, "/api/v1/hotels/searchDestinationOrHotel", url.Values{"query": {keyword}}, &dest); err != nil {
		return nil, err
	}
	if len(dest.Data) == 0 {
		return nil, apperr.NotFoundUpstream("skyscraper: no destination for %q", keyword)
	}
	match := dest.Data[0]
	for _, d := range dest.Data {
		if d.EntityType == string(types.KindCity) {
			match = d
			break
		}
	}

	query := url.Values{}
	query.Set("entityId", match.EntityID)
	query.Set("checkin", q.CheckIn)
	query.Set("checkout", q.CheckOut)
	query.Set("adults", strconv.Itoa(orDefault(q.Adults, 1)))
	query.Set("rooms", strconv.Itoa(orDefault(q.Rooms, 1)))
	query.Set("limit", "20")
	query.Set("currency", currencyOrUSD(q.Currency))
	query.Set("market", "en-US")
	query.Set("countryCode", "US")

	var resp skyHotels
	if err := s.get(ctx, "/api/v1/hotels/searchHotels", query, &resp); err != nil {
		return nil, err
	}

	hotels := make([]types.HotelOffer, 0, len(resp.Data.Hotels))
	for _, h := range resp.Data.Hotels {
		price, err := types.ParsePrice(h.Price)
		if err != nil {
			continue
		}
		hotel := types.HotelOffer{
			ID:         h.HotelID,
			Name:       h.Name,
			CityCode:   strings.ToUpper(q.CityCode),
			PriceTotal: price,
			Currency:   currencyOrUSD(q.Currency),
			Reviews:    h.ReviewCount,
			Amenities:  []string{},
			ImageURL:   h.HeroImage,
		}
		if r := skyRating(h.Stars, h.Rating); r > 0 {
			hotel.Rating = &r
		}
		hotels = append(hotels, hotel)
	}
	return hotels, nil
}

// skyRating prefers stars, then a numeric rating or {"value": n}.
func skyRating(stars float64, raw json.RawMessage) float64 {
	if stars > 0 {
		return stars
	}
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var obj struct {
		Value json.Number `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if v, err := obj.Value.Float64(); err == nil {
			return v
		}
	}
	return 0
}
