package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alex-user-go/travelgw/internal/apperr"
	"github.com/alex-user-go/travelgw/internal/obs"
	"github.com/alex-user-go/travelgw/internal/search/types"
)

// Amadeus base URLs.
const (
	AmadeusTestURL       = "https://test.api.amadeus.com"
	AmadeusProductionURL = "https://api.amadeus.com"
)

// Amadeus error codes that mean "no data for this query".
const (
	amadeusNothingFoundForCity = 895
	amadeusNoRoomsAvailable    = 3664
	amadeusNoFaresFound        = 6003
)

const amadeusMaxHotelIDs = 20

var amadeusCabins = map[types.CabinClass]string{
	types.CabinEconomy:        "ECONOMY",
	types.CabinPremiumEconomy: "PREMIUM_ECONOMY",
	types.CabinBusiness:       "BUSINESS",
	types.CabinFirst:          "FIRST",
}

// AmadeusConfig configures the Amadeus client.
type AmadeusConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenMargin  time.Duration
	Timeout      time.Duration
}

// Amadeus is the Amadeus Self-Service API client.
type Amadeus struct {
	tokens    *TokenSource
	transport *httpTransport
	logger    *slog.Logger
}

// NewAmadeus creates an Amadeus client with its own token cache.
func NewAmadeus(cfg AmadeusConfig, metrics *obs.Metrics, logger *slog.Logger) *Amadeus {
	if cfg.BaseURL == "" {
		cfg.BaseURL = AmadeusTestURL
	}
	a := &Amadeus{
		tokens: NewTokenSource(TokenConfig{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			BaseURL:      cfg.BaseURL,
			Margin:       cfg.TokenMargin,
			Timeout:      cfg.Timeout,
		}, metrics, logger),
		logger: logger,
	}
	a.transport = newHTTPTransport(NameAmadeus, cfg.BaseURL, cfg.Timeout, a.classify)
	return a
}

// Name returns the provider name.
func (a *Amadeus) Name() string {
	return NameAmadeus
}

// NativeCityCodes is true: flight-offers accepts LON, NYC and friends.
func (a *Amadeus) NativeCityCodes() bool {
	return true
}

// Tokens exposes the token cache.
func (a *Amadeus) Tokens() *TokenSource {
	return a.tokens
}

type amadeusErrors struct {
	Errors []struct {
		Status int    `json:"status"`
		Code   int    `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (a *Amadeus) classify(status int, body []byte) error {
	// A rejected token is dropped whatever the body looks like.
	if status == http.StatusUnauthorized {
		a.tokens.Invalidate()
	}
	var payload amadeusErrors
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Errors) == 0 {
		return nil
	}
	first := payload.Errors[0]
	switch first.Code {
	case amadeusNothingFoundForCity, amadeusNoRoomsAvailable, amadeusNoFaresFound:
		return apperr.NotFoundUpstream("amadeus: %s", strings.ToLower(first.Title))
	}
	if status == http.StatusUnauthorized {
		return apperr.UpstreamAuth("amadeus rejected the access token", status, fmt.Errorf("%d %s", first.Code, first.Title))
	}
	msg := first.Detail
	if msg == "" {
		msg = first.Title
	}
	return apperr.UpstreamRequest("amadeus: "+msg, status, fmt.Errorf("code %d", first.Code))
}

func (a *Amadeus) get(ctx context.Context, path string, query url.Values, out any) error {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	return a.transport.getJSON(ctx, path, query, header, out)
}

// SearchLocations looks up airports or cities by keyword.
func (a *Amadeus) SearchLocations(ctx context.Context, q LocationQuery) ([]types.Location, error) {
	subType := "AIRPORT,CITY"
	if q.Kind != "" {
		subType = string(q.Kind)
	}
	query := url.Values{}
	query.Set("subType", subType)
	query.Set("keyword", q.Keyword)
	query.Set("page[limit]", strconv.Itoa(orDefault(q.Limit, 10)))
	query.Set("view", "LIGHT")

	var resp struct {
		Data []struct {
			SubType  string `json:"subType"`
			Name     string `json:"name"`
			IATACode string `json:"iataCode"`
			Address  struct {
				CityName    string `json:"cityName"`
				CountryName string `json:"countryName"`
			} `json:"address"`
		} `json:"data"`
	}
	if err := a.get(ctx, "/v1/reference-data/locations", query, &resp); err != nil {
		return nil, err
	}

	locations := make([]types.Location, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.IATACode == "" {
			continue
		}
		locations = append(locations, types.Location{
			Code:        d.IATACode,
			Name:        titleCase(d.Name),
			CityName:    titleCase(d.Address.CityName),
			CountryName: titleCase(d.Address.CountryName),
			Kind:        types.LocationKind(d.SubType),
		})
	}
	return locations, nil
}

type amadeusSegment struct {
	Departure struct {
		IATACode string `json:"iataCode"`
		At       string `json:"at"`
	} `json:"departure"`
	Arrival struct {
		IATACode string `json:"iataCode"`
		At       string `json:"at"`
	} `json:"arrival"`
	CarrierCode string `json:"carrierCode"`
	Number      string `json:"number"`
	Duration    string `json:"duration"`
}

type amadeusOffer struct {
	ID          string `json:"id"`
	Itineraries []struct {
		Duration string           `json:"duration"`
		Segments []amadeusSegment `json:"segments"`
	} `json:"itineraries"`
	Price struct {
		Currency   string `json:"currency"`
		Total      string `json:"total"`
		GrandTotal string `json:"grandTotal"`
	} `json:"price"`
	ValidatingAirlineCodes []string `json:"validatingAirlineCodes"`
	TravelerPricings       []struct {
		FareDetailsBySegment []struct {
			Cabin string `json:"cabin"`
		} `json:"fareDetailsBySegment"`
	} `json:"travelerPricings"`
}

// SearchFlights queries flight-offers.
func (a *Amadeus) SearchFlights(ctx context.Context, q FlightQuery) (*types.FlightResult, error) {
	query := url.Values{}
	query.Set("originLocationCode", q.Origin)
	query.Set("destinationLocationCode", q.Destination)
	query.Set("departureDate", q.Date)
	if q.ReturnDate != "" {
		query.Set("returnDate", q.ReturnDate)
	}
	query.Set("adults", strconv.Itoa(orDefault(q.Adults, 1)))
	query.Set("travelClass", amadeusCabins[types.ParseCabinClass(string(q.Cabin))])
	query.Set("currencyCode", currencyOrUSD(q.Currency))
	query.Set("max", strconv.Itoa(orDefault(q.Max, 20)))

	var resp struct {
		Data         []amadeusOffer `json:"data"`
		Dictionaries struct {
			Carriers map[string]string `json:"carriers"`
		} `json:"dictionaries"`
	}
	if err := a.get(ctx, "/v2/shopping/flight-offers", query, &resp); err != nil {
		return nil, err
	}

	offers := make([]types.FlightOffer, 0, len(resp.Data))
	for _, o := range resp.Data {
		offer, ok := a.normalizeOffer(o, q)
		if !ok {
			continue
		}
		offers = append(offers, offer)
	}

	carriers := resp.Dictionaries.Carriers
	if carriers == nil {
		carriers = map[string]string{}
	}
	return &types.FlightResult{Offers: offers, Carriers: carriers}, nil
}

func (a *Amadeus) normalizeOffer(o amadeusOffer, q FlightQuery) (types.FlightOffer, bool) {
	if len(o.Itineraries) == 0 || len(o.Itineraries[0].Segments) == 0 {
		return types.FlightOffer{}, false
	}

	rawPrice := o.Price.GrandTotal
	if rawPrice == "" {
		rawPrice = o.Price.Total
	}
	price, err := types.ParsePrice(rawPrice)
	if err != nil {
		a.logger.Debug("dropping amadeus offer with bad price", "id", o.ID, "price", rawPrice)
		return types.FlightOffer{}, false
	}

	outbound := o.Itineraries[0]
	first := outbound.Segments[0]
	last := outbound.Segments[len(outbound.Segments)-1]

	var segments []types.Segment
	for _, it := range o.Itineraries {
		for _, s := range it.Segments {
			minutes, _ := types.ParseISODuration(s.Duration)
			segments = append(segments, types.Segment{
				DepartureAirport: s.Departure.IATACode,
				ArrivalAirport:   s.Arrival.IATACode,
				DepartureTime:    s.Departure.At,
				ArrivalTime:      s.Arrival.At,
				CarrierCode:      s.CarrierCode,
				FlightNumber:     s.CarrierCode + s.Number,
				DurationMinutes:  minutes,
			})
		}
	}

	minutes, err := types.ParseISODuration(outbound.Duration)
	if err != nil {
		minutes = sumSegmentMinutes(segments[:len(outbound.Segments)])
	}

	offer := types.FlightOffer{
		ID:              o.ID,
		Origin:          first.Departure.IATACode,
		Destination:     last.Arrival.IATACode,
		DepartureDate:   datePart(first.Departure.At),
		PriceTotal:      price,
		Currency:        currencyOrUSD(firstNonEmpty(o.Price.Currency, q.Currency)),
		Duration:        types.FormatISODuration(minutes),
		DurationMinutes: minutes,
		Stops:           len(outbound.Segments) - 1,
		CabinClass:      string(types.ParseCabinClass(string(q.Cabin))),
		Itinerary:       segments,
	}
	if len(o.Itineraries) > 1 && len(o.Itineraries[1].Segments) > 0 {
		offer.ReturnDate = datePart(o.Itineraries[1].Segments[0].Departure.At)
	}
	if len(o.ValidatingAirlineCodes) > 0 {
		offer.ValidatingCarrier = o.ValidatingAirlineCodes[0]
	} else {
		offer.ValidatingCarrier = first.CarrierCode
	}
	if len(o.TravelerPricings) > 0 && len(o.TravelerPricings[0].FareDetailsBySegment) > 0 {
		offer.CabinClass = string(types.ParseCabinClass(o.TravelerPricings[0].FareDetailsBySegment[0].Cabin))
	}
	return offer, true
}

// SearchHotels resolves hotel ids for the city, then prices them.
func (a *Amadeus) SearchHotels(ctx context.Context, q HotelQuery) ([]types.HotelOffer, error) {
	listQuery := url.Values{}
	listQuery.Set("cityCode", q.CityCode)
	listQuery.Set("radius", "5")
	listQuery.Set("radiusUnit", "KM")
	listQuery.Set("hotelSource", "ALL")

	var list struct {
		Data []struct {
			HotelID string `json:"hotelId"`
			Name    string `json:"name"`
			Rating  int    `json:"rating"`
		} `json:"data"`
	}
	if err := a.get(ctx, "/v1/reference-data/locations/hotels/by-city", listQuery, &list); err != nil {
		return nil, err
	}
	if len(list.Data) == 0 {
		return nil, apperr.NotFoundUpstream("amadeus: no hotels in %s", q.CityCode)
	}

	ratings := make(map[string]int, len(list.Data))
	ids := make([]string, 0, amadeusMaxHotelIDs)
	for _, h := range list.Data {
		if len(ids) == amadeusMaxHotelIDs {
			break
		}
		ids = append(ids, h.HotelID)
		ratings[h.HotelID] = h.Rating
	}

	offerQuery := url.Values{}
	offerQuery.Set("hotelIds", strings.Join(ids, ","))
	offerQuery.Set("checkInDate", q.CheckIn)
	offerQuery.Set("checkOutDate", q.CheckOut)
	offerQuery.Set("adults", strconv.Itoa(orDefault(q.Adults, 1)))
	offerQuery.Set("roomQuantity", strconv.Itoa(orDefault(q.Rooms, 1)))
	offerQuery.Set("currency", currencyOrUSD(q.Currency))
	offerQuery.Set("bestRateOnly", "true")

	var offers struct {
		Data []struct {
			Hotel struct {
				HotelID  string `json:"hotelId"`
				Name     string `json:"name"`
				CityCode string `json:"cityCode"`
			} `json:"hotel"`
			Available bool `json:"available"`
			Offers    []struct {
				Price struct {
					Total    string `json:"total"`
					Currency string `json:"currency"`
				} `json:"price"`
			} `json:"offers"`
		} `json:"data"`
	}
	if err := a.get(ctx, "/v3/shopping/hotel-offers", offerQuery, &offers); err != nil {
		return nil, err
	}

	hotels := make([]types.HotelOffer, 0, len(offers.Data))
	for _, d := range offers.Data {
		if !d.Available || len(d.Offers) == 0 {
			continue
		}
		price, err := types.ParsePrice(d.Offers[0].Price.Total)
		if err != nil {
			continue
		}
		hotel := types.HotelOffer{
			ID:         d.Hotel.HotelID,
			Name:       titleCase(d.Hotel.Name),
			CityCode:   firstNonEmpty(d.Hotel.CityCode, q.CityCode),
			PriceTotal: price,
			Currency:   currencyOrUSD(firstNonEmpty(d.Offers[0].Price.Currency, q.Currency)),
			Amenities:  []string{},
		}
		if r := ratings[d.Hotel.HotelID]; r > 0 {
			rating := float64(r)
			hotel.Rating = &rating
		}
		hotels = append(hotels, hotel)
	}
	return hotels, nil
}

type amadeusInspiration struct {
	Data []struct {
		Origin        string `json:"origin"`
		Destination   string `json:"destination"`
		DepartureDate string `json:"departureDate"`
		ReturnDate    string `json:"returnDate"`
		Price         struct {
			Total string `json:"total"`
		} `json:"price"`
	} `json:"data"`
	Meta struct {
		Currency string `json:"currency"`
	} `json:"meta"`
}

// FlightDestinations returns the cheapest destinations from an origin.
func (a *Amadeus) FlightDestinations(ctx context.Context, q InspirationQuery) ([]types.FlightOffer, error) {
	query := url.Values{}
	query.Set("origin", q.Origin)
	if q.MaxPrice > 0 {
		query.Set("maxPrice", strconv.Itoa(q.MaxPrice))
	}
	return a.inspiration(ctx, "/v1/shopping/flight-destinations", query)
}

// FlightDates returns the cheapest dates for an origin/destination pair.
func (a *Amadeus) FlightDates(ctx context.Context, q InspirationQuery) ([]types.FlightOffer, error) {
	query := url.Values{}
	query.Set("origin", q.Origin)
	query.Set("destination", q.Destination)
	return a.inspiration(ctx, "/v1/shopping/flight-dates", query)
}

func (a *Amadeus) inspiration(ctx context.Context, path string, query url.Values) ([]types.FlightOffer, error) {
	var resp amadeusInspiration
	if err := a.get(ctx, path, query, &resp); err != nil {
		return nil, err
	}

	offers := make([]types.FlightOffer, 0, len(resp.Data))
	for i, d := range resp.Data {
		price, err := types.ParsePrice(d.Price.Total)
		if err != nil {
			continue
		}
		offers = append(offers, types.FlightOffer{
			ID:            fmt.Sprintf("%s-%s-%d", d.Origin, d.Destination, i),
			Origin:        d.Origin,
			Destination:   d.Destination,
			DepartureDate: d.DepartureDate,
			ReturnDate:    d.ReturnDate,
			PriceTotal:    price,
			Currency:      currencyOrUSD(resp.Meta.Currency),
			Itinerary:     []types.Segment{},
		})
	}
	return offers, nil
}
