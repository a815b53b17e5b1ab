package main

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/alex-user-go/travelgw/internal/search/types"
)

type obj = map[string]any

const amadeusTokenTTL = 1799

// amadeusMock serves the Amadeus self-service endpoints the gateway calls.
type amadeusMock struct {
	market *market
	logger *slog.Logger

	mu     sync.Mutex
	tokens map[string]time.Time
}

func newAmadeusMock(m *market, logger *slog.Logger) *amadeusMock {
	return &amadeusMock{market: m, logger: logger, tokens: map[string]time.Time{}}
}

func (a *amadeusMock) register(r chi.Router) {
	r.Post("/v1/security/oauth2/token", a.token)
	r.Group(func(r chi.Router) {
		r.Use(a.authorize)
		r.Get("/v1/reference-data/locations", a.locations)
		r.Get("/v2/shopping/flight-offers", a.flightOffers)
		r.Get("/v1/reference-data/locations/hotels/by-city", a.hotelList)
		r.Get("/v3/shopping/hotel-offers", a.hotelOffers)
		r.Get("/v1/shopping/flight-destinations", a.destinations)
		r.Get("/v1/shopping/flight-dates", a.dates)
	})
}

func amadeusError(w http.ResponseWriter, status, code int, title, detail string) {
	writeJSON(w, status, obj{"errors": []obj{{"status": status, "code": code, "title": title, "detail": detail}}})
}

func (a *amadeusMock) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
		writeJSON(w, http.StatusBadRequest, obj{"error": "invalid_request"})
		return
	}
	if r.PostForm.Get("client_id") == "" || r.PostForm.Get("client_secret") == "" {
		writeJSON(w, http.StatusUnauthorized, obj{"error": "invalid_client", "error_description": "Client credentials are invalid"})
		return
	}

	tok := uuid.NewString()
	a.mu.Lock()
	a.tokens[tok] = time.Now().Add(amadeusTokenTTL * time.Second)
	a.mu.Unlock()

	a.logger.Info("issued token", "client_id", r.PostForm.Get("client_id"))
	writeJSON(w, http.StatusOK, obj{
		"type":         "amadeusOAuth2Token",
		"token_type":   "Bearer",
		"access_token": tok,
		"expires_in":   amadeusTokenTTL,
		"state":        "approved",
	})
}

func (a *amadeusMock) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		a.mu.Lock()
		expires, known := a.tokens[tok]
		a.mu.Unlock()
		if !ok || !known || time.Now().After(expires) {
			amadeusError(w, http.StatusUnauthorized, 38190, "Invalid access token", "The access token provided in the Authorization header is invalid")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *amadeusMock) locations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	keyword := q.Get("keyword")
	if keyword == "" {
		amadeusError(w, http.StatusBadRequest, 32171, "MANDATORY DATA MISSING", "keyword is required")
		return
	}

	var kind types.LocationKind
	if sub := q.Get("subType"); sub == string(types.KindAirport) || sub == string(types.KindCity) {
		kind = types.LocationKind(sub)
	}
	limit, err := strconv.Atoi(q.Get("page[limit]"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	found := a.market.locations(kind, keyword)
	data := make([]obj, 0, min(limit, len(found)))
	for _, l := range found[:min(limit, len(found))] {
		data = append(data, obj{
			"type":     "location",
			"subType":  string(l.Kind),
			"name":     strings.ToUpper(l.Name),
			"iataCode": l.Code,
			"address":  obj{"cityName": strings.ToUpper(l.CityName), "countryName": strings.ToUpper(l.CountryName)},
		})
	}
	writeJSON(w, http.StatusOK, obj{"meta": obj{"count": len(data)}, "data": data})
}

func (a *amadeusMock) flightOffers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin, dest, date := q.Get("originLocationCode"), q.Get("destinationLocationCode"), q.Get("departureDate")
	if origin == "" || dest == "" || date == "" {
		amadeusError(w, http.StatusBadRequest, 32171, "MANDATORY DATA MISSING", "origin, destination and departureDate are required")
		return
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		amadeusError(w, http.StatusBadRequest, 477, "INVALID FORMAT", "departureDate must be YYYY-MM-DD")
		return
	}
	cabin := q.Get("travelClass")
	currency := q.Get("currencyCode")
	if currency == "" {
		currency = "USD"
	}

	outbound := a.market.flights(origin, dest, date, 4)
	var inbound []flight
	if ret := q.Get("returnDate"); ret != "" {
		inbound = a.market.flights(dest, origin, ret, 4)
	}

	dict := obj{}
	data := make([]obj, 0, len(outbound))
	for i, f := range outbound {
		itineraries := []obj{amadeusItinerary(f)}
		price := f.Price
		if i < len(inbound) {
			itineraries = append(itineraries, amadeusItinerary(inbound[i]))
			price += inbound[i].Price
			dict[inbound[i].Carrier.Code] = strings.ToUpper(inbound[i].Carrier.Name)
		}
		dict[f.Carrier.Code] = strings.ToUpper(f.Carrier.Name)
		total := strconv.FormatFloat(price, 'f', 2, 64)
		data = append(data, obj{
			"type":                   "flight-offer",
			"id":                     strconv.Itoa(i + 1),
			"itineraries":            itineraries,
			"price":                  obj{"currency": currency, "total": total, "grandTotal": total},
			"validatingAirlineCodes": []string{f.Carrier.Code},
			"travelerPricings": []obj{{
				"travelerId":           "1",
				"fareDetailsBySegment": []obj{{"segmentId": "1", "cabin": cabin}},
			}},
		})
	}
	writeJSON(w, http.StatusOK, obj{"meta": obj{"count": len(data)}, "data": data, "dictionaries": obj{"carriers": dict}})
}

func amadeusItinerary(f flight) obj {
	duration := types.FormatISODuration(f.Minutes)
	return obj{
		"duration": duration,
		"segments": []obj{{
			"departure":   obj{"iataCode": f.Origin, "at": f.Departure.Format("2006-01-02T15:04:05")},
			"arrival":     obj{"iataCode": f.Dest, "at": f.Departure.Add(time.Duration(f.Minutes) * time.Minute).Format("2006-01-02T15:04:05")},
			"carrierCode": f.Carrier.Code,
			"number":      strconv.Itoa(f.Number),
			"duration":    duration,
		}},
	}
}

func (a *amadeusMock) hotelList(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("cityCode")
	if city == "" {
		amadeusError(w, http.StatusBadRequest, 32171, "MANDATORY DATA MISSING", "cityCode is required")
		return
	}
	if len(a.market.static.Match(types.KindCity, city)) == 0 {
		amadeusError(w, http.StatusBadRequest, 895, "NOTHING FOUND FOR REQUESTED CITY", "")
		return
	}

	data := []obj{}
	for _, h := range a.market.hotels(city, 1) {
		data = append(data, obj{"hotelId": h.ID, "name": strings.ToUpper(h.Name), "iataCode": h.City, "rating": h.Stars})
	}
	writeJSON(w, http.StatusOK, obj{"data": data})
}

func (a *amadeusMock) hotelOffers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ids := strings.Split(q.Get("hotelIds"), ",")
	if len(ids) == 0 || ids[0] == "" {
		amadeusError(w, http.StatusBadRequest, 32171, "MANDATORY DATA MISSING", "hotelIds is required")
		return
	}
	currency := q.Get("currency")
	if currency == "" {
		currency = "USD"
	}

	// Ids look like MK<CITY><nn>.
	city := strings.TrimPrefix(ids[0], "MK")
	if len(city) > 3 {
		city = city[:3]
	}
	wanted := map[string]bool{}
	for _, id := range ids {
		wanted[id] = true
	}

	data := []obj{}
	for i, h := range a.market.hotels(city, nightsBetween(q.Get("checkInDate"), q.Get("checkOutDate"))) {
		if !wanted[h.ID] {
			continue
		}
		// Every fourth hotel is sold out.
		available := i%4 != 3
		entry := obj{
			"type":      "hotel-offers",
			"hotel":     obj{"hotelId": h.ID, "name": strings.ToUpper(h.Name), "cityCode": h.City},
			"available": available,
			"offers":    []obj{},
		}
		if available {
			entry["offers"] = []obj{{
				"id":    h.ID + "-OFFER",
				"price": obj{"currency": currency, "total": strconv.FormatFloat(h.Price, 'f', 2, 64)},
			}}
		}
		data = append(data, entry)
	}
	writeJSON(w, http.StatusOK, obj{"data": data})
}

func (a *amadeusMock) destinations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin := q.Get("origin")
	maxPrice, _ := strconv.ParseFloat(q.Get("maxPrice"), 64)
	date := time.Now().AddDate(0, 1, 0).Format(time.DateOnly)

	data := []obj{}
	for _, l := range a.market.static.Airports {
		if l.Code == origin || len(data) == 10 {
			continue
		}
		flights := a.market.flights(origin, l.Code, date, 1)
		if len(flights) == 0 || (maxPrice > 0 && flights[0].Price > maxPrice) {
			continue
		}
		data = append(data, amadeusInspiration(flights[0], ""))
	}
	if len(data) == 0 {
		amadeusError(w, http.StatusNotFound, 6003, "ITEM/DATA NOT FOUND OR DATA NOT EXISTING", "")
		return
	}
	writeJSON(w, http.StatusOK, obj{"data": data, "meta": obj{"currency": "USD"}})
}

func (a *amadeusMock) dates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin, dest := q.Get("origin"), q.Get("destination")

	data := []obj{}
	for week := range 6 {
		date := time.Now().AddDate(0, 0, 7*(week+1)).Format(time.DateOnly)
		flights := a.market.flights(origin, dest, date, 1)
		if len(flights) == 0 {
			break
		}
		ret := time.Now().AddDate(0, 0, 7*(week+2)).Format(time.DateOnly)
		data = append(data, amadeusInspiration(flights[0], ret))
	}
	if len(data) == 0 {
		amadeusError(w, http.StatusNotFound, 6003, "ITEM/DATA NOT FOUND OR DATA NOT EXISTING", "")
		return
	}
	writeJSON(w, http.StatusOK, obj{"data": data, "meta": obj{"currency": "USD"}})
}

func amadeusInspiration(f flight, returnDate string) obj {
	return obj{
		"type":          "flight-destination",
		"origin":        f.Origin,
		"destination":   f.Dest,
		"departureDate": f.Departure.Format(time.DateOnly),
		"returnDate":    returnDate,
		"price":         obj{"total": strconv.FormatFloat(f.Price, 'f', 2, 64)},
	}
}
