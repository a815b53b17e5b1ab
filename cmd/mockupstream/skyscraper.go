package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alex-user-go/travelgw/internal/search/types"
)

// skyMock serves the RapidAPI Sky Scrapper endpoints.
type skyMock struct {
	market *market
	logger *slog.Logger
}

func newSkyMock(m *market, logger *slog.Logger) *skyMock {
	return &skyMock{market: m, logger: logger}
}

func (s *skyMock) register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(s.authorize)
		r.Get("/api/v1/flights/searchAirport", s.searchAirport)
		r.Get("/api/v1/flights/searchFlights", s.searchFlights)
		r.Get("/api/v1/hotels/searchDestinationOrHotel", s.searchDestination)
		r.Get("/api/v1/hotels/searchHotels", s.searchHotels)
	})
}

func (s *skyMock) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-RapidAPI-Key") == "" {
			writeJSON(w, http.StatusUnauthorized, obj{"message": "Invalid API key. Go to https://docs.rapidapi.com/docs/keys for more info."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// entityID derives a stable numeric id from a code.
func entityID(code string) string {
	return strconv.FormatUint(uint64(hash("entity", code)%90000000+10000000), 10)
}

func (s *skyMock) searchAirport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	data := []obj{}
	for _, l := range s.market.locations("", query) {
		title := l.Name
		if l.Kind == types.KindCity {
			title = l.CityName
		}
		data = append(data, obj{
			"skyId":        l.Code,
			"entityId":     entityID(l.Code),
			"presentation": obj{"title": title, "suggestionTitle": fmt.Sprintf("%s (%s)", title, l.Code), "subtitle": l.CountryName},
			"navigation":   obj{"entityType": string(l.Kind)},
		})
	}
	writeJSON(w, http.StatusOK, obj{"status": true, "data": data})
}

func (s *skyMock) searchFlights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin, dest, date := q.Get("originSkyId"), q.Get("destinationSkyId"), q.Get("date")
	if origin == "" || dest == "" || q.Get("originEntityId") == "" || q.Get("destinationEntityId") == "" {
		writeJSON(w, http.StatusBadRequest, obj{"status": false, "message": "originSkyId, destinationSkyId and entity ids are required"})
		return
	}

	found := s.market.flights(origin, dest, date, 4)
	itineraries := make([]obj, 0, len(found))
	for _, f := range found {
		arrival := f.Departure.Add(time.Duration(f.Minutes) * time.Minute).Format("2006-01-02T15:04:05")
		departure := f.Departure.Format("2006-01-02T15:04:05")
		carrier := obj{"name": f.Carrier.Name, "alternateId": f.Carrier.Code}
		itineraries = append(itineraries, obj{
			"id":    f.ID,
			"price": obj{"raw": f.Price, "formatted": fmt.Sprintf("$%.0f", f.Price)},
			"legs": []obj{{
				"origin":            obj{"displayCode": f.Origin},
				"destination":       obj{"displayCode": f.Dest},
				"durationInMinutes": f.Minutes,
				"stopCount":         0,
				"departure":         departure,
				"arrival":           arrival,
				"carriers":          obj{"marketing": []obj{carrier}},
				"segments": []obj{{
					"origin":            obj{"displayCode": f.Origin},
					"destination":       obj{"displayCode": f.Dest},
					"departure":         departure,
					"arrival":           arrival,
					"durationInMinutes": f.Minutes,
					"flightNumber":      strconv.Itoa(f.Number),
					"marketingCarrier":  carrier,
				}},
			}},
		})
	}
	writeJSON(w, http.StatusOK, obj{"status": true, "data": obj{"itineraries": itineraries}})
}

func (s *skyMock) searchDestination(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	data := []obj{}
	for _, l := range s.market.static.Match(types.KindCity, query) {
		data = append(data, obj{
			"entityName": l.Name,
			"entityId":   entityID(l.Code),
			"entityType": string(types.KindCity),
			"hierarchy":  l.CountryName,
		})
	}
	writeJSON(w, http.StatusOK, obj{"status": true, "data": data})
}

func (s *skyMock) searchHotels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("entityId")

	var city string
	for _, l := range s.market.static.Cities {
		if entityID(l.Code) == id {
			city = l.Code
			break
		}
	}
	if city == "" {
		writeJSON(w, http.StatusBadRequest, obj{"status": false, "message": "entityId is not a known destination"})
		return
	}

	hotels := []obj{}
	for i, h := range s.market.hotels(city, nightsBetween(q.Get("checkin"), q.Get("checkout"))) {
		entry := obj{
			"hotelId":     h.ID,
			"name":        h.Name,
			"reviewCount": h.Review,
			"price":       fmt.Sprintf("$%.0f", h.Price),
			"heroImage":   "https://img.example/" + strings.ToLower(h.ID) + ".jpg",
		}
		// Half the properties carry stars, the rest only a guest rating.
		if i%2 == 0 {
			entry["stars"] = h.Stars
		} else {
			entry["rating"] = obj{"value": fmt.Sprintf("%d.%d", h.Stars, i)}
		}
		hotels = append(hotels, entry)
	}
	writeJSON(w, http.StatusOK, obj{"status": true, "data": obj{"hotels": hotels}})
}
