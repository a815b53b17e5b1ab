package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alex-user-go/travelgw/internal/search/types"
)

const serpNoResults = "Google hasn't returned any results for this query."

// serpMock serves SerpApi's /search.json for the engines the gateway uses.
type serpMock struct {
	market *market
	logger *slog.Logger
}

func newSerpMock(m *market, logger *slog.Logger) *serpMock {
	return &serpMock{market: m, logger: logger}
}

func (s *serpMock) register(r chi.Router) {
	r.Get("/search.json", s.search)
}

func (s *serpMock) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("api_key") == "" {
		writeJSON(w, http.StatusUnauthorized, obj{"error": "Invalid API key. Your API key should be here: https://serpapi.com/manage-api-key"})
		return
	}

	switch engine := q.Get("engine"); engine {
	case "google_flights_autocomplete":
		s.autocomplete(w, r)
	case "google_flights":
		s.flights(w, r)
	case "google_hotels":
		s.hotels(w, r)
	default:
		writeJSON(w, http.StatusBadRequest, obj{"error": fmt.Sprintf("Unsupported `%s` search engine.", engine)})
	}
}

func (s *serpMock) autocomplete(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("q")

	suggestions := []obj{}
	for _, l := range s.market.locations("", keyword) {
		entry := obj{"title": l.Name, "subtitle": l.CityName + ", " + l.CountryName}
		if l.Kind == types.KindAirport {
			entry["id"] = l.Code
			entry["type"] = "airport"
		} else {
			// Google identifies cities by knowledge graph id, not IATA code.
			entry["id"] = "/m/" + strings.ToLower(l.Code)
			entry["type"] = "city"
		}
		suggestions = append(suggestions, entry)
	}
	writeJSON(w, http.StatusOK, obj{"search_metadata": obj{"status": "Success"}, "suggestions": suggestions})
}

func (s *serpMock) flights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	found := s.market.flights(q.Get("departure_id"), q.Get("arrival_id"), q.Get("outbound_date"), 5)
	if len(found) == 0 {
		writeJSON(w, http.StatusOK, obj{"search_metadata": obj{"status": "Success"}, "error": serpNoResults})
		return
	}

	class := map[string]string{"1": "Economy", "2": "Premium economy", "3": "Business", "4": "First"}[q.Get("travel_class")]
	itineraries := make([]obj, 0, len(found))
	for _, f := range found {
		itineraries = append(itineraries, obj{
			"flights": []obj{{
				"departure_airport": obj{"id": f.Origin, "time": f.Departure.Format("2006-01-02 15:04")},
				"arrival_airport":   obj{"id": f.Dest, "time": f.Departure.Add(time.Duration(f.Minutes) * time.Minute).Format("2006-01-02 15:04")},
				"duration":          f.Minutes,
				"airline":           f.Carrier.Name,
				"flight_number":     fmt.Sprintf("%s %d", f.Carrier.Code, f.Number),
				"travel_class":      class,
			}},
			"total_duration": f.Minutes,
			"price":          int(f.Price),
			"booking_token":  f.ID,
		})
	}
	writeJSON(w, http.StatusOK, obj{
		"search_metadata": obj{"status": "Success"},
		"best_flights":    itineraries[:1],
		"other_flights":   itineraries[1:],
	})
}

func (s *serpMock) hotels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cityName := strings.TrimSpace(strings.TrimSuffix(q.Get("q"), " hotels"))

	var city *types.Location
	for _, l := range s.market.static.Match(types.KindCity, cityName) {
		if strings.EqualFold(l.Name, cityName) || strings.EqualFold(l.Code, cityName) {
			city = &l
			break
		}
	}
	if city == nil {
		writeJSON(w, http.StatusOK, obj{"search_metadata": obj{"status": "Success"}, "error": serpNoResults})
		return
	}

	nights := nightsBetween(q.Get("check_in_date"), q.Get("check_out_date"))
	properties := []obj{}
	for _, h := range s.market.hotels(city.Code, nights) {
		perNight := h.Price / float64(nights)
		properties = append(properties, obj{
			"name":           h.Name,
			"property_token": h.ID,
			"overall_rating": float64(h.Stars) + 0.4,
			"reviews":        h.Review,
			"amenities":      []string{"Free Wi-Fi", "Air conditioning"},
			"rate_per_night": obj{"lowest": fmt.Sprintf("$%.0f", perNight)},
			"total_rate":     obj{"lowest": fmt.Sprintf("$%.0f", h.Price)},
			"images":         []obj{{"thumbnail": "https://img.example/" + h.ID + ".jpg"}},
		})
	}
	writeJSON(w, http.StatusOK, obj{"search_metadata": obj{"status": "Success"}, "properties": properties})
}
