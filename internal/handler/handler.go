// Package handler exposes the search services over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alex-user-go/travelgw/internal/apperr"
	"github.com/alex-user-go/travelgw/internal/middleware"
	"github.com/alex-user-go/travelgw/internal/obs"
	"github.com/alex-user-go/travelgw/internal/search"
	"github.com/alex-user-go/travelgw/internal/search/types"
)

// Handler handles HTTP requests.
type Handler struct {
	locations *search.Locations
	flights   *search.Flights
	hotels    *search.Hotels
	deals     *search.Deals
	metrics   *obs.Metrics
	logger    *slog.Logger
}

// New creates a new Handler.
func New(
	locations *search.Locations,
	flights *search.Flights,
	hotels *search.Hotels,
	deals *search.Deals,
	metrics *obs.Metrics,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		locations: locations,
		flights:   flights,
		hotels:    hotels,
		deals:     deals,
		metrics:   metrics,
		logger:    logger,
	}
}

// Register mounts the search endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/flights", h.RedirectFlights)
	r.Get("/flights/airports", h.Airports)
	r.Get("/flights/cities", h.Cities)
	r.Get("/flights/offers", h.FlightOffers)
	r.Get("/flights/destinations", h.FlightDestinations)
	r.Get("/flights/dates", h.FlightDates)
	r.Get("/hotels", h.Hotels)
	r.Get("/deals/flights", h.FlightDeals)
	r.Get("/deals/hotels", h.HotelDeals)
}

// LocationsResponse is the airport autocomplete body.
type LocationsResponse struct {
	Data []types.Location `json:"data"`
}

// CitiesResponse is the city autocomplete body.
type CitiesResponse struct {
	Cities []types.Location `json:"cities"`
}

// FlightOffersResponse is the flight search body.
type FlightOffersResponse struct {
	Data         []types.FlightOffer `json:"data"`
	Dictionaries Dictionaries        `json:"dictionaries"`
}

// Dictionaries resolves codes used inside offers.
type Dictionaries struct {
	Carriers  map[string]string         `json:"carriers"`
	Locations map[string]types.Location `json:"locations"`
}

// FlightListResponse wraps inspiration results.
type FlightListResponse struct {
	Data []types.FlightOffer `json:"data"`
}

// HotelsResponse is the hotel search body.
type HotelsResponse struct {
	Data    []types.HotelOffer `json:"data"`
	Meta    types.HotelMeta    `json:"meta"`
	Message string             `json:"message,omitempty"`
}

// Airports handles /flights/airports?search= requests.
func (h *Handler) Airports(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncRequests()
	q := firstParam(r, "search", "query")
	h.writeJSON(w, r, http.StatusOK, LocationsResponse{Data: h.locations.Airports(r.Context(), q)})
}

// Cities handles /flights/cities?query= requests.
func (h *Handler) Cities(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncRequests()
	q := firstParam(r, "query", "search", "keyword")
	h.writeJSON(w, r, http.StatusOK, CitiesResponse{Cities: h.locations.Cities(r.Context(), q)})
}

// RedirectFlights keeps the legacy /flights path working.
func (h *Handler) RedirectFlights(w http.ResponseWriter, r *http.Request) {
	target := "/flights/offers"
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// FlightOffers handles /flights/offers requests.
func (h *Handler) FlightOffers(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncRequests()

	adults, err := optionalInt(r, "adults")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.flights.Offers(r.Context(), search.FlightParams{
		From:       firstParam(r, "from", "origin"),
		To:         firstParam(r, "to", "destination"),
		Date:       firstParam(r, "date", "departureDate"),
		ReturnDate: firstParam(r, "returnDate"),
		Adults:     adults,
		Cabin:      firstParam(r, "class", "travelClass"),
		Currency:   strings.ToUpper(firstParam(r, "currency")),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, FlightOffersResponse{
		Data: res.Offers,
		Dictionaries: Dictionaries{
			Carriers:  res.Carriers,
			Locations: h.locations.Describe(res.Offers),
		},
	})
}

// FlightDestinations handles /flights/destinations?origin= requests.
func (h *Handler) FlightDestinations(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncRequests()

	maxPrice, err := optionalInt(r, "maxPrice")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	offers, err := h.flights.Destinations(r.Context(), firstParam(r, "origin", "from"), maxPrice)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, FlightListResponse{Data: offers})
}

// FlightDates handles /flights/dates?from=&to= requests.
func (h *Handler) FlightDates(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncRequests()

	offers, err := h.flights.Dates(r.Context(), firstParam(r, "from", "origin"), firstParam(r, "to", "destination"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, FlightListResponse{Data: offers})
}

// Hotels handles /hotels requests.
func (h *Handler) Hotels(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncRequests()

	adults, err := optionalInt(r, "adults")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rooms, err := optionalInt(r, "rooms")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.hotels.Search(r.Context(), search.HotelParams{
		City:     firstParam(r, "city", "cityCode"),
		CheckIn:  firstParam(r, "checkIn", "checkInDate"),
		CheckOut: firstParam(r, "checkOut", "checkOutDate"),
		Adults:   adults,
		Rooms:    rooms,
		Currency: strings.ToUpper(firstParam(r, "currency")),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, HotelsResponse{Data: res.Hotels, Meta: res.Meta, Message: res.Message})
}

// FlightDeals handles /deals/flights requests. It always answers 200.
func (h *Handler) FlightDeals(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncRequests()

	// An unparseable maxPrice falls back to the default budget.
	maxPrice, _ := strconv.Atoi(firstParam(r, "maxPrice"))
	h.writeJSON(w, r, http.StatusOK, h.deals.Flights(r.Context(), firstParam(r, "origin", "from"), maxPrice))
}

// HotelDeals handles /deals/hotels requests. It always answers 200.
func (h *Handler) HotelDeals(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncRequests()

	res := h.deals.Hotels(r.Context(),
		firstParam(r, "city", "cityCode"),
		firstParam(r, "checkInDate", "checkIn"),
		firstParam(r, "checkOutDate", "checkOut"),
	)
	h.writeJSON(w, r, http.StatusOK, res)
}

// MethodNotAllowed answers non-GET requests.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// NotFound answers unknown paths.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

// firstParam returns the first non-empty query parameter among names.
func firstParam(r *http.Request, names ...string) string {
	query := r.URL.Query()
	for _, name := range names {
		if v := strings.TrimSpace(query.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

// optionalInt parses a positive integer parameter; absent means 0.
func optionalInt(r *http.Request, name string) (int, error) {
	raw := firstParam(r, name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperr.InvalidRequest("%s must be a positive integer", name)
	}
	return n, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Can't change status after WriteHeader, just log
		h.logger.Error("failed to encode response", "request_id", middleware.RequestID(r.Context()), "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		"request_id", middleware.RequestID(r.Context()),
		"path", r.URL.Path,
		"kind", apperr.KindOf(err).String(),
		"error", err,
	)
	writeError(w, status, apperr.PublicMessage(err))
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
