package types

import "time"

// LocationKind distinguishes airports from metropolitan cities.
type LocationKind string

const (
	KindAirport LocationKind = "AIRPORT"
	KindCity    LocationKind = "CITY"
)

// Location is an airport or city suggestion.
type Location struct {
	Code        string       `json:"code" yaml:"code"`
	Name        string       `json:"name" yaml:"name"`
	CityName    string       `json:"cityName" yaml:"city"`
	CountryName string       `json:"countryName" yaml:"country"`
	Kind        LocationKind `json:"type,omitempty" yaml:"kind"`
}

// Segment is a single flight leg inside an itinerary.
type Segment struct {
	DepartureAirport string `json:"departureAirport"`
	ArrivalAirport   string `json:"arrivalAirport"`
	DepartureTime    string `json:"departureTime"`
	ArrivalTime      string `json:"arrivalTime"`
	CarrierCode      string `json:"carrierCode"`
	FlightNumber     string `json:"flightNumber"`
	DurationMinutes  int    `json:"durationMinutes"`
}

// FlightOffer is a normalized priced flight option.
type FlightOffer struct {
	ID                string    `json:"id"`
	Origin            string    `json:"origin"`
	Destination       string    `json:"destination"`
	DepartureDate     string    `json:"departureDate"`
	ReturnDate        string    `json:"returnDate,omitempty"`
	PriceTotal        float64   `json:"priceTotal"`
	Currency          string    `json:"currency"`
	Duration          string    `json:"duration,omitempty"`
	DurationMinutes   int       `json:"durationMinutes"`
	Stops             int       `json:"stops"`
	CabinClass        string    `json:"cabinClass,omitempty"`
	ValidatingCarrier string    `json:"validatingCarrier,omitempty"`
	Itinerary         []Segment `json:"itinerary"`
}

// HotelOffer is a normalized priced hotel option.
type HotelOffer struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	CityCode   string   `json:"cityCode"`
	PriceTotal float64  `json:"priceTotal"`
	Currency   string   `json:"currency"`
	Rating     *float64 `json:"rating,omitempty"`
	Reviews    int      `json:"reviews,omitempty"`
	Amenities  []string `json:"amenities"`
	ImageURL   string   `json:"imageUrl,omitempty"`
}

// HotelMeta echoes the resolved hotel search criteria.
type HotelMeta struct {
	CityCode     string `json:"cityCode"`
	CheckInDate  string `json:"checkInDate"`
	CheckOutDate string `json:"checkOutDate"`
}

// FlightResult is the outcome of a flight offers search.
type FlightResult struct {
	Offers   []FlightOffer
	Carriers map[string]string
}

// HotelResult is the outcome of a hotel search.
type HotelResult struct {
	Hotels  []HotelOffer
	Meta    HotelMeta
	Message string
}

// DealsResult separates "no results" from "results" with a status message.
type DealsResult[T any] struct {
	Data    []T        `json:"data"`
	Meta    *HotelMeta `json:"meta,omitempty"`
	Message string     `json:"message"`
}

// AccessToken is a bearer token with its absolute expiry.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// Valid reports whether the token can still be used at now.
func (t *AccessToken) Valid(now time.Time) bool {
	return t != nil && t.Value != "" && now.Before(t.ExpiresAt)
}
