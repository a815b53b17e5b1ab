package main

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/alex-user-go/travelgw/internal/search"
	"github.com/alex-user-go/travelgw/internal/search/types"
)

type carrier struct {
	Code string
	Name string
}

var carriers = []carrier{
	{"EK", "Emirates"},
	{"BA", "British Airways"},
	{"AF", "Air France"},
	{"TK", "Turkish Airlines"},
	{"QR", "Qatar Airways"},
}

var hotelNames = []string{"Grand Hotel", "City Center Inn", "Budget Stay", "Luxury Palace", "Seaside Resort", "Mountain Lodge"}

// flight is one generated itinerary, shared by every provider shape.
type flight struct {
	ID        string
	Carrier   carrier
	Number    int
	Origin    string
	Dest      string
	Departure time.Time
	Minutes   int
	Price     float64
}

// hotel is one generated property.
type hotel struct {
	ID     string
	Name   string
	City   string
	Stars  int
	Price  float64
	Review int
}

// market produces plausible inventory. Route and city determine the base
// price; the random source adds jitter between calls.
type market struct {
	static *search.StaticLocations
	mu     sync.Mutex
	rng    *rand.Rand
}

func newMarket(static *search.StaticLocations, seed uint64) *market {
	return &market{static: static, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (m *market) jitter(upTo float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64() * upTo
}

func round2(v float64) float64 {
	return float64(int(v*100)) / 100
}

func hash(parts ...string) uint32 {
	h := fnv.New32a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
	}
	return h.Sum32()
}

func (m *market) locations(kind types.LocationKind, keyword string) []types.Location {
	if kind == "" {
		return append(m.static.Match(types.KindAirport, keyword), m.static.Match(types.KindCity, keyword)...)
	}
	return m.static.Match(kind, keyword)
}

func (m *market) flights(origin, dest, date string, n int) []flight {
	day, err := time.Parse(time.DateOnly, date)
	if err != nil || origin == dest {
		return nil
	}
	base := 90 + float64(hash(origin, dest)%650)
	minutes := 60 + int(hash(dest, origin)%720)

	out := make([]flight, 0, n)
	for i := range n {
		c := carriers[(int(hash(origin, dest))+i)%len(carriers)]
		out = append(out, flight{
			ID:        fmt.Sprintf("%s%s%d", origin, dest, i+1),
			Carrier:   c,
			Number:    100 + int(hash(c.Code, origin, dest)%800) + i,
			Origin:    origin,
			Dest:      dest,
			Departure: day.Add(time.Duration(6+3*i) * time.Hour),
			Minutes:   minutes + 20*i,
			Price:     round2(base + float64(i)*42 + m.jitter(30)),
		})
	}
	return out
}

func (m *market) hotels(city string, nights int) []hotel {
	city = strings.ToUpper(strings.TrimSpace(city))
	nights = max(nights, 1)

	out := make([]hotel, 0, len(hotelNames))
	for i, name := range hotelNames {
		perNight := 50 + float64(hash(city, name)%300)
		out = append(out, hotel{
			ID:     fmt.Sprintf("MK%s%02d", city, i+1),
			Name:   name,
			City:   city,
			Stars:  2 + int(hash(name)%4),
			Price:  round2((perNight + m.jitter(20)) * float64(nights)),
			Review: 40 + int(hash(city, name)%900),
		})
	}
	return out
}

func nightsBetween(checkIn, checkOut string) int {
	in, err1 := time.Parse(time.DateOnly, checkIn)
	out, err2 := time.Parse(time.DateOnly, checkOut)
	if err1 != nil || err2 != nil || !out.After(in) {
		return 1
	}
	return int(out.Sub(in).Hours() / 24)
}
