package search

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/alex-user-go/travelgw/internal/apperr"
	"github.com/alex-user-go/travelgw/internal/obs"
	"github.com/alex-user-go/travelgw/internal/search/types"
)

// Deal messages.
const (
	MsgFreshDeals         = "Fresh deals found!"
	MsgNoDeals            = "No exceptional deals found for these filters."
	MsgDealsUnconfigured  = "Deals are unavailable: flight provider credentials are not configured."
	MsgHotelDealsFailed   = "Hotel deals are unavailable right now."
	MsgHotelDealsNotFound = "No hotel deals found for these dates."
)

// DealsConfig tunes the deal finders.
type DealsConfig struct {
	DefaultOrigin   string
	DefaultMaxPrice int
	Candidates      []string
	SampleSize      int
	DaysAhead       int
	LegTimeout      time.Duration
	HotelCity       string
	HotelNights     int
	HotelLimit      int
}

// DefaultDealsConfig returns the stock deal settings.
func DefaultDealsConfig() DealsConfig {
	return DealsConfig{
		DefaultOrigin:   "DXB",
		DefaultMaxPrice: 500,
		Candidates:      []string{"LHR", "CDG", "JFK", "IST", "BKK", "SIN", "FCO", "BCN", "AMS", "DOH", "MAD", "FRA", "DEL", "HKG"},
		SampleSize:      4,
		DaysAhead:       30,
		LegTimeout:      5 * time.Second,
		HotelCity:       "PAR",
		HotelNights:     3,
		HotelLimit:      6,
	}
}

// Sampler picks n candidates. The default is a uniform random sample.
type Sampler func(candidates []string, n int) []string

func randomSample(candidates []string, n int) []string {
	picked := slices.Clone(candidates)
	rand.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	return picked[:min(n, len(picked))]
}

// DealsOption customizes Deals.
type DealsOption func(*Deals)

// WithSampler replaces the random candidate sampler.
func WithSampler(s Sampler) DealsOption {
	return func(d *Deals) { d.sample = s }
}

// WithDealsClock replaces the time source used for default dates.
func WithDealsClock(now func() time.Time) DealsOption {
	return func(d *Deals) { d.now = now }
}

// Deals finds cheap flights and hotels from a small sample of searches.
// Deals never fail the request: errors become an empty result with a message.
type Deals struct {
	flights *Flights
	hotels  *Hotels
	cfg     DealsConfig
	sample  Sampler
	now     func() time.Time
	metrics *obs.Metrics
	logger  *slog.Logger
}

// NewDeals creates the deals service.
func NewDeals(flights *Flights, hotels *Hotels, cfg DealsConfig, metrics *obs.Metrics, logger *slog.Logger, opts ...DealsOption) *Deals {
	def := DefaultDealsConfig()
	if cfg.DefaultOrigin == "" {
		cfg.DefaultOrigin = def.DefaultOrigin
	}
	if cfg.DefaultMaxPrice <= 0 {
		cfg.DefaultMaxPrice = def.DefaultMaxPrice
	}
	if len(cfg.Candidates) == 0 {
		cfg.Candidates = def.Candidates
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = def.SampleSize
	}
	if cfg.DaysAhead <= 0 {
		cfg.DaysAhead = def.DaysAhead
	}
	if cfg.LegTimeout <= 0 {
		cfg.LegTimeout = def.LegTimeout
	}
	if cfg.HotelCity == "" {
		cfg.HotelCity = def.HotelCity
	}
	if cfg.HotelNights <= 0 {
		cfg.HotelNights = def.HotelNights
	}
	if cfg.HotelLimit <= 0 {
		cfg.HotelLimit = def.HotelLimit
	}

	d := &Deals{
		flights: flights,
		hotels:  hotels,
		cfg:     cfg,
		sample:  randomSample,
		now:     time.Now,
		metrics: metrics,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Flights searches a sample of destinations from origin one month out and
// keeps the cheapest offer per destination at or under maxPrice.
func (d *Deals) Flights(ctx context.Context, origin string, maxPrice int) types.DealsResult[types.FlightOffer] {
	origin = strings.ToUpper(strings.TrimSpace(origin))
	if origin == "" {
		origin = d.cfg.DefaultOrigin
	}
	if maxPrice <= 0 {
		maxPrice = d.cfg.DefaultMaxPrice
	}

	candidates := make([]string, 0, len(d.cfg.Candidates))
	for _, c := range d.cfg.Candidates {
		if c != origin {
			candidates = append(candidates, c)
		}
	}
	destinations := d.sample(candidates, d.cfg.SampleSize)
	date := d.now().AddDate(0, 0, d.cfg.DaysAhead).Format(time.DateOnly)

	var (
		mu           sync.Mutex
		wg           sync.WaitGroup
		deals        []types.FlightOffer
		unconfigured bool
	)
	for _, dest := range destinations {
		wg.Go(func() {
			legCtx, cancel := context.WithTimeout(ctx, d.cfg.LegTimeout)
			defer cancel()

			res, err := d.flights.Offers(legCtx, FlightParams{From: origin, To: dest, Date: date, Adults: 1})
			if err != nil {
				d.metrics.IncDealLegsFailed()
				d.logger.Warn("deal search failed", "origin", origin, "destination", dest, "error", err)
				if errors.Is(err, apperr.ErrConfiguration) {
					mu.Lock()
					unconfigured = true
					mu.Unlock()
				}
				return
			}

			best, ok := cheapest(res.Offers, func(o types.FlightOffer) float64 { return o.PriceTotal })
			if !ok || best.PriceTotal > float64(maxPrice) {
				return
			}
			mu.Lock()
			deals = append(deals, best)
			mu.Unlock()
		})
	}
	wg.Wait()

	slices.SortStableFunc(deals, func(a, b types.FlightOffer) int {
		return cmp.Compare(a.PriceTotal, b.PriceTotal)
	})

	switch {
	case len(deals) > 0:
		return types.DealsResult[types.FlightOffer]{Data: deals, Message: MsgFreshDeals}
	case unconfigured:
		return types.DealsResult[types.FlightOffer]{Data: []types.FlightOffer{}, Message: MsgDealsUnconfigured}
	default:
		return types.DealsResult[types.FlightOffer]{Data: []types.FlightOffer{}, Message: MsgNoDeals}
	}
}

// Hotels returns the cheapest hotels in city. Missing dates default to a
// stay starting DaysAhead from today.
func (d *Deals) Hotels(ctx context.Context, city, checkIn, checkOut string) types.DealsResult[types.HotelOffer] {
	city = strings.TrimSpace(city)
	if city == "" {
		city = d.cfg.HotelCity
	}
	if checkIn == "" {
		checkIn = d.now().AddDate(0, 0, d.cfg.DaysAhead).Format(time.DateOnly)
	}
	if checkOut == "" {
		if in, err := time.Parse(time.DateOnly, checkIn); err == nil {
			checkOut = in.AddDate(0, 0, d.cfg.HotelNights).Format(time.DateOnly)
		}
	}

	meta := &types.HotelMeta{CityCode: strings.ToUpper(city), CheckInDate: checkIn, CheckOutDate: checkOut}
	empty := func(msg string) types.DealsResult[types.HotelOffer] {
		return types.DealsResult[types.HotelOffer]{Data: []types.HotelOffer{}, Meta: meta, Message: msg}
	}

	searchCtx, cancel := context.WithTimeout(ctx, d.cfg.LegTimeout)
	defer cancel()

	res, err := d.hotels.Search(searchCtx, HotelParams{City: city, CheckIn: checkIn, CheckOut: checkOut, Adults: 1, Rooms: 1})
	if err != nil {
		d.logger.Warn("hotel deals failed", "city", city, "error", err)
		if errors.Is(err, apperr.ErrInvalidRequest) {
			return empty(apperr.PublicMessage(err))
		}
		return empty(MsgHotelDealsFailed)
	}

	meta.CityCode = res.Meta.CityCode
	if len(res.Hotels) == 0 {
		return empty(firstNonEmpty(res.Message, MsgHotelDealsNotFound))
	}

	// Search returns hotels sorted by price.
	top := res.Hotels[:min(d.cfg.HotelLimit, len(res.Hotels))]
	return types.DealsResult[types.HotelOffer]{Data: top, Meta: meta, Message: MsgFreshDeals}
}

func cheapest[T any](items []T, price func(T) float64) (T, bool) {
	var best T
	if len(items) == 0 {
		return best, false
	}
	best = items[0]
	for _, it := range items[1:] {
		if price(it) < price(best) {
			best = it
		}
	}
	return best, true
}
