// Package config loads gateway settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/alex-user-go/travelgw/internal/providers"
	"github.com/alex-user-go/travelgw/internal/search"
)

// EnvPrefix prefixes every environment variable without a provider-specific name.
const EnvPrefix = "TRAVELGW"

// Config is the full gateway configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit"`
	Autocomplete AutocompleteConfig `mapstructure:"autocomplete"`
	Providers    RoutingConfig      `mapstructure:"providers"`
	Amadeus      AmadeusConfig      `mapstructure:"amadeus"`
	SerpAPI      SerpAPIConfig      `mapstructure:"serpapi"`
	Skyscraper   SkyscraperConfig   `mapstructure:"skyscraper"`
	Deals        DealsConfig        `mapstructure:"deals"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type AutocompleteConfig struct {
	TTL   time.Duration `mapstructure:"ttl"`
	Limit int           `mapstructure:"limit"`
}

// RoutingConfig picks a provider per concern.
type RoutingConfig struct {
	Locations string        `mapstructure:"locations"`
	Flights   string        `mapstructure:"flights"`
	Hotels    string        `mapstructure:"hotels"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type AmadeusConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	BaseURL      string        `mapstructure:"base_url"`
	TokenMargin  time.Duration `mapstructure:"token_margin"`
}

type SerpAPIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type SkyscraperConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Host    string `mapstructure:"host"`
	BaseURL string `mapstructure:"base_url"`
}

type DealsConfig struct {
	DefaultOrigin   string        `mapstructure:"default_origin"`
	DefaultMaxPrice int           `mapstructure:"default_max_price"`
	Candidates      []string      `mapstructure:"candidates"`
	SampleSize      int           `mapstructure:"sample_size"`
	DaysAhead       int           `mapstructure:"days_ahead"`
	LegTimeout      time.Duration `mapstructure:"leg_timeout"`
	HotelCity       string        `mapstructure:"hotel_city"`
	HotelNights     int           `mapstructure:"hotel_nights"`
	HotelLimit      int           `mapstructure:"hotel_limit"`
}

// Search converts the deals section into service settings.
func (d DealsConfig) Search() search.DealsConfig {
	return search.DealsConfig{
		DefaultOrigin:   strings.ToUpper(d.DefaultOrigin),
		DefaultMaxPrice: d.DefaultMaxPrice,
		Candidates:      d.Candidates,
		SampleSize:      d.SampleSize,
		DaysAhead:       d.DaysAhead,
		LegTimeout:      d.LegTimeout,
		HotelCity:       d.HotelCity,
		HotelNights:     d.HotelNights,
		HotelLimit:      d.HotelLimit,
	}
}

// providerEnv lists the conventional variable names honoured for credentials,
// in order of preference.
var providerEnv = map[string][]string{
	"amadeus.client_id":     {"AMADEUS_CLIENT_ID", "AMADEUS_API_KEY"},
	"amadeus.client_secret": {"AMADEUS_CLIENT_SECRET", "AMADEUS_API_SECRET"},
	"amadeus.base_url":      {"AMADEUS_BASE_URL"},
	"serpapi.api_key":       {"SERPAPI_KEY", "SERPAPI_API_KEY"},
	"skyscraper.api_key":    {"RAPIDAPI_KEY"},
	"skyscraper.host":       {"RAPIDAPI_HOST"},
}

func setDefaults(v *viper.Viper) {
	def := search.DefaultDealsConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("ratelimit.requests", 60)
	v.SetDefault("ratelimit.window", time.Minute)

	v.SetDefault("autocomplete.ttl", search.DefaultAutocompleteTTL)
	v.SetDefault("autocomplete.limit", 10)

	v.SetDefault("providers.locations", providers.NameAmadeus)
	v.SetDefault("providers.flights", providers.NameAmadeus)
	v.SetDefault("providers.hotels", providers.NameAmadeus)
	v.SetDefault("providers.timeout", providers.DefaultTimeout)

	v.SetDefault("amadeus.client_id", "")
	v.SetDefault("amadeus.client_secret", "")
	v.SetDefault("amadeus.base_url", providers.AmadeusTestURL)
	v.SetDefault("amadeus.token_margin", providers.DefaultTokenMargin)

	v.SetDefault("serpapi.api_key", "")
	v.SetDefault("serpapi.base_url", providers.SerpAPIBaseURL)

	v.SetDefault("skyscraper.api_key", "")
	v.SetDefault("skyscraper.host", providers.SkyscraperDefaultHost)
	v.SetDefault("skyscraper.base_url", "")

	v.SetDefault("deals.default_origin", def.DefaultOrigin)
	v.SetDefault("deals.default_max_price", def.DefaultMaxPrice)
	v.SetDefault("deals.candidates", def.Candidates)
	v.SetDefault("deals.sample_size", def.SampleSize)
	v.SetDefault("deals.days_ahead", def.DaysAhead)
	v.SetDefault("deals.leg_timeout", def.LegTimeout)
	v.SetDefault("deals.hotel_city", def.HotelCity)
	v.SetDefault("deals.hotel_nights", def.HotelNights)
	v.SetDefault("deals.hotel_limit", def.HotelLimit)
}

// Load reads configuration. path may be empty, in which case only defaults
// and the environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range providerEnv {
		// Prefixed form first so TRAVELGW_AMADEUS_CLIENT_ID still wins.
		envs := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		trimmedListHook(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// trimmedListHook splits sep-separated strings into trimmed, non-empty items
// when the target is a []string.
func trimmedListHook(sep string) mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeFor[[]string]() {
			return data, nil
		}
		var out []string
		for part := range strings.SplitSeq(data.(string), sep) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
}

func (c *Config) normalize() {
	c.Providers.Locations = strings.ToLower(strings.TrimSpace(c.Providers.Locations))
	c.Providers.Flights = strings.ToLower(strings.TrimSpace(c.Providers.Flights))
	c.Providers.Hotels = strings.ToLower(strings.TrimSpace(c.Providers.Hotels))
	for i, code := range c.Deals.Candidates {
		c.Deals.Candidates[i] = strings.ToUpper(strings.TrimSpace(code))
	}
}

var knownProviders = []string{providers.NameAmadeus, providers.NameSerpAPI, providers.NameSkyscraper, providers.NameFake}

// Validate checks values that would otherwise fail at request time.
func (c *Config) Validate() error {
	routes := map[string]string{
		"providers.locations": c.Providers.Locations,
		"providers.flights":   c.Providers.Flights,
		"providers.hotels":    c.Providers.Hotels,
	}
	for key, name := range routes {
		if !slices.Contains(knownProviders, name) {
			return fmt.Errorf("%s: unknown provider %q (want one of %s)", key, name, strings.Join(knownProviders, ", "))
		}
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit: requests and window must be positive")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	return nil
}

// Routed returns the distinct providers referenced by the routing section.
func (c *Config) Routed() []string {
	var out []string
	for _, name := range []string{c.Providers.Locations, c.Providers.Flights, c.Providers.Hotels} {
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// MissingCredentials names the environment variables that would supply the
// absent credentials for provider.
func (c *Config) MissingCredentials(provider string) []string {
	var missing []string
	check := func(value, key string) {
		if value == "" {
			missing = append(missing, providerEnv[key][0])
		}
	}
	switch provider {
	case providers.NameAmadeus:
		check(c.Amadeus.ClientID, "amadeus.client_id")
		check(c.Amadeus.ClientSecret, "amadeus.client_secret")
	case providers.NameSerpAPI:
		check(c.SerpAPI.APIKey, "serpapi.api_key")
	case providers.NameSkyscraper:
		check(c.Skyscraper.APIKey, "skyscraper.api_key")
	}
	return missing
}

// NewLogger builds the process logger from the log section.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
