package search

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alex-user-go/travelgw/internal/search/types"
)

//go:embed data/locations.yaml
var staticLocationsYAML []byte

// StaticLocations is the built-in list of popular airports and cities.
type StaticLocations struct {
	Airports []types.Location `yaml:"airports"`
	Cities   []types.Location `yaml:"cities"`
}

// LoadStaticLocations decodes the embedded dataset.
func LoadStaticLocations() (*StaticLocations, error) {
	return ParseStaticLocations(staticLocationsYAML)
}

// ParseStaticLocations decodes a dataset in the embedded YAML layout.
func ParseStaticLocations(data []byte) (*StaticLocations, error) {
	var s StaticLocations
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode static locations: %w", err)
	}
	for i := range s.Airports {
		s.Airports[i].Kind = types.KindAirport
	}
	for i := range s.Cities {
		s.Cities[i].Kind = types.KindCity
	}
	return &s, nil
}

// Match returns entries of kind whose code, name, city or country contains
// keyword, case-insensitively.
func (s *StaticLocations) Match(kind types.LocationKind, keyword string) []types.Location {
	list := s.Airports
	if kind == types.KindCity {
		list = s.Cities
	}

	kw := strings.ToLower(strings.TrimSpace(keyword))
	var out []types.Location
	for _, l := range list {
		if strings.Contains(strings.ToLower(l.Code), kw) ||
			strings.Contains(strings.ToLower(l.Name), kw) ||
			strings.Contains(strings.ToLower(l.CityName), kw) ||
			strings.Contains(strings.ToLower(l.CountryName), kw) {
			out = append(out, l)
		}
	}
	return out
}

// Lookup finds code among airports, then cities.
func (s *StaticLocations) Lookup(code string) (types.Location, bool) {
	code = strings.ToUpper(code)
	for _, list := range [][]types.Location{s.Airports, s.Cities} {
		for _, l := range list {
			if l.Code == code {
				return l, true
			}
		}
	}
	return types.Location{}, false
}
