package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CabinClass is the provider-independent cabin enum.
type CabinClass string

const (
	CabinEconomy        CabinClass = "ECONOMY"
	CabinPremiumEconomy CabinClass = "PREMIUM_ECONOMY"
	CabinBusiness       CabinClass = "BUSINESS"
	CabinFirst          CabinClass = "FIRST"
)

// ParseCabinClass maps free-form input to a CabinClass, defaulting to economy.
func ParseCabinClass(s string) CabinClass {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	switch CabinClass(normalized) {
	case CabinPremiumEconomy, CabinBusiness, CabinFirst:
		return CabinClass(normalized)
	default:
		return CabinEconomy
	}
}

var errEmptyPrice = errors.New("empty price")

// ParsePrice strips currency symbols, separators and text from a provider
// formatted amount ("$1,234.50", "US$ 99") and returns the numeric value.
func ParsePrice(s string) (float64, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == '-' && i == 0:
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return 0, errEmptyPrice
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	return v, nil
}

// FormatPrice renders a price with the shortest representation that parses
// back to the same float64.
func FormatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseISODuration converts "PT2H30M" / "P1DT2H" into whole minutes.
func ParseISODuration(s string) (int, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	m := isoDurationRe.FindStringSubmatch(u)
	if m == nil || u == "P" || u == "PT" {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", s)
	}
	atoi := func(v string) int {
		n, _ := strconv.Atoi(v)
		return n
	}
	return atoi(m[1])*24*60 + atoi(m[2])*60 + atoi(m[3]), nil
}

// FormatISODuration renders minutes as "PTxHyM" for UIs that consume ISO durations.
func FormatISODuration(minutes int) string {
	if minutes <= 0 {
		return "PT0M"
	}
	return fmt.Sprintf("PT%dH%dM", minutes/60, minutes%60)
}

// IsIATACode reports whether s looks like a 3-letter IATA code.
func IsIATACode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
