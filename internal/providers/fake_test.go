package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_FlightDestinations(t *testing.T) {
	f := NewFake()

	all, err := f.FlightDestinations(context.Background(), InspirationQuery{Origin: "LHR"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, o := range all {
		assert.Equal(t, "LHR", o.Origin)
		assert.NotEqual(t, "LHR", o.Destination)
	}

	cheapest := all[0].PriceTotal
	for _, o := range all {
		cheapest = min(cheapest, o.PriceTotal)
	}
	capped, err := f.FlightDestinations(context.Background(), InspirationQuery{Origin: "LHR", MaxPrice: int(cheapest)})
	require.NoError(t, err)
	for _, o := range capped {
		assert.LessOrEqual(t, o.PriceTotal, float64(int(cheapest)))
	}
	assert.Less(t, len(capped), len(all))
}
