package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-user-go/travelgw/internal/config"
	"github.com/alex-user-go/travelgw/internal/providers"
)

func TestDiagnose(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Providers.Hotels = providers.NameFake

	report := diagnose(cfg)

	assert.False(t, report.Healthy)
	require.Len(t, report.Providers, 2)
	assert.Equal(t, providerStatus{
		Name:       providers.NameAmadeus,
		Routes:     []string{"locations", "flights"},
		Status:     "no_credentials",
		MissingEnv: []string{"AMADEUS_CLIENT_ID", "AMADEUS_CLIENT_SECRET"},
	}, report.Providers[0])
	assert.Equal(t, "active", report.Providers[1].Status)
	assert.Contains(t, report.Summary, "amadeus: missing AMADEUS_CLIENT_ID")
}

func TestDiagnose_Healthy(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Providers.Locations = providers.NameFake
	cfg.Providers.Flights = providers.NameFake
	cfg.Providers.Hotels = providers.NameFake

	report := diagnose(cfg)

	assert.True(t, report.Healthy)
	assert.Equal(t, "1 provider(s) routed", report.Summary)
}
