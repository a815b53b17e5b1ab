package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alex-user-go/travelgw/internal/config"
)

type providerStatus struct {
	Name       string   `json:"name"`
	Routes     []string `json:"routes"`
	Status     string   `json:"status"`
	MissingEnv []string `json:"missingEnv,omitempty"`
}

type doctorReport struct {
	Healthy   bool             `json:"healthy"`
	Providers []providerStatus `json:"providers"`
	Summary   string           `json:"summary"`
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration and report missing provider credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			report := diagnose(cfg)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if !report.Healthy {
				return fmt.Errorf("configuration incomplete")
			}
			return nil
		},
	}
}

func diagnose(cfg *config.Config) doctorReport {
	routes := map[string][]string{}
	routes[cfg.Providers.Locations] = append(routes[cfg.Providers.Locations], "locations")
	routes[cfg.Providers.Flights] = append(routes[cfg.Providers.Flights], "flights")
	routes[cfg.Providers.Hotels] = append(routes[cfg.Providers.Hotels], "hotels")

	report := doctorReport{Healthy: true}
	var issues []string
	for _, name := range cfg.Routed() {
		st := providerStatus{Name: name, Routes: routes[name], Status: "active"}
		if missing := cfg.MissingCredentials(name); len(missing) > 0 {
			st.Status = "no_credentials"
			st.MissingEnv = missing
			report.Healthy = false
			issues = append(issues, fmt.Sprintf("%s: missing %s", name, strings.Join(missing, ", ")))
		}
		report.Providers = append(report.Providers, st)
	}

	report.Summary = fmt.Sprintf("%d provider(s) routed", len(report.Providers))
	if len(issues) > 0 {
		report.Summary += " | issues: " + strings.Join(issues, "; ")
	}
	return report
}
