// Command mockupstream emulates the Amadeus, SerpApi and Sky Scrapper APIs
// locally, with random latency and failures, for running the gateway offline.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/alex-user-go/travelgw/internal/middleware"
	"github.com/alex-user-go/travelgw/internal/search"
)

func main() {
	var opts chaosOptions
	var addr string
	var seed uint64

	cmd := &cobra.Command{
		Use:          "mockupstream",
		Short:        "Serve fake travel provider APIs",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			h, err := newServer(opts, seed, logger)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, addr, h, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9001", "listen address")
	cmd.Flags().DurationVar(&opts.MinLatency, "min-latency", 50*time.Millisecond, "minimum injected latency")
	cmd.Flags().DurationVar(&opts.MaxLatency, "max-latency", 200*time.Millisecond, "maximum injected latency")
	cmd.Flags().Float64Var(&opts.FailureRate, "failure-rate", 0.1, "fraction of requests answered with 503")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (0 uses the clock)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newServer mounts every emulated provider on one router. Provider paths do
// not overlap, so a single base URL serves all three clients.
func newServer(opts chaosOptions, seed uint64, logger *slog.Logger) (http.Handler, error) {
	static, err := search.LoadStaticLocations()
	if err != nil {
		return nil, err
	}
	m := newMarket(static, seed)

	r := chi.NewRouter()
	r.Use(middleware.Logging(logger))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write healthz response", "error", err)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(newChaos(opts, seed).middleware)
		newAmadeusMock(m, logger).register(r)
		newSerpMock(m, logger).register(r)
		newSkyMock(m, logger).register(r)
	})
	return r, nil
}

func serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
