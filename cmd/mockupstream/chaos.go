package main

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"
)

type chaosOptions struct {
	MinLatency  time.Duration
	MaxLatency  time.Duration
	FailureRate float64
}

// chaos delays every request and fails a fraction of them.
type chaos struct {
	opts chaosOptions
	mu   sync.Mutex
	rng  *rand.Rand
}

func newChaos(opts chaosOptions, seed uint64) *chaos {
	if opts.MaxLatency < opts.MinLatency {
		opts.MaxLatency = opts.MinLatency
	}
	return &chaos{opts: opts, rng: rand.New(rand.NewPCG(seed, seed>>1))}
}

func (c *chaos) roll() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	latency := c.opts.MinLatency
	if spread := c.opts.MaxLatency - c.opts.MinLatency; spread > 0 {
		latency += time.Duration(c.rng.Int64N(int64(spread)))
	}
	return latency, c.rng.Float64() < c.opts.FailureRate
}

func (c *chaos) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		latency, fail := c.roll()

		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-r.Context().Done():
				return
			}
		}

		if fail {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "provider unavailable"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
