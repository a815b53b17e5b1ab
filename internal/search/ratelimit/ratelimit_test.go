package ratelimit_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alex-user-go/travelgw/internal/search/ratelimit"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestLimiter_Allow(t *testing.T) {
	tests := []struct {
		name       string
		rate       int
		key        string
		calls      int
		wantPassed int
	}{
		{name: "all requests within limit", rate: 5, key: "10.0.0.1", calls: 5, wantPassed: 5},
		{name: "exceed rate limit", rate: 3, key: "10.0.0.2", calls: 5, wantPassed: 3},
		{name: "single request", rate: 10, key: "10.0.0.3", calls: 1, wantPassed: 1},
		{name: "zero rate blocks all", rate: 0, key: "10.0.0.4", calls: 3, wantPassed: 0},
		{name: "empty key", rate: 2, key: "", calls: 3, wantPassed: 2},
		{name: "negative rate blocks all", rate: -5, key: "10.0.0.5", calls: 3, wantPassed: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClock()
			l := ratelimit.New(tt.rate, time.Minute, ratelimit.WithClock(c.Now))
			defer l.Close()

			passed := 0
			for range tt.calls {
				if l.Allow(tt.key) {
					passed++
				}
			}
			assert.Equal(t, tt.wantPassed, passed)
		})
	}
}

func TestLimiter_Refill(t *testing.T) {
	c := newClock()
	l := ratelimit.New(60, time.Minute, ratelimit.WithClock(c.Now))
	defer l.Close()

	for range 60 {
		assert.True(t, l.Allow("ip"))
	}
	assert.False(t, l.Allow("ip"))

	// One token per second.
	c.Advance(time.Second)
	assert.True(t, l.Allow("ip"))
	assert.False(t, l.Allow("ip"))

	// Refill is capped at the burst size.
	c.Advance(time.Hour)
	passed := 0
	for range 100 {
		if l.Allow("ip") {
			passed++
		}
	}
	assert.Equal(t, 60, passed)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := ratelimit.New(2, time.Minute)
	defer l.Close()

	for _, key := range []string{"a", "b", "c"} {
		passed := 0
		for range 3 {
			if l.Allow(key) {
				passed++
			}
		}
		assert.Equal(t, 2, passed, key)
	}
	assert.Equal(t, 3, l.Len())
}

func TestLimiter_Concurrent(t *testing.T) {
	c := newClock()
	l := ratelimit.New(100, time.Minute, ratelimit.WithClock(c.Now))
	defer l.Close()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		passed int
	)
	for range 200 {
		wg.Go(func() {
			if l.Allow("ip") {
				mu.Lock()
				passed++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 100, passed)
}

func TestLimiter_CloseIsIdempotent(t *testing.T) {
	l := ratelimit.New(1, time.Minute)
	l.Close()
	l.Close()
}

func TestLimiter_EvictIdle(t *testing.T) {
	c := newClock()
	l := ratelimit.New(2, time.Minute, ratelimit.WithClock(c.Now))
	defer l.Close()

	assert.True(t, l.Allow("stale"))
	c.Advance(90 * time.Second)
	assert.True(t, l.Allow("fresh"))

	c.Advance(45 * time.Second)
	l.EvictIdle()
	assert.Equal(t, 1, l.Len())

	// An evicted client starts again with a full bucket.
	assert.True(t, l.Allow("stale"))
	assert.True(t, l.Allow("stale"))
	assert.False(t, l.Allow("stale"))
}
