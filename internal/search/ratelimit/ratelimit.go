// Package ratelimit guards provider quota with per-client token buckets.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key. Each bucket holds up to requests
// tokens and refills at requests tokens per window.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	every   rate.Limit
	burst   int
	window  time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter allowing requests per window per key. A
// non-positive requests value blocks every request.
func New(requests int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		clients: make(map[string]*client),
		window:  window,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if requests > 0 && window > 0 {
		l.burst = requests
		l.every = rate.Every(window / time.Duration(requests))
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.cleanup()

	return l
}

// Close stops the background cleanup goroutine. Safe to call more than once.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.done) })
}

// Allow reports whether a request for key may proceed and consumes a token
// if so.
func (l *Limiter) Allow(key string) bool {
	if l.burst == 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.every, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Limiter) cleanup() {
	interval := 5 * time.Minute
	if l.window > 0 && l.window < interval {
		interval = l.window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.EvictIdle()
		case <-l.done:
			return
		}
	}
}

// EvictIdle drops clients untouched for two windows; their buckets would be
// full anyway.
func (l *Limiter) EvictIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > 2*l.window {
			delete(l.clients, key)
		}
	}
}
