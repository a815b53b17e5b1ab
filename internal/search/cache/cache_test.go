package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestCache_GetSet(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	tests := []struct {
		name    string
		setup   func(c *Cache[string])
		advance time.Duration
		key     string
		want    string
		wantHit bool
	}{
		{
			name:    "miss on empty cache",
			setup:   func(c *Cache[string]) {},
			key:     "paris",
			wantHit: false,
		},
		{
			name:    "hit within ttl",
			setup:   func(c *Cache[string]) { c.Set("paris", "CDG", time.Hour) },
			advance: 59 * time.Minute,
			key:     "paris",
			want:    "CDG",
			wantHit: true,
		},
		{
			name:    "miss exactly at expiry",
			setup:   func(c *Cache[string]) { c.Set("paris", "CDG", time.Hour) },
			advance: time.Hour,
			key:     "paris",
			wantHit: false,
		},
		{
			name: "set replaces whole value",
			setup: func(c *Cache[string]) {
				c.Set("paris", "ORY", time.Hour)
				c.Set("paris", "CDG", time.Hour)
			},
			key:     "paris",
			want:    "CDG",
			wantHit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New[string](0, WithClock[string](clock.Now))
			defer c.Close()

			tt.setup(c)
			clock.Advance(tt.advance)

			got, hit := c.Get(tt.key)
			assert.Equal(t, tt.wantHit, hit)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCache_Invalidate(t *testing.T) {
	tests := []struct {
		name       string
		setupKeys  []string
		invalidate string
		wantKeys   []string
	}{
		{
			name:       "invalidate existing key",
			setupKeys:  []string{"a", "b", "c"},
			invalidate: "b",
			wantKeys:   []string{"a", "c"},
		},
		{
			name:       "invalidate non-existing key",
			setupKeys:  []string{"a", "b"},
			invalidate: "x",
			wantKeys:   []string{"a", "b"},
		},
		{
			name:       "invalidate from empty cache",
			setupKeys:  []string{},
			invalidate: "a",
			wantKeys:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New[int](0)
			defer c.Close()

			for i, key := range tt.setupKeys {
				c.Set(key, i, time.Minute)
			}

			c.Invalidate(tt.invalidate)

			assert.Equal(t, len(tt.wantKeys), c.Len())
			for _, key := range tt.wantKeys {
				_, ok := c.Get(key)
				assert.True(t, ok, "expected key %q to exist", key)
			}
		})
	}
}

func TestCache_Clear(t *testing.T) {
	c := New[int](0)
	defer c.Close()

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Clear()

	assert.Zero(t, c.Len())
}

func TestCache_SweepRemovesExpired(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := New[int](0, WithClock[int](clock.Now))
	defer c.Close()

	c.Set("short", 1, time.Second)
	c.Set("long", 2, time.Hour)
	clock.Advance(time.Minute)

	c.sweep()

	require.Equal(t, 1, c.Len())
	v, ok := c.Get("long")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := New[int](10 * time.Millisecond)
	c.Close()
	assert.NotPanics(t, c.Close)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int](time.Millisecond)
	defer c.Close()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			c.Set("k", i, time.Minute)
			c.Get("k")
		})
	}
	wg.Wait()

	_, ok := c.Get("k")
	assert.True(t, ok)
}
