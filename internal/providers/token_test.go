package providers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-user-go/travelgw/internal/apperr"
	"github.com/alex-user-go/travelgw/internal/obs"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTokenServer(t *testing.T, calls *atomic.Int32, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, tokenPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "id", r.PostForm.Get("client_id"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":1799}`))
			return
		}
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenSource_RefreshesOnceWithinValidity(t *testing.T) {
	var calls atomic.Int32
	srv := newTokenServer(t, &calls, http.StatusOK)
	metrics := obs.NewMetrics(testLogger())

	ts := NewTokenSource(TokenConfig{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL}, metrics, testLogger())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return now }

	first, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", first)

	now = now.Add(10 * time.Minute)
	second, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, calls.Load())
	assert.EqualValues(t, 1, metrics.Snapshot().TokenRefreshes)
}

func TestTokenSource_RefreshesInsideMargin(t *testing.T) {
	var calls atomic.Int32
	srv := newTokenServer(t, &calls, http.StatusOK)

	ts := NewTokenSource(TokenConfig{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL}, obs.NewMetrics(testLogger()), testLogger())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return now }

	_, err := ts.Token(context.Background())
	require.NoError(t, err)

	// 1799s lifetime minus the 60s margin.
	now = now.Add(1739 * time.Second)
	_, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestTokenSource_FailureIsNotCached(t *testing.T) {
	var calls atomic.Int32
	srv := newTokenServer(t, &calls, http.StatusUnauthorized)

	ts := NewTokenSource(TokenConfig{ClientID: "id", ClientSecret: "bad", BaseURL: srv.URL}, obs.NewMetrics(testLogger()), testLogger())

	for range 2 {
		_, err := ts.Token(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrUpstreamAuth)
	}
	assert.EqualValues(t, 2, calls.Load())
}

func TestTokenSource_MissingCredentials(t *testing.T) {
	var calls atomic.Int32
	srv := newTokenServer(t, &calls, http.StatusOK)

	ts := NewTokenSource(TokenConfig{ClientID: "id", BaseURL: srv.URL}, obs.NewMetrics(testLogger()), testLogger())

	_, err := ts.Token(context.Background())
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Zero(t, calls.Load())
}

func TestTokenSource_Invalidate(t *testing.T) {
	var calls atomic.Int32
	srv := newTokenServer(t, &calls, http.StatusOK)

	ts := NewTokenSource(TokenConfig{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL}, obs.NewMetrics(testLogger()), testLogger())

	_, err := ts.Token(context.Background())
	require.NoError(t, err)
	ts.Invalidate()
	_, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}
