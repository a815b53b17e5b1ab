package providers

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/alex-user-go/travelgw/internal/apperr"
	"github.com/alex-user-go/travelgw/internal/obs"
	"github.com/alex-user-go/travelgw/internal/search/types"
)

// DefaultTokenMargin is subtracted from the advertised token lifetime.
const DefaultTokenMargin = 60 * time.Second

const tokenPath = "/v1/security/oauth2/token"

// TokenConfig configures a TokenSource.
type TokenConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	Margin       time.Duration
	Timeout      time.Duration
}

// TokenSource caches a single OAuth2 client-credentials bearer token.
//
// The slot is replaced wholesale. Callers that miss concurrently may each
// request a token; whichever response lands last is kept.
type TokenSource struct {
	clientID     string
	clientSecret string
	margin       time.Duration
	transport    *httpTransport
	slot         atomic.Pointer[types.AccessToken]
	now          func() time.Time
	metrics      *obs.Metrics
	logger       *slog.Logger
}

// NewTokenSource creates a TokenSource.
func NewTokenSource(cfg TokenConfig, metrics *obs.Metrics, logger *slog.Logger) *TokenSource {
	margin := cfg.Margin
	if margin <= 0 {
		margin = DefaultTokenMargin
	}
	return &TokenSource{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		margin:       margin,
		transport:    newHTTPTransport("amadeus auth", cfg.BaseURL, cfg.Timeout, nil),
		now:          time.Now,
		metrics:      metrics,
		logger:       logger,
	}
}

// Configured reports whether credentials are present.
func (s *TokenSource) Configured() bool {
	return s.clientID != "" && s.clientSecret != ""
}

// Token returns a valid bearer token, fetching a new one when the cached
// token is missing or inside the safety margin of its expiry.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if !s.Configured() {
		return "", apperr.Configuration("amadeus client id/secret are not configured")
	}

	if tok := s.slot.Load(); tok.Valid(s.now()) {
		return tok.Value, nil
	}

	tok, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}
	s.slot.Store(tok)

	return tok.Value, nil
}

// Invalidate drops the cached token so the next call fetches a fresh one.
func (s *TokenSource) Invalidate() {
	s.slot.Store(nil)
}

func (s *TokenSource) fetch(ctx context.Context) (*types.AccessToken, error) {
	s.metrics.IncTokenRefreshes()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	requestedAt := s.now()
	if err := s.transport.postForm(ctx, tokenPath, form, &resp); err != nil {
		s.logger.Error("amadeus token request failed", "error", err)
		var e *apperr.Error
		status := 0
		if errors.As(err, &e) {
			status = e.Status
		}
		return nil, apperr.UpstreamAuth("failed to authenticate with amadeus", status, err)
	}
	if resp.AccessToken == "" {
		return nil, apperr.UpstreamAuth("amadeus token response had no access_token", 0, nil)
	}

	expiresAt := requestedAt.Add(time.Duration(resp.ExpiresIn)*time.Second - s.margin)
	s.logger.Info("amadeus token refreshed", "expires_in", resp.ExpiresIn)

	return &types.AccessToken{Value: resp.AccessToken, ExpiresAt: expiresAt}, nil
}
