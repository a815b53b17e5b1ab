package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alex-user-go/travelgw/internal/apperr"
)

const maxErrorBody = 64 << 10

// classifyFunc turns a non-2xx upstream response into a classified error.
// Returning nil falls back to the default classification.
type classifyFunc func(status int, body []byte) error

// httpTransport performs provider HTTP calls with a fixed timeout and JSON decoding.
type httpTransport struct {
	name       string
	baseURL    string
	httpClient *http.Client
	classify   classifyFunc
}

func newHTTPTransport(name, baseURL string, timeout time.Duration, classify classifyFunc) *httpTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &httpTransport{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		classify: classify,
	}
}

// getJSON issues a GET to baseURL+path with query parameters and decodes the body into out.
func (t *httpTransport) getJSON(ctx context.Context, path string, query url.Values, header http.Header, out any) error {
	// Build URL with query parameters
	u, err := url.Parse(t.baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	// Create request with context
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	return t.do(req, out)
}

// postForm issues a form-encoded POST to baseURL+path.
func (t *httpTransport) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return t.do(req, out)
}

func (t *httpTransport) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	// Execute request
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return apperr.UpstreamRequest(t.name+" request failed", 0, err)
	}
	defer func() {
		_ = resp.Body.Close() // Explicitly ignore close error
	}()

	// Check status code
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if t.classify != nil {
			if cerr := t.classify(resp.StatusCode, body); cerr != nil {
				return cerr
			}
		}
		return t.defaultError(resp.StatusCode, body)
	}

	// Parse JSON response
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.UpstreamRequest(t.name+" returned an unreadable response", resp.StatusCode, err)
	}

	return nil
}

func (t *httpTransport) defaultError(status int, body []byte) error {
	cause := fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(body)))
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return apperr.UpstreamAuth(t.name+" rejected the credentials", status, cause)
	}
	return apperr.UpstreamRequest(fmt.Sprintf("%s returned status %d", t.name, status), status, cause)
}
