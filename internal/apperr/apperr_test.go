package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alex-user-go/travelgw/internal/apperr"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid request", apperr.InvalidRequest("from is required"), http.StatusBadRequest},
		{"configuration", apperr.Configuration("missing key"), http.StatusInternalServerError},
		{"upstream auth", apperr.UpstreamAuth("denied", http.StatusUnauthorized, nil), http.StatusInternalServerError},
		{"upstream 422 passes through", apperr.UpstreamRequest("bad", http.StatusUnprocessableEntity, nil), http.StatusUnprocessableEntity},
		{"upstream 429 passes through", apperr.UpstreamRequest("slow down", http.StatusTooManyRequests, nil), http.StatusTooManyRequests},
		{"upstream 503 becomes 500", apperr.UpstreamRequest("down", http.StatusServiceUnavailable, nil), http.StatusInternalServerError},
		{"not found is not an error", apperr.NotFoundUpstream("nothing"), http.StatusOK},
		{"wrapped", fmt.Errorf("search: %w", apperr.InvalidRequest("date")), http.StatusBadRequest},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.HTTPStatus(tt.err))
		})
	}
}

func TestSentinels(t *testing.T) {
	err := fmt.Errorf("wrap: %w", apperr.UpstreamRequest("timeout", 0, errors.New("dial tcp")))

	assert.ErrorIs(t, err, apperr.ErrUpstreamRequest)
	assert.NotErrorIs(t, err, apperr.ErrUpstreamAuth)
	assert.Equal(t, apperr.KindUpstreamRequest, apperr.KindOf(err))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(errors.New("x")))
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "from is required", apperr.PublicMessage(apperr.InvalidRequest("from is required")))
	assert.Equal(t, "internal server error", apperr.PublicMessage(errors.New("secret detail")))
}
