// Package apperr defines the error taxonomy shared by provider clients,
// services and HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by how callers should react to it.
type Kind int

const (
	KindInternal Kind = iota
	KindConfiguration
	KindInvalidRequest
	KindUpstreamAuth
	KindUpstreamRequest
	KindNotFoundUpstream
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindInvalidRequest:
		return "invalid_request"
	case KindUpstreamAuth:
		return "upstream_auth"
	case KindUpstreamRequest:
		return "upstream_request"
	case KindNotFoundUpstream:
		return "not_found_upstream"
	default:
		return "internal"
	}
}

// Error is a classified error. Status carries the upstream HTTP status when
// one was observed.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Sentinels for errors.Is checks.
var (
	ErrConfiguration    = &Error{Kind: KindConfiguration}
	ErrInvalidRequest   = &Error{Kind: KindInvalidRequest}
	ErrUpstreamAuth     = &Error{Kind: KindUpstreamAuth}
	ErrUpstreamRequest  = &Error{Kind: KindUpstreamRequest}
	ErrNotFoundUpstream = &Error{Kind: KindNotFoundUpstream}
)

func Configuration(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

func InvalidRequest(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

func UpstreamAuth(msg string, status int, err error) *Error {
	return &Error{Kind: KindUpstreamAuth, Message: msg, Status: status, Err: err}
}

func UpstreamRequest(msg string, status int, err error) *Error {
	return &Error{Kind: KindUpstreamRequest, Message: msg, Status: status, Err: err}
}

func NotFoundUpstream(format string, args ...any) *Error {
	return &Error{Kind: KindNotFoundUpstream, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps err to the status code returned to the client.
// Not-found-upstream is not an error at the HTTP layer and maps to 200.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindNotFoundUpstream:
		return http.StatusOK
	case KindUpstreamRequest:
		switch e.Status {
		case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusTooManyRequests:
			return e.Status
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to put in an error response body.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal server error"
}
