package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/Sternrassler/fpl-proxy/pkg/fallback"
	"github.com/Sternrassler/fpl-proxy/pkg/resource"
	"github.com/Sternrassler/fpl-proxy/pkg/upstream"
)

// Kind classifies a pipeline failure for the routing layer.
type Kind string

const (
	// KindUpstreamClient means the authoritative source rejected the request.
	KindUpstreamClient Kind = "upstream_client"

	// KindUpstreamExhausted means every source in the chain failed.
	KindUpstreamExhausted Kind = "upstream_exhausted"

	// KindInvalidRequest means the family or its parameters were not valid.
	KindInvalidRequest Kind = "invalid_request"

	// KindAborted means the caller's context ended before an outcome arrived.
	KindAborted Kind = "aborted"
)

// Error is the failure returned by Pipeline.Fetch.
type Error struct {
	Kind   Kind
	Family resource.Family

	// StatusCode is the upstream status for client errors and the suggested
	// status for invalid requests.
	StatusCode int

	// Last is the final source attempt for client and exhausted errors.
	Last upstream.Outcome

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.Family, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the failure onto the status the proxy answers with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindUpstreamClient:
		if e.StatusCode >= 400 && e.StatusCode < 500 {
			return e.StatusCode
		}
		return http.StatusBadGateway

	case KindUpstreamExhausted:
		switch {
		case isTimeout(e.Last.Err):
			return http.StatusGatewayTimeout
		case e.Last.StatusCode == http.StatusServiceUnavailable:
			return http.StatusServiceUnavailable
		default:
			return http.StatusBadGateway
		}

	case KindInvalidRequest:
		if e.StatusCode != 0 {
			return e.StatusCode
		}
		return http.StatusBadRequest

	case KindAborted:
		if errors.Is(e.Err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// IsClientError reports whether err is an upstream client rejection.
func IsClientError(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindUpstreamClient
}

// IsExhausted reports whether err means every source failed.
func IsExhausted(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindUpstreamExhausted
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// newError converts a resolve or wait failure into an *Error.
func newError(family resource.Family, err error) *Error {
	var clientErr *fallback.ClientError
	if errors.As(err, &clientErr) {
		return &Error{
			Kind:       KindUpstreamClient,
			Family:     family,
			StatusCode: clientErr.StatusCode(),
			Last:       clientErr.Outcome,
			Err:        err,
		}
	}

	var exhausted *fallback.ExhaustedError
	if errors.As(err, &exhausted) {
		return &Error{
			Kind:   KindUpstreamExhausted,
			Family: family,
			Last:   exhausted.Last(),
			Err:    err,
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindAborted, Family: family, Err: err}
	}

	// a panicking population or anything unexpected is a server-side failure
	return &Error{Kind: KindUpstreamExhausted, Family: family, Err: err}
}

func invalidRequest(family resource.Family, err error) *Error {
	status := http.StatusBadRequest
	if errors.Is(err, resource.ErrUnknownFamily) {
		status = http.StatusNotFound
	}
	return &Error{
		Kind:       KindInvalidRequest,
		Family:     family,
		StatusCode: status,
		Err:        err,
	}
}
