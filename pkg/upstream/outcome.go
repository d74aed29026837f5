// Package upstream performs single fetch attempts against one data source
// (the FPL API, a secondary archive, or a static snapshot) and classifies
// the result into a closed set of outcomes.
package upstream

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Class is the classification of one source attempt.
type Class string

const (
	// ClassSuccess represents a 2xx/3xx response.
	ClassSuccess Class = "success"

	// ClassRateLimited represents a 403, which the FPL API uses for throttling.
	ClassRateLimited Class = "rate_limited"

	// ClassClient represents 4xx client errors other than 403.
	ClassClient Class = "client_error"

	// ClassServer represents 5xx server errors.
	ClassServer Class = "server_error"

	// ClassNetwork represents transport failures: refused connections,
	// timeouts, DNS failures, unreadable bodies and failed local reads.
	ClassNetwork Class = "network_error"
)

// TransportResult is the raw result of one attempt, before classification.
type TransportResult struct {
	StatusCode int
	Body       []byte
	Err        error
}

// Outcome is the classified result of one source attempt.
// Exactly one Class applies.
type Outcome struct {
	Source     string
	Class      Class
	StatusCode int
	Body       []byte
	Err        error
}

// Terminal reports whether the outcome ends a fallback walk with a payload.
// A rate-limited answer only does when its body is a JSON document; an empty
// body or a throttling page has nothing to serve.
func (o Outcome) Terminal() bool {
	switch o.Class {
	case ClassSuccess:
		return true
	case ClassRateLimited:
		return json.Valid(o.Body)
	}
	return false
}

// Retryable reports whether a different source may succeed where this one failed.
func (o Outcome) Retryable() bool {
	switch o.Class {
	case ClassServer, ClassNetwork:
		return true
	case ClassRateLimited:
		return !o.Terminal()
	}
	return false
}

// String renders the outcome for logs and error messages.
func (o Outcome) String() string {
	switch {
	case o.Err != nil:
		return fmt.Sprintf("%s %s: %v", o.Source, o.Class, o.Err)
	case o.StatusCode != 0:
		return fmt.Sprintf("%s %s (status %d %s)", o.Source, o.Class, o.StatusCode, http.StatusText(o.StatusCode))
	default:
		return fmt.Sprintf("%s %s", o.Source, o.Class)
	}
}
