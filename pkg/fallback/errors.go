package fallback

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/fpl-proxy/pkg/upstream"
)

// ErrEmptyChain is returned when a chain is built without any source.
var ErrEmptyChain = errors.New("source chain must not be empty")

// ClientError is an authoritative rejection: the request itself is wrong,
// so no other source is consulted.
type ClientError struct {
	Outcome upstream.Outcome
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	return fmt.Sprintf("upstream client error: %s", e.Outcome)
}

// StatusCode returns the status the source answered with.
func (e *ClientError) StatusCode() int {
	return e.Outcome.StatusCode
}

// ExhaustedError is returned when every source in a chain failed with a
// server or network error.
type ExhaustedError struct {
	// Attempts holds every outcome in chain order; the last one is the
	// failure that ended the walk.
	Attempts []upstream.Outcome
}

// Last returns the outcome of the final attempt.
func (e *ExhaustedError) Last() upstream.Outcome {
	if len(e.Attempts) == 0 {
		return upstream.Outcome{}
	}
	return e.Attempts[len(e.Attempts)-1]
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.String()
	}
	return fmt.Sprintf("all %d sources failed: %s", len(e.Attempts), strings.Join(parts, "; "))
}

// Unwrap exposes the last transport error, if any, for errors.Is/As.
func (e *ExhaustedError) Unwrap() error {
	return e.Last().Err
}
