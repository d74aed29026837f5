package upstream

import "errors"

// Common errors reported as transport failures.
var (
	// ErrNotServed is returned when a source has no mapping for a resource family.
	ErrNotServed = errors.New("resource not served by source")

	// ErrMalformedBody is returned when a 2xx body is not valid JSON.
	ErrMalformedBody = errors.New("malformed response body")

	// ErrBodyTooLarge is returned when a response exceeds the configured limit.
	ErrBodyTooLarge = errors.New("response body too large")
)
