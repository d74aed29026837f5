package upstream

import "net/http"

// Classify maps a transport result onto an outcome class. It is a pure function.
func Classify(res TransportResult) Outcome {
	out := Outcome{
		StatusCode: res.StatusCode,
		Body:       res.Body,
		Err:        res.Err,
	}

	switch {
	case res.Err != nil:
		out.Class = ClassNetwork
	case res.StatusCode >= 200 && res.StatusCode < 400:
		out.Class = ClassSuccess
	case res.StatusCode == http.StatusForbidden:
		out.Class = ClassRateLimited
	case res.StatusCode >= 400 && res.StatusCode < 500:
		out.Class = ClassClient
	default:
		// 5xx, plus anything outside the HTTP status space (1xx, 0, 600+).
		out.Class = ClassServer
	}

	return out
}
