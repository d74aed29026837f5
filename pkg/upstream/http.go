package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Sternrassler/fpl-proxy/pkg/resource"
)

// DefaultMaxBodyBytes caps response bodies; bootstrap-static is a few MB.
const DefaultMaxBodyBytes = 32 << 20

// PathFunc maps a descriptor onto a path relative to a source's base URL.
// It returns false when the source does not serve the descriptor's family.
type PathFunc func(resource.Descriptor) (string, bool)

// HTTPConfig holds the configuration of a remote source.
type HTTPConfig struct {
	// Name identifies the source in logs and metrics (e.g. "primary")
	Name string

	// BaseURL is prefixed to every mapped path
	BaseURL string

	// Path maps descriptors onto paths
	Path PathFunc

	// UserAgent header sent with every request
	UserAgent string

	// MaxBodyBytes limits how much of a body is read (default: DefaultMaxBodyBytes)
	MaxBodyBytes int64

	// Client is the HTTP client to use (default: a client without its own timeout;
	// the Fetcher bounds every attempt through the request context)
	Client *http.Client
}

// HTTPSource fetches resources from a remote JSON API.
type HTTPSource struct {
	name      string
	baseURL   string
	path      PathFunc
	userAgent string
	maxBody   int64
	client    *http.Client
}

// NewHTTPSource creates a remote source.
func NewHTTPSource(cfg HTTPConfig) (*HTTPSource, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("source name is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required for source %q", cfg.Name)
	}
	if cfg.Path == nil {
		return nil, fmt.Errorf("path mapping is required for source %q", cfg.Name)
	}

	s := &HTTPSource{
		name:      cfg.Name,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		path:      cfg.Path,
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
		client:    cfg.Client,
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	if s.client == nil {
		s.client = &http.Client{}
	}
	return s, nil
}

// Name implements Source.
func (s *HTTPSource) Name() string {
	return s.name
}

// RoundTrip performs one GET request.
func (s *HTTPSource) RoundTrip(ctx context.Context, d resource.Descriptor) TransportResult {
	path, ok := s.path(d)
	if !ok {
		return TransportResult{Err: fmt.Errorf("%w: %s by %s", ErrNotServed, d.Family, s.name)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return TransportResult{Err: fmt.Errorf("create request: %w", err)}
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return TransportResult{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody+1))
	if err != nil {
		return TransportResult{Err: fmt.Errorf("read response body: %w", err)}
	}
	if int64(len(body)) > s.maxBody {
		return TransportResult{Err: fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, s.maxBody)}
	}

	// Success bodies must be JSON; anything else means a broken source
	// (maintenance pages, truncated responses) and the next source is tried.
	if resp.StatusCode >= 200 && resp.StatusCode < 300 && !json.Valid(body) {
		return TransportResult{Err: fmt.Errorf("%w: status %d from %s", ErrMalformedBody, resp.StatusCode, s.name)}
	}

	return TransportResult{
		StatusCode: resp.StatusCode,
		Body:       body,
	}
}
