package upstream

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/fpl-proxy/internal/testutil"
	"github.com/Sternrassler/fpl-proxy/pkg/resource"
	"github.com/rs/zerolog"
)

func descriptor(t *testing.T, f resource.Family, p resource.Params) resource.Descriptor {
	t.Helper()
	d, err := resource.NewDescriptor(f, p)
	if err != nil {
		t.Fatalf("NewDescriptor: %v", err)
	}
	return d
}

func newPrimary(t *testing.T, baseURL string) *HTTPSource {
	t.Helper()
	src, err := NewHTTPSource(HTTPConfig{
		Name:      SourcePrimary,
		BaseURL:   baseURL,
		Path:      resource.PrimaryPath,
		UserAgent: "fpl-proxy-test/1.0",
	})
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}
	return src
}

func TestNewHTTPSource_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config HTTPConfig
	}{
		{"missing name", HTTPConfig{BaseURL: "http://x", Path: resource.PrimaryPath}},
		{"missing base url", HTTPConfig{Name: "primary", Path: resource.PrimaryPath}},
		{"missing path", HTTPConfig{Name: "primary", BaseURL: "http://x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewHTTPSource(tt.config); err == nil {
				t.Error("Expected error but got nil")
			}
		})
	}
}

func TestHTTPSource_RoundTrip(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	mock.SetResponse("/bootstrap-static/", testutil.NewJSONResponse(`{"events":[]}`))
	mock.SetResponse("/fixtures/", testutil.NewServerErrorResponse())
	mock.SetResponse("/entry/1/", testutil.MockResponse{StatusCode: http.StatusOK, Body: "<html>maintenance</html>"})
	mock.SetResponse("/entry/2/", testutil.NewRateLimitResponse(`{"ok":true}`))

	src := newPrimary(t, mock.URL()+"/")
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		res := src.RoundTrip(ctx, descriptor(t, resource.FamilyBootstrap, nil))
		if res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		if res.StatusCode != 200 || string(res.Body) != `{"events":[]}` {
			t.Errorf("got %d %s", res.StatusCode, res.Body)
		}
		if ua := mock.LastRequestHeader().Get("User-Agent"); ua != "fpl-proxy-test/1.0" {
			t.Errorf("User-Agent = %q", ua)
		}
	})

	t.Run("server error keeps status", func(t *testing.T) {
		res := src.RoundTrip(ctx, descriptor(t, resource.FamilyFixtures, nil))
		if res.Err != nil || res.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("got status %d err %v, want 503", res.StatusCode, res.Err)
		}
	})

	t.Run("non json success body", func(t *testing.T) {
		res := src.RoundTrip(ctx, descriptor(t, resource.FamilyManager, resource.Params{resource.ParamID: "1"}))
		if !errors.Is(res.Err, ErrMalformedBody) {
			t.Errorf("Err = %v, want ErrMalformedBody", res.Err)
		}
	})

	t.Run("rate limited keeps body", func(t *testing.T) {
		res := src.RoundTrip(ctx, descriptor(t, resource.FamilyManager, resource.Params{resource.ParamID: "2"}))
		if res.StatusCode != http.StatusForbidden || string(res.Body) != `{"ok":true}` {
			t.Errorf("got %d %s", res.StatusCode, res.Body)
		}
	})

	t.Run("unknown path is 404", func(t *testing.T) {
		res := src.RoundTrip(ctx, descriptor(t, resource.FamilyManager, resource.Params{resource.ParamID: "3"}))
		if res.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d, want 404", res.StatusCode)
		}
	})
}

func TestHTTPSource_NotServed(t *testing.T) {
	src, err := NewHTTPSource(HTTPConfig{
		Name:    SourceSecondary,
		BaseURL: "http://127.0.0.1:1",
		Path:    resource.SeasonArchivePath("2025-2026"),
	})
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}

	res := src.RoundTrip(context.Background(), descriptor(t, resource.FamilyManager, resource.Params{resource.ParamID: "1"}))
	if !errors.Is(res.Err, ErrNotServed) {
		t.Errorf("Err = %v, want ErrNotServed", res.Err)
	}
}

func TestHTTPSource_BodyLimit(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetResponse("/fixtures/", testutil.NewJSONResponse(`[1,2,3,4,5,6,7,8,9]`))

	src, err := NewHTTPSource(HTTPConfig{
		Name:         SourcePrimary,
		BaseURL:      mock.URL(),
		Path:         resource.PrimaryPath,
		MaxBodyBytes: 4,
	})
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}

	res := src.RoundTrip(context.Background(), descriptor(t, resource.FamilyFixtures, nil))
	if !errors.Is(res.Err, ErrBodyTooLarge) {
		t.Errorf("Err = %v, want ErrBodyTooLarge", res.Err)
	}
}

func TestFetcher_Fetch(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetResponse("/fixtures/", testutil.NewJSONResponse(`[]`))
	mock.SetResponse("/bootstrap-static/", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{}`,
		Delay:      2 * time.Second,
	})

	fetcher := NewFetcher(100*time.Millisecond, zerolog.Nop())
	src := newPrimary(t, mock.URL())
	ctx := context.Background()

	out := fetcher.Fetch(ctx, src, descriptor(t, resource.FamilyFixtures, nil))
	if out.Class != ClassSuccess || out.Source != SourcePrimary {
		t.Errorf("Fetch() = %v, want primary success", out)
	}

	start := time.Now()
	out = fetcher.Fetch(ctx, src, descriptor(t, resource.FamilyBootstrap, nil))
	if out.Class != ClassNetwork {
		t.Errorf("Fetch(slow) class = %q, want %q", out.Class, ClassNetwork)
	}
	if !errors.Is(out.Err, context.DeadlineExceeded) {
		t.Errorf("Fetch(slow) err = %v, want deadline exceeded", out.Err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Fetch(slow) took %v, timeout not applied", elapsed)
	}
}

func TestFetcher_ConnectionRefused(t *testing.T) {
	mock := testutil.NewMockUpstream()
	url := mock.URL()
	mock.Close()

	fetcher := NewFetcher(time.Second, zerolog.Nop())
	out := fetcher.Fetch(context.Background(), newPrimary(t, url), descriptor(t, resource.FamilyFixtures, nil))
	if out.Class != ClassNetwork {
		t.Errorf("class = %q, want %q", out.Class, ClassNetwork)
	}
}
