package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/fpl-proxy/internal/testutil"
	"github.com/Sternrassler/fpl-proxy/pkg/cache"
	"github.com/Sternrassler/fpl-proxy/pkg/fallback"
	"github.com/Sternrassler/fpl-proxy/pkg/pipeline"
	"github.com/Sternrassler/fpl-proxy/pkg/resource"
	"github.com/Sternrassler/fpl-proxy/pkg/upstream"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var fixedNow = time.Date(2025, 8, 15, 18, 30, 0, 0, time.UTC)

// recordingFetcher records the last call and answers with a fixed result.
type recordingFetcher struct {
	mu     sync.Mutex
	family resource.Family
	params resource.Params
	calls  int

	body []byte
	err  error
}

func (f *recordingFetcher) Fetch(_ context.Context, family resource.Family, params resource.Params) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.family = family
	f.params = params
	f.calls++
	return f.body, f.err
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestServer(f Fetcher, ready Pinger) *Server {
	return New(f, Options{Ready: ready, Now: func() time.Time { return fixedNow }}, zerolog.Nop())
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(&recordingFetcher{}, nil)
	w := do(t, s, http.MethodGet, "/health")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decode(t, w)
	if body["status"] != "OK" {
		t.Errorf("status = %v, want OK", body["status"])
	}
	if body["service"] != "fpl-proxy" {
		t.Errorf("service = %v, want fpl-proxy", body["service"])
	}
	if body["timestamp"] != "2025-08-15T18:30:00Z" {
		t.Errorf("timestamp = %v", body["timestamp"])
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name  string
		ready Pinger
		want  int
	}{
		{"no dependency", nil, http.StatusOK},
		{"dependency up", pingFunc(func(context.Context) error { return nil }), http.StatusOK},
		{"dependency down", pingFunc(func(context.Context) error { return errors.New("redis: connection refused") }), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&recordingFetcher{}, tt.ready)
			w := do(t, s, http.MethodGet, "/ready")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRoutes_MapToFamilies(t *testing.T) {
	tests := []struct {
		path       string
		wantFamily resource.Family
		wantParams resource.Params
	}{
		{"/bootstrap-static", resource.FamilyBootstrap, resource.Params{}},
		{"/fixtures", resource.FamilyFixtures, resource.Params{}},
		{"/element-summary/302", resource.FamilyElementSummary, resource.Params{"id": "302"}},
		{"/live-event/12", resource.FamilyLiveEvent, resource.Params{"gw": "12"}},
		{"/picks/123456/7", resource.FamilyPicks, resource.Params{"manager_id": "123456", "gw": "7"}},
		{"/manager/123456", resource.FamilyManager, resource.Params{"id": "123456"}},
		{"/manager/123456/transfers", resource.FamilyManagerTransfers, resource.Params{"id": "123456"}},
		{"/manager/123456/history", resource.FamilyManagerHistory, resource.Params{"id": "123456"}},
		{"/league/314/2", resource.FamilyLeague, resource.Params{"league_id": "314", "page": "2"}},
		{"/league/mon/314/3", resource.FamilyLeagueByPhase, resource.Params{"league_id": "314", "phase": "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			f := &recordingFetcher{body: []byte(`{"ok":true}`)}
			s := newTestServer(f, nil)

			w := do(t, s, http.MethodGet, tt.path)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
			}
			if w.Body.String() != `{"ok":true}` {
				t.Errorf("body = %s, want payload verbatim", w.Body.String())
			}
			if f.family != tt.wantFamily {
				t.Errorf("family = %q, want %q", f.family, tt.wantFamily)
			}
			if len(f.params) != len(tt.wantParams) {
				t.Errorf("params = %v, want %v", f.params, tt.wantParams)
			}
			for k, v := range tt.wantParams {
				if f.params[k] != v {
					t.Errorf("param %s = %q, want %q", k, f.params[k], v)
				}
			}
		})
	}
}

func TestSuccessHeaders(t *testing.T) {
	s := newTestServer(&recordingFetcher{body: []byte(`[]`)}, nil)
	w := do(t, s, http.MethodGet, "/fixtures")

	headers := map[string]string{
		"Content-Type":                 "application/json",
		"Cache-Control":                "public, max-age=300",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, OPTIONS",
	}
	for k, want := range headers {
		if got := w.Header().Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if _, err := uuid.Parse(w.Header().Get(RequestIDHeader)); err != nil {
		t.Errorf("%s = %q, want a uuid", RequestIDHeader, w.Header().Get(RequestIDHeader))
	}
}

func TestRequestID_ReusesValidIncoming(t *testing.T) {
	s := newTestServer(&recordingFetcher{body: []byte(`[]`)}, nil)
	id := uuid.New().String()

	req := httptest.NewRequest(http.MethodGet, "/fixtures", nil)
	req.Header.Set(RequestIDHeader, id)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != id {
		t.Errorf("%s = %q, want %q", RequestIDHeader, got, id)
	}

	req = httptest.NewRequest(http.MethodGet, "/fixtures", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got == "not-a-uuid" {
		t.Error("invalid incoming request id should be replaced")
	}
}

func TestPreflight(t *testing.T) {
	f := &recordingFetcher{}
	s := newTestServer(f, nil)

	w := do(t, s, http.MethodOptions, "/bootstrap-static")
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("preflight should carry CORS headers")
	}
	if f.calls != 0 {
		t.Error("preflight must not fetch")
	}
}

func TestInvalidParams(t *testing.T) {
	paths := []string{
		"/element-summary/abc",
		"/element-summary/0",
		"/live-event/-1",
		"/picks/123/gw1",
		"/manager/12x/history",
		"/league/314/first",
		"/league/mon/314/99999999999999999999",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			f := &recordingFetcher{}
			s := newTestServer(f, nil)

			w := do(t, s, http.MethodGet, path)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if f.calls != 0 {
				t.Error("invalid parameters must not reach the pipeline")
			}
			body := decode(t, w)
			if _, ok := body["error"]; !ok {
				t.Errorf("error body = %v, want error field", body)
			}
			if body["timestamp"] != "2025-08-15T18:30:00Z" {
				t.Errorf("timestamp = %v", body["timestamp"])
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	s := newTestServer(&recordingFetcher{}, nil)

	for _, path := range []string{"/", "/dream-team", "/manager/1/cup"} {
		w := do(t, s, http.MethodGet, path)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, w.Code)
			continue
		}
		if body := decode(t, w); body["error"] != "Not Found" {
			t.Errorf("%s error = %v, want Not Found", path, body["error"])
		}
	}
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "upstream not found",
			err:        &pipeline.Error{Kind: pipeline.KindUpstreamClient, StatusCode: 404},
			wantStatus: http.StatusNotFound,
			wantMsg:    "Upstream rejected the request: Not Found",
		},
		{
			name: "exhausted by 503",
			err: &pipeline.Error{
				Kind: pipeline.KindUpstreamExhausted,
				Last: upstream.Outcome{Class: upstream.ClassServer, StatusCode: 503},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantMsg:    "All upstream sources failed",
		},
		{
			name:       "aborted",
			err:        &pipeline.Error{Kind: pipeline.KindAborted, Err: context.DeadlineExceeded},
			wantStatus: http.StatusGatewayTimeout,
			wantMsg:    "Request timed out",
		},
		{
			name:       "unrouted family",
			err:        &pipeline.Error{Kind: pipeline.KindInvalidRequest, StatusCode: 404, Err: resource.ErrUnknownFamily},
			wantStatus: http.StatusNotFound,
			wantMsg:    "Not Found",
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&recordingFetcher{err: tt.err}, nil)
			w := do(t, s, http.MethodGet, "/bootstrap-static")

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if body := decode(t, w); body["error"] != tt.wantMsg {
				t.Errorf("error = %v, want %q", body["error"], tt.wantMsg)
			}
			if w.Header().Get("Cache-Control") == CacheControl {
				t.Error("errors must not be marked cacheable")
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	s := newTestServer(panicFetcher{}, nil)
	w := do(t, s, http.MethodGet, "/fixtures")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

type panicFetcher struct{}

func (panicFetcher) Fetch(context.Context, resource.Family, resource.Params) ([]byte, error) {
	panic("fetcher exploded")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(&recordingFetcher{body: []byte(`[]`)}, nil)
	do(t, s, http.MethodGet, "/fixtures")

	w := do(t, s, http.MethodGet, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `fpl_http_requests_total{route="/fixtures",status="200"}`) {
		t.Error("metrics should count the served request")
	}
}

// TestEndToEnd serves requests through a real pipeline backed by a mock API.
func TestEndToEnd(t *testing.T) {
	api := testutil.NewMockUpstream()
	defer api.Close()

	api.SetResponse("/bootstrap-static/", testutil.NewJSONResponse(`{"events":[{"id":1}]}`))
	api.SetResponse("/entry/7/event/3/picks/", testutil.NewRateLimitResponse(`{"ok":true}`))

	primary, err := upstream.NewHTTPSource(upstream.HTTPConfig{
		Name:    upstream.SourcePrimary,
		BaseURL: api.URL(),
		Path:    resource.PrimaryPath,
	})
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}
	chain, err := fallback.NewChain(primary)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	routes := make(map[resource.Family]pipeline.Route)
	for family, policy := range pipeline.DefaultPolicies() {
		routes[family] = pipeline.Route{Policy: policy, Chain: chain}
	}

	p, err := pipeline.New(
		cache.NewStore(cache.DefaultConfig(), zerolog.Nop()),
		fallback.NewOrchestrator(upstream.NewFetcher(time.Second, zerolog.Nop()), zerolog.Nop()),
		routes,
		zerolog.Nop(),
	)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	s := newTestServer(p, nil)

	for i := 0; i < 3; i++ {
		w := do(t, s, http.MethodGet, "/bootstrap-static")
		if w.Code != http.StatusOK || w.Body.String() != `{"events":[{"id":1}]}` {
			t.Fatalf("bootstrap = %d %s", w.Code, w.Body.String())
		}
	}
	if got := api.RequestCount("/bootstrap-static/"); got != 1 {
		t.Errorf("upstream bootstrap requests = %d, want 1", got)
	}

	w := do(t, s, http.MethodGet, "/picks/7/3")
	if w.Code != http.StatusOK || w.Body.String() != `{"ok":true}` {
		t.Errorf("picks = %d %s, want 200 with the 403 body", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodGet, "/element-summary/999")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown player status = %d, want 404", w.Code)
	}
}
