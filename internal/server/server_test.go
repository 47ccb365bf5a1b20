package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/dexcache/internal/core/domain"
	"github.com/vietddude/dexcache/internal/core/reqctx"
	"github.com/vietddude/dexcache/internal/resolver"
)

type stubResolver struct {
	views   map[string]*domain.NormalizedView
	err     error
	panics  bool
	lastKey string
	lastReq string
	lastCtx context.Context
}

func (s *stubResolver) Resolve(ctx context.Context, key string) (*domain.NormalizedView, bool, error) {
	s.lastKey = key
	s.lastReq = reqctx.RequestID(ctx)
	s.lastCtx = ctx
	if s.panics {
		panic("boom")
	}
	if strings.TrimSpace(key) == "" {
		return nil, false, resolver.ErrBlankKey
	}
	if s.err != nil {
		return nil, false, s.err
	}
	v, ok := s.views[key]
	return v, ok, nil
}

func newTestServer(res Resolver, probes map[string]Probe) http.Handler {
	return NewServer(res, Config{Port: 0, RequestTimeout: time.Second}, probes).Handler()
}

func do(t *testing.T, h http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSpecies_Found(t *testing.T) {
	res := &stubResolver{views: map[string]*domain.NormalizedView{
		"Pikachu": domain.MinimalView(25, "pikachu", "local"),
	}}
	h := newTestServer(res, nil)

	rec := do(t, h, "/api/species/Pikachu")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if res.lastKey != "Pikachu" {
		t.Errorf("expected key passed through unchanged, got %q", res.lastKey)
	}

	var got domain.NormalizedView
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != 25 || got.SourceURL != "local" {
		t.Errorf("unexpected body: %+v", got)
	}
}

func TestSpecies_NotFound(t *testing.T) {
	h := newTestServer(&stubResolver{}, nil)

	rec := do(t, h, "/api/species/missingno")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSpecies_BlankKey(t *testing.T) {
	h := newTestServer(&stubResolver{}, nil)

	for _, path := range []string{"/api/species/", "/api/species/%20%20"} {
		if rec := do(t, h, path); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}

func TestSpecies_UnexpectedError(t *testing.T) {
	h := newTestServer(&stubResolver{err: errors.New("boom")}, nil)

	if rec := do(t, h, "/api/species/pikachu"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestSpecies_PanicRecovered(t *testing.T) {
	h := newTestServer(&stubResolver{panics: true}, nil)

	rec := do(t, h, "/api/species/pikachu")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body errorResponse
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body.RequestID == "" {
		t.Error("expected request id in error body")
	}
}

func TestSpecies_RequestTimeoutApplied(t *testing.T) {
	res := &stubResolver{}
	h := newTestServer(res, nil)

	do(t, h, "/api/species/pikachu")

	deadline, ok := res.lastCtx.Deadline()
	if !ok {
		t.Fatal("expected request context to carry a deadline")
	}
	if remaining := time.Until(deadline); remaining > time.Second {
		t.Errorf("deadline too far out: %v", remaining)
	}
}

func TestRequestID(t *testing.T) {
	res := &stubResolver{}
	h := newTestServer(res, nil)

	rec := do(t, h, "/api/species/pikachu", RequestIDHeader, "abc-123")
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("expected echoed id, got %q", got)
	}
	if res.lastReq != "abc-123" {
		t.Errorf("expected id in context, got %q", res.lastReq)
	}

	rec = do(t, h, "/api/species/pikachu")
	generated := rec.Header().Get(RequestIDHeader)
	if len(generated) != 36 {
		t.Errorf("expected generated uuid, got %q", generated)
	}
	if res.lastReq != generated {
		t.Errorf("context id %q does not match header %q", res.lastReq, generated)
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(&stubResolver{}, nil)

	rec := do(t, h, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"status":"UP"}` {
		t.Errorf("unexpected body %s", body)
	}
}

func TestHealthDetailed(t *testing.T) {
	records := 3
	probes := map[string]Probe{
		"cache": func(context.Context) ComponentHealth {
			return ComponentHealth{Status: StatusUp, Backend: "memory"}
		},
		"store": func(context.Context) ComponentHealth {
			return ComponentHealth{Status: StatusUp, Backend: "sqlite", Records: &records}
		},
	}
	h := newTestServer(&stubResolver{}, probes)

	var report HealthReport
	rec := do(t, h, "/health/detailed")
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Status != StatusUp {
		t.Errorf("expected UP, got %s", report.Status)
	}
	if c := report.Components["store"]; c.Records == nil || *c.Records != 3 || c.Backend != "sqlite" {
		t.Errorf("unexpected store component: %+v", c)
	}

	probes["store"] = func(context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusDown, Backend: "postgres", Error: "connection refused"}
	}
	h = newTestServer(&stubResolver{}, probes)
	report = HealthReport{}
	rec = do(t, h, "/health/detailed")
	_ = json.NewDecoder(rec.Body).Decode(&report)
	if report.Status != StatusDegraded {
		t.Errorf("expected DEGRADED, got %s", report.Status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(&stubResolver{}, nil)
	do(t, h, "/api/species/missingno")

	rec := do(t, h, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "dexcache_http_requests_total") {
		t.Error("expected request counter exposed")
	}
}
