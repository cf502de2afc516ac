package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/HerbHall/hakagen/internal/synth"
)

func newTestServer(ready ReadinessChecker) *Server {
	return newRunServer(&fakeRunner{}, okParams, ready, Options{})
}

func newRunServer(runner Runner, params ParamsFunc, ready ReadinessChecker, opts Options) *Server {
	logger, _ := zap.NewDevelopment()
	if opts.RateLimit == 0 {
		opts.RateLimit, opts.RateBurst = 1000, 1000
	}
	return New("127.0.0.1:0", runner, params, logger, ready, opts)
}

func okParams(RunRequest) (synth.Params, error) {
	return synth.Params{}, nil
}

func TestHandleHealthz(t *testing.T) {
	srv := newTestServer(nil)

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]string
	_ = json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "alive" {
		t.Errorf("status = %q, want %q", body["status"], "alive")
	}
}

func TestHandleReadyz(t *testing.T) {
	tests := []struct {
		name       string
		ready      ReadinessChecker
		wantStatus int
		wantBody   string
	}{
		{"nil checker", nil, http.StatusOK, "ready"},
		{"healthy", func(context.Context) error { return nil }, http.StatusOK, "ready"},
		{"database down", func(context.Context) error { return errors.New("database unreachable") }, http.StatusServiceUnavailable, "not ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(tt.ready)

			req := httptest.NewRequest("GET", "/readyz", http.NoBody)
			w := httptest.NewRecorder()
			srv.mux.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body map[string]string
			_ = json.NewDecoder(w.Body).Decode(&body)
			if body["status"] != tt.wantBody {
				t.Errorf("status = %q, want %q", body["status"], tt.wantBody)
			}
			if tt.wantStatus != http.StatusOK && !strings.Contains(body["error"], "database unreachable") {
				t.Errorf("error = %q, want the checker error", body["error"])
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(nil)

	req := httptest.NewRequest("GET", "/api/v1/health", http.NoBody)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Service != "hakagen" {
		t.Errorf("service = %q, want %q", body.Service, "hakagen")
	}
	if body.Version["version"] == "" {
		t.Error("expected version in response")
	}
}

func TestHandleMetrics(t *testing.T) {
	srv := newTestServer(nil)

	// Drive one request through the chain so the HTTP series exist.
	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", http.NoBody))

	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected Go runtime metrics in /metrics output")
	}
	if !strings.Contains(body, `hakagen_http_requests_total{method="GET",route="GET /healthz",status="200"}`) {
		t.Error("expected the healthz request to be counted by route")
	}
}

func TestMiddlewareChain_Integration(t *testing.T) {
	srv := newTestServer(nil)

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if v := w.Header().Get("X-Hakagen-Version"); v == "" {
		t.Error("expected X-Hakagen-Version header from middleware")
	}
	if v := w.Header().Get("X-Request-ID"); v == "" {
		t.Error("expected X-Request-ID header from middleware")
	}
	if v := w.Header().Get("X-Content-Type-Options"); v != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", v, "nosniff")
	}
}

func TestRunRoute_RejectsGet(t *testing.T) {
	srv := newTestServer(nil)

	req := httptest.NewRequest("GET", "/api/v1/runs", http.NoBody)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}
