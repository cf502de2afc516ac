// Package server exposes the synthesis pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HerbHall/hakagen/internal/synth"
	"github.com/HerbHall/hakagen/internal/version"
)

// Runner executes one synthesis run.
type Runner interface {
	Run(ctx context.Context, params synth.Params) (*synth.Result, error)
}

// ParamsFunc turns a run request into pipeline parameters, filling in the
// configured defaults.
type ParamsFunc func(req RunRequest) (synth.Params, error)

// ReadinessChecker verifies that the server is ready to serve traffic.
// Returns nil if ready, an error describing why not otherwise.
type ReadinessChecker func(ctx context.Context) error

// Options tune the server. Zero values pick the defaults.
type Options struct {
	RateLimit  float64       // run requests per second per client
	RateBurst  int
	RunTimeout time.Duration // upper bound for one run
	// Target names the notification recipient in run responses.
	Target string
}

func (o *Options) defaults() {
	if o.RateLimit <= 0 {
		o.RateLimit = 1
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 5
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = 5 * time.Minute
	}
}

// Server is the hakagen HTTP trigger.
type Server struct {
	httpServer *http.Server
	runner     Runner
	params     ParamsFunc
	logger     *zap.Logger
	mux        *http.ServeMux
	ready      ReadinessChecker
	opts       Options

	// running serializes runs; they write to the same artifact key.
	running sync.Mutex
}

// New creates a Server with middleware and routes.
func New(addr string, runner Runner, params ParamsFunc, logger *zap.Logger, ready ReadinessChecker, opts Options) *Server {
	opts.defaults()
	mux := http.NewServeMux()

	s := &Server{
		runner: runner,
		params: params,
		logger: logger,
		mux:    mux,
		ready:  ready,
		opts:   opts,
	}
	s.registerRoutes()

	skip := []string{"/healthz", "/readyz", "/metrics"}
	// Middleware chain: outermost listed first.
	handler := Chain(mux,
		RecoveryMiddleware(logger),
		RequestIDMiddleware,
		LoggingMiddleware(logger, skip),
		SecurityHeadersMiddleware,
		VersionHeaderMiddleware,
		RateLimitMiddleware(opts.RateLimit, opts.RateBurst, skip),
	)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      opts.RunTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// registerRoutes sets up all routes.
func (s *Server) registerRoutes() {
	// Unversioned operational endpoints.
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Versioned API endpoints.
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/runs", s.handleRun)
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealthz is a liveness probe -- returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleReadyz reports whether the history database answers.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version map[string]string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: "hakagen",
		Version: version.Map(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
