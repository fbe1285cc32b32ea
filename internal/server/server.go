// Package server exposes a running Profiler over a read-only HTTP JSON API
// and a Prometheus /metrics endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/agbru/memprof/internal/logging"
	"github.com/agbru/memprof/internal/profiler"
)

// Timeouts applied to the underlying http.Server.
const (
	ReadHeaderTimeout = 5 * time.Second
	WriteTimeout      = 30 * time.Second
	IdleTimeout       = 60 * time.Second
	ShutdownTimeout   = 5 * time.Second
)

// Option configures a Server during construction.
type Option func(*Server)

// WithSecurityConfig replaces the default security configuration.
func WithSecurityConfig(cfg SecurityConfig) Option {
	return func(s *Server) { s.security = cfg }
}

// WithDefaultHorizon sets the prediction horizon used when the request
// does not provide one.
func WithDefaultHorizon(d time.Duration) Option {
	return func(s *Server) { s.horizon = d }
}

// WithTracerProvider traces requests with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) { s.tracerProvider = tp }
}

// Server serves the profiler API.
type Server struct {
	addr     string
	profiler *profiler.Profiler
	logger   logging.Logger
	metrics  *Metrics
	security SecurityConfig
	horizon  time.Duration

	tracerProvider trace.TracerProvider
}

// New builds a server for p listening on addr. The Prometheus collectors are
// bound to p immediately.
func New(addr string, p *profiler.Profiler, logger logging.Logger, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		profiler: p,
		logger:   logger,
		metrics:  NewMetrics(),
		security: DefaultSecurityConfig(),
		horizon:  time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics.BindProfiler(p)
	return s
}

// Handler returns the routed handler with security and metrics middleware,
// traced with one span per request.
func (s *Server) Handler() http.Handler {
	routes := map[string]http.HandlerFunc{
		"/healthz":             s.handleHealth,
		"/metrics":             s.handleMetrics,
		"/api/snapshot":        s.handleSnapshot,
		"/api/history":         s.handleHistory,
		"/api/stats":           s.handleStats,
		"/api/analysis":        s.handleAnalysis,
		"/api/leaks":           s.handleLeaks,
		"/api/recommendations": s.handleRecommendations,
		"/api/realtime":        s.handleRealtime,
		"/api/pattern":         s.handlePattern,
		"/api/prediction":      s.handlePrediction,
	}
	mux := http.NewServeMux()
	for path, h := range routes {
		mux.HandleFunc(path, SecurityMiddleware(s.security, s.metricsMiddleware(h)))
	}
	otelOpts := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	}
	if s.tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(s.tracerProvider))
	}
	return otelhttp.NewHandler(mux, "memprof.api", otelOpts...)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("http server listening", logging.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) metricsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.IncrementActiveRequests()
		defer s.metrics.DecrementActiveRequests()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next(rec, r)
		s.metrics.RecordRequest(r.URL.Path, rec.code, time.Since(start))
	}
}

// requireGET answers 405 for anything but GET and HEAD.
func (s *Server) requireGET(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	if s.logger != nil {
		s.logger.Debug("rejected method", logging.String("method", r.Method), logging.String("path", r.URL.Path))
	}
	return false
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && s.logger != nil {
		s.logger.Error("encoding response", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !s.requireGET(w, r) {
		return
	}
	s.metrics.WritePrometheus(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.requireGET(w, r) {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"running":  s.profiler.Running(),
		"session":  s.profiler.Session(),
		"counters": s.profiler.Counters(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.requireGET(w, r) {
		return
	}
	snap, ok := s.profiler.CurrentSnapshot()
	if !ok {
		s.writeError(w, http.StatusNotFound, "no snapshot captured yet")
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireGET(w, r) {
		return
	}
	history := s.profiler.History()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > s.security.MaxHistoryLimit {
			s.writeError(w, http.StatusBadRequest, "limit must be an integer in [1, "+strconv.Itoa(s.security.MaxHistoryLimit)+"]")
			return
		}
		if limit < len(history) {
			history = history[len(history)-limit:]
		}
	}
	s.writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireGET(w, r) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.profiler.CurrentStats())
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if !s.requireGET(w, r) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.profiler.AnalyzeHistory(r.Context()))
}

func (s *Server) handleLeaks(w http.ResponseWriter, r *http.Request) {
	if !s.requireGET(w, r) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.profiler.DetectLeaks())
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if !s.requireGET(w, r) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.profiler.Recommendations())
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	if !s.requireGET(w, r) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.profiler.RealTime())
}

func (s *Server) handlePattern(w http.ResponseWriter, r *http.Request) {
	if !s.requireGET(w, r) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.profiler.AccessPattern())
}

func (s *Server) handlePrediction(w http.ResponseWriter, r *http.Request) {
	if !s.requireGET(w, r) {
		return
	}
	horizon := s.horizon
	if raw := r.URL.Query().Get("horizon"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			s.writeError(w, http.StatusBadRequest, "horizon must be a positive duration such as 30s")
			return
		}
		horizon = d
	}
	s.writeJSON(w, http.StatusOK, s.profiler.Predict(horizon))
}
