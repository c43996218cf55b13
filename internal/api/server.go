package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/AshleyKelly/EphemGeolocTracker/internal/auth"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/estimate"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/health"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/httputil"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/metrics"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/tle"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/transform"
)

// Config holds the HTTP-facing settings.
type Config struct {
	EnableFetch     bool
	MaxVectorsPerIP int
	MaxVectorsTotal int
	TrustProxy      bool
	MaxBatch        int
	// DefaultObserver is used when a request omits the observer.
	// Nil makes the observer mandatory.
	DefaultObserver *transform.ObserverPosition
}

func DefaultConfig() Config {
	return Config{
		EnableFetch:     true,
		MaxVectorsPerIP: 4,
		MaxVectorsTotal: 256,
		MaxBatch:        100,
	}
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, cfg Config, source *tle.Source, est *estimate.Estimator) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           newHandler(logger, authCfg, cfg, source, est),
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      45 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

func newHandler(logger *slog.Logger, authCfg auth.Config, cfg Config, source *tle.Source, est *estimate.Estimator) http.Handler {
	h := newHandlers(cfg, source, est, logger)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(h.store.Loaded))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/tle/metadata", h.tleMetadata)
	mux.HandleFunc("POST /api/v1/tle/fetch", h.tleFetch)
	mux.HandleFunc("GET /api/v1/satellites", h.satellites)
	mux.HandleFunc("GET /api/v1/satellites/{norad_id}", h.satellite)
	mux.HandleFunc("GET /api/v1/vectors", h.vectors)
	mux.HandleFunc("POST /api/v1/trilaterate", h.trilaterate)
	mux.HandleFunc("POST /api/v1/trilaterate/batch", h.trilaterateBatch)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)
	return handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
