package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	MaxConcurrent  int
	CORSOrigin     string
	Gatherer       prometheus.Gatherer
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(addr string) ServerConfig {
	return ServerConfig{
		Addr:           addr,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   60 * time.Second,
		RequestTimeout: 5 * time.Second,
		MaxConcurrent:  runtime.NumCPU() * 2,
		CORSOrigin:     "",
		Gatherer:       prometheus.DefaultGatherer,
	}
}

// routeLimits controls which middleware guards apply to a route.
type routeLimits struct {
	limit   bool          // take a concurrency slot
	timeout time.Duration // zero for none
}

// NewServer creates an HTTP server with all routes and middleware.
func NewServer(cfg ServerConfig, handlers *Handlers) *http.Server {
	mux := http.NewServeMux()

	// Concurrency limiter.
	sem := make(chan struct{}, cfg.MaxConcurrent)

	api := routeLimits{limit: true, timeout: cfg.RequestTimeout}
	files := routeLimits{limit: true}
	socket := routeLimits{}

	handle := func(pattern string, h http.HandlerFunc, lim routeLimits) {
		mux.HandleFunc(pattern, withMiddleware(h, sem, cfg, lim))
	}

	// Routes.
	handle("GET /api/v1/health", handlers.HandleHealth, api)
	handle("GET /api/v1/stats", handlers.HandleStats, api)
	handle("GET /api/cities", handlers.HandleCities, api)
	handle("GET /api/cities/{id}/graph", handlers.HandleGraph, files)
	handle("GET /api/cities/{id}/tiles", handlers.HandleTiles, files)
	handle("POST /api/cities/{id}/snap", handlers.HandleSnap, api)
	handle("POST /api/cities/{id}/search", handlers.HandleSearch, api)
	handle("GET /api/cities/{id}/play", handlers.HandlePlay, socket)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// ListenAndServe starts the server and blocks until ctx is done, then
// shuts down gracefully.
func ListenAndServe(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// withMiddleware wraps a handler with logging, recovery, security headers,
// and the route's concurrency and timeout limits.
func withMiddleware(handler http.HandlerFunc, sem chan struct{}, cfg ServerConfig, lim routeLimits) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Security headers.
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")

		// CORS.
		if cfg.CORSOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSOrigin)
		}

		// Concurrency limiter.
		if lim.limit {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			default:
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusServiceUnavailable, "service_unavailable", "")
				return
			}
		}

		// Recovery.
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic in handler", "path", r.URL.Path, "panic", rec)
				writeError(w, http.StatusInternalServerError, "internal_error", "")
			}
		}()

		if lim.timeout > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), lim.timeout)
			defer cancel()
			r = r.WithContext(ctx)
		}

		start := time.Now()
		handler(w, r)
		slog.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start).Round(time.Microsecond))
	}
}
