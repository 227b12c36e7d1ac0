// Package server exposes the renderer over HTTP along with health and
// metrics endpoints.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmmcquay/sgf-renderer/internal/health"
	"github.com/dmmcquay/sgf-renderer/internal/logging"
	"github.com/dmmcquay/sgf-renderer/internal/metrics"
	"github.com/dmmcquay/sgf-renderer/internal/ratelimit"
	"github.com/dmmcquay/sgf-renderer/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultMaxBody = 1 << 20

// Options configures an HTTPServer.
type Options struct {
	Addr         string
	MaxBodyBytes int64
	Service      *service.Service
	Checker      *health.Checker
	// Limiter may be nil to disable rate limiting.
	Limiter    *ratelimit.Limiter
	Prometheus *metrics.PrometheusCollector
	// Gatherer backs /metrics. Nil selects the default registry.
	Gatherer prometheus.Gatherer
}

// HTTPServer serves render, describe, health and metrics endpoints.
type HTTPServer struct {
	server   *http.Server
	router   chi.Router
	logger   logging.ContextLogger
	listener net.Listener

	svc        *service.Service
	limiter    *ratelimit.Limiter
	prometheus *metrics.PrometheusCollector
	maxBody    int64
}

// NewHTTPServer builds the router. Nothing listens until Start.
func NewHTTPServer(opts Options, logger logging.ContextLogger) *HTTPServer {
	s := &HTTPServer{
		logger:     logger,
		svc:        opts.Service,
		limiter:    opts.Limiter,
		prometheus: opts.Prometheus,
		maxBody:    opts.MaxBodyBytes,
	}
	if s.maxBody <= 0 {
		s.maxBody = defaultMaxBody
	}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Recoverer)
	if opts.Prometheus != nil {
		r.Use(PrometheusMiddleware(opts.Prometheus))
	}

	if opts.Checker != nil {
		r.Get("/health", opts.Checker.LivenessHandler())
		r.Get("/ready", opts.Checker.ReadinessHandler())
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if s.svc != nil {
		r.Post("/render", s.handleRender)
		r.Post("/describe", s.handleDescribe)
	}

	s.router = r
	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Start binds the listener and serves in the background. Bind errors are
// returned; later serve errors are logged.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.logger.Info("Starting HTTP server", "addr", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address once started, or the configured one.
func (s *HTTPServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Stop gracefully stops the HTTP server.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}
