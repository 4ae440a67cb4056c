// Package http exposes the assessment API plus health, readiness and metrics
// endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the API and operational endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// Options configures the routes. Assessor and Ready are required; Areas and
// Monitor are optional and their routes answer 503 when unset. A nil
// Gatherer serves the default Prometheus registry.
type Options struct {
	Assessor Assessor
	Areas    AreaWriter
	Monitor  MonitorView
	Ready    sharedobs.ReadinessChecker
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// NewServer creates an HTTP server listening on addr.
func NewServer(addr string, opts Options) *Server {
	h := &handler{
		assessor: opts.Assessor,
		areas:    opts.Areas,
		monitor:  opts.Monitor,
		logger:   opts.Logger,
	}

	metricsHandler := promhttp.Handler()
	if opts.Gatherer != nil {
		metricsHandler = promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(tracingMiddleware)
	r.Use(loggingMiddleware(opts.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(opts.Ready))
	r.Handle("/metrics", metricsHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/areas/{state}/{city}/risk", h.areaRisk)
		r.Get("/areas/{state}/{city}/{area}/risk", h.areaRisk)
		r.Put("/areas/{state}/{city}/{area}", h.putProfile)
		r.Post("/events", h.postEvent)
		r.Post("/assessments/four-factor", h.fourFactor)
		r.Post("/assessments/two-factor", h.twoFactor)
		r.Get("/monitor/latest", h.monitorLatest)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: opts.Logger,
	}
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// ReadyAll reports ready only when every checker does.
type ReadyAll []sharedobs.ReadinessChecker

// CheckReadiness returns the first failing checker's error.
func (r ReadyAll) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
