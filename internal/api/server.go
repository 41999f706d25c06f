package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/heron/internal/analyzer"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/portfolio"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, a *analyzer.Analyzer, engine *portfolio.Engine, version string) *Server {
	handler := NewHandler(repo, cache, bus, a, engine, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints (never rate limited)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes
	router.Route("/", func(r chi.Router) {
		r.Use(RateLimitMiddleware(cache, int64(cfg.RateLimit), time.Minute))

		// Account shelf
		r.Get("/accounts", handler.ListAccounts)
		r.Get("/accounts/{id}", handler.GetAccount)

		// Single-customer analysis
		r.Post("/analyze", handler.Analyze)
		r.Post("/compare", handler.Compare)
		r.Get("/comparisons/{customerID}", handler.GetComparison)

		// Dataset management
		r.Post("/datasets", handler.CreateDataset)
		r.Get("/datasets", handler.ListDatasets)
		r.Get("/datasets/{id}", handler.GetDataset)
		r.Delete("/datasets/{id}", handler.DeleteDataset)
		r.Get("/datasets/{id}/runs", handler.ListRuns)

		// Portfolio runs
		r.Post("/runs", handler.CreateRun)
		r.Get("/runs/{id}", handler.GetRun)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
