package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tariffshield/harrier/internal/dashboard"
	"github.com/tariffshield/harrier/internal/domain"
	"github.com/tariffshield/harrier/internal/history"
	"github.com/tariffshield/harrier/internal/htstable"
	"github.com/tariffshield/harrier/internal/pipeline"
	"github.com/tariffshield/harrier/internal/rules"
	"github.com/tariffshield/harrier/internal/tariff"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// ServerDeps bundles the collaborators the API needs.
type ServerDeps struct {
	Pipeline  *pipeline.Service
	Repo      domain.Repository
	Cache     domain.Cache
	Engine    *rules.Engine
	Tables    *htstable.Provider
	Calc      *tariff.Calculator
	Dashboard *dashboard.Service
	History   *history.Service
	Version   string
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, deps ServerDeps) *Server {
	handler := NewHandler(deps.Pipeline, deps.Repo, deps.Cache, deps.Engine, deps.Tables, deps.Calc, deps.Dashboard, deps.History, deps.Version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes (tenant required)
	router.Route("/", func(r chi.Router) {
		r.Use(TenantMiddleware)

		// Tariff computation and analysis
		r.Post("/lookup", handler.Lookup)
		r.Post("/analyze", handler.Analyze)
		r.Post("/search", handler.Search)
		r.Post("/alternatives", handler.Alternatives)
		r.Post("/cart/analyze", handler.AnalyzeCart)
		r.Post("/dashboard", handler.Dashboard)

		// Reference data
		r.Get("/categories", handler.Categories)
		r.Get("/policy", handler.Policy)
		r.Post("/table/reload", handler.ReloadTable)

		// Stored results
		r.Get("/analyses/{id}", handler.GetAnalysis)
		r.Get("/carts/{id}", handler.GetCartAnalysis)

		// Watch rule management
		r.Get("/watch-rules", handler.ListWatchRules)
		r.Get("/watch-rules/{id}", handler.GetWatchRule)
		r.Post("/watch-rules", handler.CreateWatchRule)
		r.Post("/watch-rules/reload", handler.ReloadWatchRules)
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
