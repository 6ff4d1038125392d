// Package api exposes the daemon's HTTP surface: job submission and status,
// application state reads, snapshots, catalog search and the SSE change feed.
// All mutation requests only enqueue; the worker is the sole writer.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/appdock/appdock/internal/apps"
	"github.com/appdock/appdock/internal/notify"
	"github.com/appdock/appdock/internal/orchestrator"
	"github.com/appdock/appdock/internal/state"
)

// Deps are the collaborators the server reads from and enqueues into.
type Deps struct {
	Queue   *orchestrator.Queue
	Store   *state.Store
	Bus     *notify.Bus
	Catalog *apps.Catalog
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
}

// Server represents the API server.
type Server struct {
	Addr   string
	router *chi.Mux
	server *http.Server
	deps   Deps
	log    *slog.Logger
}

// NewServer creates a new API server.
func NewServer(addr string, deps Deps, log *slog.Logger) *Server {
	s := &Server{
		Addr:   addr,
		router: chi.NewRouter(),
		deps:   deps,
		log:    log,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE streams outlive any fixed write deadline
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Post("/jobs", s.handleSubmitJob)
	s.router.Get("/jobs/{id}", s.handleGetJob)

	s.router.Get("/apps", s.handleListApps)
	s.router.Get("/apps/{id}", s.handleGetApp)
	s.router.Get("/snapshot", s.handleSnapshot)

	s.router.Get("/catalog", s.handleCatalog)

	// Server-Sent Events change feed
	s.router.Get("/events", s.handleEvents)

	if s.deps.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}
}

// Router exposes the mux for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the API server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Response represents a standard API response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Error writes an error response.
func (s *Server) Error(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Response{Success: false, Error: message})
}

// Success writes a success response.
func (s *Server) Success(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
