// Package server exposes the worker's HTTP surface: intake endpoints,
// health and status, and read access to saved matches.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/processors"
	"github.com/ternarybob/venari/internal/queue"
)

// Deps are the services the HTTP layer fronts.
type Deps struct {
	Config  *common.Config
	Logger  arbor.ILogger
	Store   interfaces.StorageManager
	Intake  *processors.Intake
	Pool    *queue.WorkerPool
	Started time.Time
}

// Server manages the HTTP server and routes
type Server struct {
	deps   *Deps
	router *http.ServeMux
	server *http.Server
}

// New creates a new HTTP server over the given dependencies
func New(deps *Deps) *Server {
	s := &Server{deps: deps}

	s.router = s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", deps.Config.Server.Host, deps.Config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.deps.Logger.Info().
		Str("address", s.server.Addr).
		Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.deps.Logger.Info().Msg("Shutting down HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.deps.Logger.Info().Msg("HTTP server stopped")
	return nil
}
