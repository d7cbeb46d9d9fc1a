// Package server provides the HTTP API for hamta.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/granskad/hamta/internal/config"
	"github.com/granskad/hamta/internal/engine"
	"github.com/granskad/hamta/internal/indexer"
	"github.com/granskad/hamta/internal/storage"
)

// Server exposes question answering and index management over HTTP.
type Server struct {
	registry *engine.Registry
	indexer  *indexer.Indexer
	store    storage.Store
	cfg      *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server. store may be nil when no document database is
// configured; the status endpoint then omits database counts.
func NewServer(
	registry *engine.Registry,
	ix *indexer.Indexer,
	store storage.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		registry: registry,
		indexer:  ix,
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ask", s.handleAsk)
	r.Post("/api/v1/workspaces/{workspace}/index", s.handleRebuild)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
