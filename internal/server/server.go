// Package server provides the HTTP API for intelhub.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MikePfunk28/intelhub/internal/config"
	"github.com/MikePfunk28/intelhub/internal/embedder"
	"github.com/MikePfunk28/intelhub/internal/keyword"
	"github.com/MikePfunk28/intelhub/internal/search"
	"github.com/MikePfunk28/intelhub/internal/storage"
	"github.com/MikePfunk28/intelhub/internal/vector"
)

// Server is the HTTP server for the intelhub API.
type Server struct {
	client   *search.Client
	embedSvc *embedder.Service
	store    storage.Storage
	vectors  vector.Index
	keywords keyword.Index
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	client *search.Client,
	embedSvc *embedder.Service,
	store storage.Storage,
	vectors vector.Index,
	keywords keyword.Index,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		client:   client,
		embedSvc: embedSvc,
		store:    store,
		vectors:  vectors,
		keywords: keywords,
		config:   cfg,
		logger:   logger,
	}
}

// Routes builds the router. Split out of Start so tests can drive the
// handlers through httptest.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/embeddings", s.handleEmbed)
	r.Post("/api/v1/embeddings/batch", s.handleBatch)
	r.Get("/api/v1/embeddings/stats", s.handleStats)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
