// Package server exposes species lookups, health and metrics over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/dexcache/internal/core/domain"
)

// Resolver answers a lookup key with a view.
type Resolver interface {
	Resolve(ctx context.Context, key string) (*domain.NormalizedView, bool, error)
}

// Config holds HTTP server settings.
type Config struct {
	Port           int
	RequestTimeout time.Duration
}

// Server provides the HTTP endpoints.
type Server struct {
	resolver Resolver
	probes   map[string]Probe
	timeout  time.Duration
	server   *http.Server
	log      *slog.Logger
}

// NewServer creates a new server. Probes feed /health/detailed, keyed by
// component name.
func NewServer(resolver Resolver, cfg Config, probes map[string]Probe) *Server {
	mux := http.NewServeMux()
	s := &Server{
		resolver: resolver,
		probes:   probes,
		timeout:  cfg.RequestTimeout,
		log:      slog.Default().With("component", "server"),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.withRequestID(s.withRecovery(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	mux.Handle("GET /api/species/{key}", s.instrument("species", s.withTimeout(http.HandlerFunc(s.handleSpecies))))
	mux.Handle("GET /api/species/{$}", s.instrument("species", http.HandlerFunc(s.handleBlankKey)))
	mux.Handle("GET /health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /health/detailed", s.instrument("health_detailed", http.HandlerFunc(s.handleDetailed)))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server. It returns nil after a graceful Stop.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
