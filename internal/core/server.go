// Package core provides the API chassis for the frostwatch service.
// It creates a chi router and enforces cross-cutting concerns -- panic
// recovery, request correlation, logging, and error handling -- before
// requests reach domain-specific handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"frostwatch/internal/config"
)

// Server encapsulates the dependencies of the HTTP API, allowing for easy
// injection during testing and distinct configuration for different
// environments.
type Server struct {
	Config *config.Config
	Logger *slog.Logger

	// HealthProbes are executed concurrently by the /health endpoint.
	HealthProbes []HealthProbe

	// V1RouteRegistrars are invoked under the /v1 namespace when routes are
	// mounted. Populated by the application entry point; this indirection
	// avoids import cycles between core and handler packages.
	V1RouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer initializes the router and prepares the server for route
// mounting. The caller is responsible for mounting routes (via MountRoutes)
// after construction; this separation allows tests to customize route
// registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config: cfg,
		Logger: logger,
		router: chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration and tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown performs a graceful termination of server-owned resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	for _, probe := range s.HealthProbes {
		if closer, ok := probe.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				s.Logger.Error("error closing probe resources",
					"probe", probe.Name(), "error", err)
				return fmt.Errorf("closing %s: %w", probe.Name(), err)
			}
		}
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
