package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/angeloszaimis/service-fabric/config"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server wraps http.Server with listen-address validation and graceful
// shutdown. Every fabric process (registry, orders, payments) serves through
// it so they share the same timeouts.
type Server struct {
	server *http.Server
}

// New builds a server for addr. The address must satisfy the same host:port
// rule the config layer applies to server.address.
func New(addr string, handler http.Handler) (*Server, error) {
	if err := config.ValidateHostPort(addr); err != nil {
		return nil, err
	}

	return &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
	}, nil
}

// Start blocks serving requests until Shutdown. A clean close is not
// reported as an error.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown drains in-flight requests, waiting at most shutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}
