package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/finsentry/aml-insight/internal/config"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
)

// Server wraps http.Server with the service's lifecycle conventions. The
// write timeout is generous because a generation call can legitimately hold
// the connection for minutes.
type Server struct {
	srv *http.Server
	log logging.Logger
}

// NewServer builds a Server from the server config and a fully wired handler.
func NewServer(cfg config.ServerConfig, handler http.Handler, log logging.Logger) *Server {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Server{
		log: log.Named("http_server"),
		srv: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Start blocks serving requests until Shutdown is called or the listener
// fails. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", logging.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.srv.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}
