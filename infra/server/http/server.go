package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server owns the HTTP listener that carries the WebSocket, long-poll and
// operator endpoints.
type Server struct {
	Router chi.Router

	srv    *http.Server
	addr   string
	lis    net.Listener
	logger *slog.Logger
}

func New(addr string, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	return &Server{
		Router: r,
		srv: &http.Server{
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		addr:   addr,
		logger: logger.With("component", "http_server"),
	}
}

// Listen binds the address. Bind failures are returned to the caller so
// startup can abort.
func (s *Server) Listen() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", s.addr, err)
	}
	s.lis = lis
	return nil
}

// Addr is the bound address, valid after Listen.
func (s *Server) Addr() net.Addr {
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

// Serve blocks until the server is shut down.
func (s *Server) Serve() {
	s.logger.Info("HTTP_SERVER_STARTED", "addr", s.lis.Addr().String())
	if err := s.srv.Serve(s.lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("HTTP_SERVE_FAILED", "err", err)
	}
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx
// expires. Hijacked WebSocket connections are ended by the hub instead.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		_ = s.srv.Close()
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
