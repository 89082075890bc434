package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/webitel/feed-relay-service/infra/server/grpc/interceptors"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server owns the gRPC server instance and its listener.
type Server struct {
	*grpc.Server

	addr   string
	lis    net.Listener
	logger *slog.Logger
}

// New constructs a gRPC server with recovery, logging and tracing wired in.
func New(addr string, logger *slog.Logger, opts ...grpc.ServerOption) *Server {
	logger = logger.With("component", "grpc_server")

	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(recovery.WithRecoveryHandler(recoverPanic(logger))),
			logging.StreamServerInterceptor(InterceptorLogger(logger)),
			interceptors.NewStreamSessionInterceptor(),
		),
		grpc.ChainUnaryInterceptor(
			recovery.UnaryServerInterceptor(recovery.WithRecoveryHandler(recoverPanic(logger))),
			logging.UnaryServerInterceptor(InterceptorLogger(logger)),
		),
	}

	return &Server{
		Server: grpc.NewServer(append(base, opts...)...),
		addr:   addr,
		logger: logger,
	}
}

// InterceptorLogger adapts slog to the middleware logging interface.
func InterceptorLogger(l *slog.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}

func recoverPanic(logger *slog.Logger) recovery.RecoveryHandlerFunc {
	return func(p any) error {
		logger.Error("PANIC_RECOVERED", "err", p)
		return status.Errorf(codes.Internal, "internal error")
	}
}

// Listen binds the address. Bind failures are returned to the caller so
// startup can abort.
func (s *Server) Listen() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", s.addr, err)
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

// Serve blocks until the server stops.
func (s *Server) Serve() {
	s.logger.Info("GRPC_SERVER_STARTED", "addr", s.lis.Addr().String())
	if err := s.Server.Serve(s.lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		s.logger.Error("GRPC_SERVE_FAILED", "err", err)
	}
}

// Shutdown stops accepting streams and waits for active ones, falling back to
// a hard stop when ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.Stop()
		return fmt.Errorf("grpc graceful stop: %w", ctx.Err())
	}
}
