package grpc

import (
	"context"
	"log/slog"

	"github.com/webitel/feed-relay-service/config"
	"go.uber.org/fx"
)

var Module = fx.Module("grpc_server",
	fx.Provide(func(cfg *config.Config, logger *slog.Logger) *Server {
		return New(cfg.Server.GRPCAddr, logger)
	}),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := s.Listen(); err != nil {
					return err
				}
				go s.Serve()
				return nil
			},
			OnStop: s.Shutdown,
		})
	}),
)
