package http

import (
	"context"
	"log/slog"

	"github.com/webitel/feed-relay-service/config"
	"github.com/webitel/feed-relay-service/infra/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("http_server",
	fx.Provide(func(cfg *config.Config, logger *slog.Logger) *Server {
		return New(cfg.Server.Addr(), logger)
	}),
	fx.Invoke(func(s *Server, m *metrics.Registry) {
		s.Router.Method("GET", "/metrics", m.Handler())
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
