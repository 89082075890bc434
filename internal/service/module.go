package service

import (
	"context"
	"log/slog"

	"github.com/webitel/feed-relay-service/config"
	"github.com/webitel/feed-relay-service/infra/metrics"
	"github.com/webitel/feed-relay-service/internal/domain/feed"
	"go.uber.org/fx"
)

// seenWindowFactor sizes the duplicate-suppression window relative to capacity.
const seenWindowFactor = 4

var Module = fx.Module(
	"service",

	fx.Provide(
		fx.Annotate(
			NewDeliveryService,
			fx.As(new(Deliverer)),
		),
		NewFanout,
		func(cfg *config.Config, b *feed.Buffer, m *metrics.Registry) *Forwarder {
			return NewForwarder(b, cfg.Feed.EventType, seenWindowFactor*cfg.Feed.Capacity, m)
		},
		func(cfg *config.Config, src Source, fwd *Forwarder, logger *slog.Logger, m *metrics.Registry) *Backfiller {
			return NewBackfiller(src, fwd, cfg.Feed.Filter, cfg.Feed.BackfillSize, logger, m)
		},
		func(cfg *config.Config, src Source, fwd *Forwarder, logger *slog.Logger, m *metrics.Registry) *UpstreamConnector {
			return NewUpstreamConnector(src, fwd, cfg.Feed.Filter, cfg.Feed.RetryDelay, logger, m)
		},
		NewRelay,
	),

	// [DECORATION_LAYER] Intercept Source to add cross-cutting concerns
	fx.Decorate(func(orig Source, logger *slog.Logger) Source {
		return NewSourceMiddleware(orig, logger.With("component", "source"))
	}),

	// Fanout subscribes before the relay pushes anything.
	fx.Invoke(func(f *Fanout, b *feed.Buffer) {
		f.Bind(b)
	}),
	fx.Invoke(func(lc fx.Lifecycle, r *Relay) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				r.Start()
				return nil
			},
			OnStop: r.Stop,
		})
	}),
)

// MirrorModule republishes pushed packets to the bus. Requires a Dispatcher.
var MirrorModule = fx.Module(
	"mirror",

	fx.Provide(
		func(cfg *config.Config, d Dispatcher, logger *slog.Logger, m *metrics.Registry) *Mirror {
			return NewMirror(d, cfg.Mirror.Exchange, cfg.Mirror.QueueSize, logger, m)
		},
	),
	fx.Invoke(func(lc fx.Lifecycle, mirror *Mirror, b *feed.Buffer) {
		mirror.Bind(b)
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				mirror.Start()
				return nil
			},
			OnStop: mirror.Stop,
		})
	}),
)
