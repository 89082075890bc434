package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/webitel/feed-relay-service/config"
	"github.com/webitel/feed-relay-service/infra/metrics"
	grpcsrv "github.com/webitel/feed-relay-service/infra/server/grpc"
	httpsrv "github.com/webitel/feed-relay-service/infra/server/http"
	"github.com/webitel/feed-relay-service/infra/tracing"
	"github.com/webitel/feed-relay-service/infra/upstream"
	pubsubadapter "github.com/webitel/feed-relay-service/internal/adapter/pubsub"
	"github.com/webitel/feed-relay-service/internal/domain/feed"
	"github.com/webitel/feed-relay-service/internal/domain/registry"
	grpchandler "github.com/webitel/feed-relay-service/internal/handler/grpc"
	lphandler "github.com/webitel/feed-relay-service/internal/handler/lp"
	resthandler "github.com/webitel/feed-relay-service/internal/handler/rest"
	wshandler "github.com/webitel/feed-relay-service/internal/handler/ws"
	"github.com/webitel/feed-relay-service/internal/service"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// NewApp assembles the service. Modules are listed so that hooks start
// listeners first and stop them last: on shutdown the relay closes the
// upstream, the mirror drains, the hub closes every subscriber and only then
// do the servers stop.
func NewApp(cfg *config.Config) *fx.App {
	return fx.New(appOptions(cfg))
}

func appOptions(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
			ProvideMetrics,
		),
		fx.WithLogger(func(l *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: l.With("component", "fx")}
		}),
		fx.Invoke(RegisterTracing),

		transportModules(cfg),
		registry.Module,
		feed.Module,
		upstream.Module,
		mirrorModules(cfg),
		service.Module,
	)
}

func transportModules(cfg *config.Config) fx.Option {
	opts := []fx.Option{}
	if cfg.Server.GRPCAddr != "" {
		opts = append(opts, grpcsrv.Module, grpchandler.Module)
	}
	opts = append(opts,
		httpsrv.Module,
		wshandler.Module,
		lphandler.Module,
		resthandler.Module,
	)
	return fx.Options(opts...)
}

func mirrorModules(cfg *config.Config) fx.Option {
	if !cfg.Mirror.Enabled {
		return fx.Options()
	}
	return fx.Options(pubsubadapter.Module, service.MirrorModule)
}

// ProvideLogger builds the root logger. log.level is hot-reloaded when a
// config file is in use.
func ProvideLogger(cfg *config.Config) *slog.Logger {
	level := new(slog.LevelVar)
	level.Set(config.ParseLevel(cfg.Log.Level))

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Log.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	case "otel":
		handler = newTeeHandler(level,
			slog.NewJSONHandler(os.Stdout, opts),
			otelslog.NewHandler(ServiceName, otelslog.WithVersion(version)),
		)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", ServiceName, "version", version)
	slog.SetDefault(logger)

	cfg.Watch(func(next *config.Config) {
		lvl := config.ParseLevel(next.Log.Level)
		if lvl != level.Level() {
			level.Set(lvl)
			logger.Info("LOG_LEVEL_CHANGED", "level", lvl.String())
		}
	}, func(err error) {
		logger.Warn("CONFIG_RELOAD_FAILED", "err", err)
	})

	return logger
}

func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger.With("component", "watermill"))
}

func ProvideMetrics(cfg *config.Config) *metrics.Registry {
	m := metrics.NewRegistry()
	m.Info(version, cfg.Feed.Capacity)
	return m
}

// RegisterTracing installs the global tracer provider for the app lifetime.
func RegisterTracing(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) error {
	_, shutdown, err := tracing.NewProvider(context.Background(), tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: version,
		Namespace:      ServiceNamespace,
		Endpoint:       cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return err
	}
	if cfg.Tracing.Endpoint == "" {
		logger.Debug("TRACING_EXPORT_DISABLED")
	}
	lc.Append(fx.Hook{OnStop: shutdown})
	return nil
}
