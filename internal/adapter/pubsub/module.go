package pubsub

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/feed-relay-service/config"
	"github.com/webitel/feed-relay-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pubsub",
	fx.Provide(
		func(lc fx.Lifecycle, cfg *config.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
			pub, err := NewAMQPPublisher(cfg.AMQP.URL, logger)
			if err != nil {
				return nil, err
			}
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error { return pub.Close() },
			})
			return pub, nil
		},
		fx.Annotate(
			NewPacketDispatcher,
			fx.As(new(service.Dispatcher)),
		),
	),
)
