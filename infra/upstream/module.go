// Package upstream selects the live source the relay streams from.
package upstream

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/webitel/feed-relay-service/config"
	"github.com/webitel/feed-relay-service/infra/upstream/amqp"
	"github.com/webitel/feed-relay-service/infra/upstream/twitter"
	"github.com/webitel/feed-relay-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("upstream",
	fx.Provide(NewSource),
)

// NewSource builds the source named by upstream.driver.
func NewSource(cfg *config.Config, logger *slog.Logger, wmLogger watermill.LoggerAdapter) (service.Source, error) {
	switch cfg.Upstream.Driver {
	case config.DriverTwitter:
		if cfg.Twitter.BearerToken == "" {
			logger.Warn("TWITTER_TOKEN_MISSING: requests will be unauthenticated")
		}
		return twitter.NewClient(twitter.Config{
			BaseURL:       cfg.Twitter.BaseURL,
			BearerToken:   cfg.Twitter.BearerToken,
			StreamPath:    cfg.Twitter.StreamPath,
			SearchPath:    cfg.Twitter.SearchPath,
			SearchTimeout: cfg.Twitter.SearchTimeout,
		}, logger), nil
	case config.DriverAMQP:
		factory := amqp.NewSubscriberFactory(cfg.AMQP.URL, cfg.AMQP.QueueSuffix, wmLogger)
		return amqp.NewSource(cfg.AMQP.Exchange, factory, logger), nil
	default:
		return nil, fmt.Errorf("unknown upstream driver %q", cfg.Upstream.Driver)
	}
}
