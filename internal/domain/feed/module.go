package feed

import (
	"github.com/webitel/feed-relay-service/config"
	"github.com/webitel/feed-relay-service/infra/metrics"
	"github.com/webitel/feed-relay-service/internal/domain/model"
	"go.uber.org/fx"
)

var Module = fx.Module("feed",
	fx.Provide(
		func(cfg *config.Config, m *metrics.Registry) *Buffer {
			return NewBuffer(cfg.Feed.Capacity,
				WithEvictHook(func(*model.Packet) { m.PacketEvicted() }),
			)
		},
	),
)
