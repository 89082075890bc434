package ws

import (
	"github.com/webitel/feed-relay-service/config"
	httpsrv "github.com/webitel/feed-relay-service/infra/server/http"
	wsmarshaller "github.com/webitel/feed-relay-service/internal/handler/marshaller/ws"
	"go.uber.org/fx"
)

var Module = fx.Module("ws-handler",
	fx.Provide(
		// One frame per retained packet is enough: older packets are never replayed.
		func(cfg *config.Config) (*wsmarshaller.Marshaller, error) {
			return wsmarshaller.New(cfg.Feed.Capacity)
		},
		NewWSHandler,
	),
	fx.Invoke(func(s *httpsrv.Server, h *WSHandler) {
		s.Router.Method("GET", "/ws", h)
	}),
)
