package rest

import (
	httpsrv "github.com/webitel/feed-relay-service/infra/server/http"
	"github.com/webitel/feed-relay-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rest-handler",
	fx.Provide(
		func(r *service.Relay) StateReporter { return r },
		NewRestHandler,
	),
	fx.Invoke(func(s *httpsrv.Server, h *RestHandler) {
		s.Router.Get("/recent", h.Recent)
		s.Router.Get("/healthz", h.Health)
	}),
)
