package service

import (
	"log/slog"

	"github.com/webitel/feed-relay-service/infra/metrics"
	"github.com/webitel/feed-relay-service/internal/domain/feed"
	"github.com/webitel/feed-relay-service/internal/domain/model"
	"github.com/webitel/feed-relay-service/internal/domain/registry"
)

// Fanout pushes every new buffer packet to all open subscribers.
type Fanout struct {
	hub     registry.Hubber
	logger  *slog.Logger
	metrics *metrics.Registry
}

func NewFanout(hub registry.Hubber, logger *slog.Logger, m *metrics.Registry) *Fanout {
	return &Fanout{
		hub:     hub,
		logger:  logger.With("component", "fanout"),
		metrics: m,
	}
}

// Bind subscribes the fanout to the buffer. Call once at startup.
func (f *Fanout) Bind(b *feed.Buffer) {
	b.Subscribe(f.OnPacket)
}

// OnPacket serializes the packet once and offers it to every subscriber.
func (f *Fanout) OnPacket(p *model.Packet) {
	if _, err := p.Wire(); err != nil {
		f.logger.Error("PACKET_ENCODE_FAILED", "err", err, "event", p.Event(), "seq", p.Seq())
		return
	}

	sent, skipped := f.hub.Broadcast(p)
	f.metrics.Broadcast(sent, skipped)
}
