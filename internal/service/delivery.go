package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/webitel/feed-relay-service/infra/metrics"
	"github.com/webitel/feed-relay-service/internal/domain/feed"
	"github.com/webitel/feed-relay-service/internal/domain/model"
	"github.com/webitel/feed-relay-service/internal/domain/registry"
)

// [DELIVERY_SERVICE] PRIMARY INTERFACE FOR TRANSPORT HANDLERS (WebSocket/long-poll/gRPC)
type Deliverer interface {
	// Subscribe replays the retained packets newer than since into a fresh
	// connection and attaches it to the live fanout in one step.
	Subscribe(ctx context.Context, since uint64) (registry.Connector, error)
	Unsubscribe(connID uuid.UUID)
}

type DeliveryService struct {
	buffer  *feed.Buffer
	hub     registry.Hubber
	logger  *slog.Logger
	metrics *metrics.Registry
}

func NewDeliveryService(buffer *feed.Buffer, hub registry.Hubber, logger *slog.Logger, m *metrics.Registry) *DeliveryService {
	return &DeliveryService{
		buffer:  buffer,
		hub:     hub,
		logger:  logger.With("component", "delivery"),
		metrics: m,
	}
}

// [SUBSCRIBE] HANDLES CONNECTION LIFECYCLE INITIATION
func (s *DeliveryService) Subscribe(ctx context.Context, since uint64) (registry.Connector, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	conn := registry.NewConnector(ctx, s.hub.MailboxSize())

	// Replay is newest-first; clients render it in that display order.
	replayed := 0
	s.buffer.Join(func(p *model.Packet) {
		if p.Seq() > since && conn.Send(p) {
			replayed++
		}
	}, func() {
		s.hub.Register(conn)
	})

	s.metrics.Replayed(replayed)
	s.metrics.SetSubscribers(s.hub.Len())
	s.logger.Debug("SUBSCRIBER_JOINED", "conn_id", conn.GetID(), "replayed", replayed)

	return conn, nil
}

// [UNSUBSCRIBE] DETACHES AND CLOSES THE CONNECTION
func (s *DeliveryService) Unsubscribe(connID uuid.UUID) {
	s.hub.Unregister(connID)
	s.metrics.SetSubscribers(s.hub.Len())
	s.logger.Debug("SUBSCRIBER_LEFT", "conn_id", connID)
}
