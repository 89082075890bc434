package pubsub

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/feed-relay-service/internal/domain/model"
)

const (
	MetadataEventType = "event_type"
	MetadataSeq       = "seq"
)

// PacketDispatcher publishes packets in their wire form. It stays agnostic of
// the transport behind message.Publisher.
type PacketDispatcher struct {
	publisher message.Publisher
}

func NewPacketDispatcher(pub message.Publisher) *PacketDispatcher {
	return &PacketDispatcher{publisher: pub}
}

func (d *PacketDispatcher) Publish(ctx context.Context, topic string, p *model.Packet) error {
	if p == nil {
		return fmt.Errorf("packet dispatcher: cannot publish nil packet")
	}

	payload, err := p.Wire()
	if err != nil {
		return fmt.Errorf("packet dispatcher: marshal failure: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataEventType, p.Event())
	msg.Metadata.Set(MetadataSeq, strconv.FormatUint(p.Seq(), 10))
	msg.SetContext(ctx)

	if err := d.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("packet dispatcher: failed to publish to topic %s: %w", topic, err)
	}
	return nil
}
