package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/webitel/feed-relay-service/infra/metrics"
	"github.com/webitel/feed-relay-service/internal/domain/feed"
	"github.com/webitel/feed-relay-service/internal/domain/model"
)

// Dispatcher publishes packets to an external message bus.
type Dispatcher interface {
	Publish(ctx context.Context, topic string, p *model.Packet) error
}

// Mirror republishes every pushed packet to the message bus. Publishing runs
// off the push path: the buffer listener only enqueues.
type Mirror struct {
	dispatcher Dispatcher
	topic      string
	queue      chan *model.Packet
	logger     *slog.Logger
	metrics    *metrics.Registry

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewMirror(dispatcher Dispatcher, topic string, queueSize int, logger *slog.Logger, m *metrics.Registry) *Mirror {
	return &Mirror{
		dispatcher: dispatcher,
		topic:      topic,
		queue:      make(chan *model.Packet, queueSize),
		logger:     logger.With("component", "mirror", "topic", topic),
		metrics:    m,
		stopCh:     make(chan struct{}),
	}
}

func (m *Mirror) Bind(b *feed.Buffer) {
	b.Subscribe(m.OnPacket)
}

// OnPacket enqueues without blocking; a full queue drops the packet.
func (m *Mirror) OnPacket(p *model.Packet) {
	select {
	case m.queue <- p:
	default:
		m.metrics.MirrorPublish("dropped")
		m.logger.Warn("MIRROR_QUEUE_FULL: packet dropped", "seq", p.Seq())
	}
}

func (m *Mirror) Start() {
	m.wg.Add(1)
	go m.loop()
}

func (m *Mirror) loop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			m.flush()
			return
		case p := <-m.queue:
			m.publish(p)
		}
	}
}

// flush publishes whatever is still queued at shutdown.
func (m *Mirror) flush() {
	for {
		select {
		case p := <-m.queue:
			m.publish(p)
		default:
			return
		}
	}
}

func (m *Mirror) publish(p *model.Packet) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.dispatcher.Publish(ctx, m.topic, p); err != nil {
		m.metrics.MirrorPublish("error")
		m.logger.Error("MIRROR_PUBLISH_FAILED", "err", err, "seq", p.Seq())
		return
	}
	m.metrics.MirrorPublish("success")
}

// Stop drains the queue and waits for the publisher loop.
func (m *Mirror) Stop(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stopCh) })

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
