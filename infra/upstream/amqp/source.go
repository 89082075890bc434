// Package amqp implements the upstream source on top of a watermill
// subscription, so the relay can sit behind a broker instead of the HTTP API.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	wamqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/feed-relay-service/internal/domain/model"
	"github.com/webitel/feed-relay-service/internal/service"
)

// SubscriberFactory builds a fresh subscriber for every stream session.
type SubscriberFactory func() (message.Subscriber, error)

// NewSubscriberFactory binds the durable queue <exchange>_<suffix> to the
// fanout exchange named after the topic.
func NewSubscriberFactory(url, queueSuffix string, logger watermill.LoggerAdapter) SubscriberFactory {
	return func() (message.Subscriber, error) {
		cfg := wamqp.NewDurablePubSubConfig(url, wamqp.GenerateQueueNameTopicNameWithSuffix(queueSuffix))
		return wamqp.NewSubscriber(cfg, logger)
	}
}

type Source struct {
	topic   string
	factory SubscriberFactory
	logger  *slog.Logger
}

func NewSource(topic string, factory SubscriberFactory, logger *slog.Logger) *Source {
	return &Source{
		topic:   topic,
		factory: factory,
		logger:  logger.With("component", "amqp_source", "topic", topic),
	}
}

// Stream subscribes to the topic. Broker failures surface here so the
// connector retries them like any other failed connect.
func (s *Source) Stream(ctx context.Context, filter string) (model.TweetStream, error) {
	sub, err := s.factory()
	if err != nil {
		return nil, fmt.Errorf("amqp subscriber: %w", err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	messages, err := sub.Subscribe(subCtx, s.topic)
	if err != nil {
		cancel()
		_ = sub.Close()
		return nil, fmt.Errorf("amqp subscribe %s: %w", s.topic, err)
	}

	st := &stream{
		items:  make(chan model.Tweet),
		sub:    sub,
		cancel: cancel,
		done:   make(chan struct{}),
		filter: strings.ToLower(filter),
		logger: s.logger,
	}
	go st.read(subCtx, messages)
	return st, nil
}

// Search is not available on a broker subscription.
func (s *Source) Search(ctx context.Context, filter string, count int) ([]model.Tweet, error) {
	return nil, service.ErrSearchUnsupported
}

type stream struct {
	items  chan model.Tweet
	sub    message.Subscriber
	cancel context.CancelFunc
	done   chan struct{}
	filter string
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

func (s *stream) Recv() <-chan model.Tweet { return s.items }

// Err is always nil: the subscriber closes its channel only on shutdown and
// reports broker errors through the logger.
func (s *stream) Err() error { return nil }

func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.closeErr = s.sub.Close()
	})
	<-s.done
	return s.closeErr
}

func (s *stream) read(ctx context.Context, messages <-chan *message.Message) {
	defer close(s.done)
	defer close(s.items)

	for msg := range messages {
		t, ok := s.decode(msg)
		// [ACK] Malformed and filtered messages are terminal too.
		msg.Ack()
		if !ok {
			continue
		}

		select {
		case s.items <- t:
		case <-ctx.Done():
			return
		}
	}
}

func (s *stream) decode(msg *message.Message) (t model.Tweet, ok bool) {
	// [PANIC_RECOVERY]
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("PANIC_RECOVERED", "err", r, "stack", string(debug.Stack()), "msg_id", msg.UUID)
			ok = false
		}
	}()

	t, ok, err := model.ParseStatus(msg.Payload)
	if err != nil {
		s.logger.Warn("DECODE_FAILED", "err", err, "msg_id", msg.UUID)
		return model.Tweet{}, false
	}
	if !ok || !s.matches(t) {
		return model.Tweet{}, false
	}
	return t, true
}

func (s *stream) matches(t model.Tweet) bool {
	return s.filter == "" || strings.Contains(strings.ToLower(t.Text), s.filter)
}
