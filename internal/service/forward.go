package service

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/webitel/feed-relay-service/infra/metrics"
	"github.com/webitel/feed-relay-service/internal/domain/model"
)

// Pusher is the write side of the feed buffer.
type Pusher interface {
	Push(eventType string, payload any)
}

// Forwarder is the single writer into the buffer. Backfill and the live
// stream both go through it, so an item seen twice is pushed once.
type Forwarder struct {
	mu        sync.Mutex
	buffer    Pusher
	eventType string
	seen      *lru.Cache[string, struct{}]
	metrics   *metrics.Registry
}

// NewForwarder remembers the ids of the last window forwarded items.
func NewForwarder(buffer Pusher, eventType string, window int, m *metrics.Registry) *Forwarder {
	if window <= 0 {
		window = 1
	}
	// [MEMORY_MANAGEMENT] Bounded id window; only recent repeats matter.
	seen, _ := lru.New[string, struct{}](window)

	return &Forwarder{
		buffer:    buffer,
		eventType: eventType,
		seen:      seen,
		metrics:   m,
	}
}

// Forward pushes t unless an item with the same id was already forwarded.
func (f *Forwarder) Forward(t model.Tweet) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if t.ID != "" {
		if f.seen.Contains(t.ID) {
			f.metrics.DuplicateFiltered()
			return false
		}
		f.seen.Add(t.ID, struct{}{})
	}

	f.buffer.Push(f.eventType, t)
	f.metrics.PacketPushed(f.eventType)
	return true
}
