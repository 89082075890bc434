/*
Package feed holds the bounded event broadcast buffer.

The buffer keeps the most recent packets newest-first, announces every push to
its listeners synchronously and replays the retained history to late joiners.
Push announces under the write lock and Join replays and attaches under the
read lock, so a joining subscriber sees each packet exactly once: either in
the replay or through a later announcement.
*/
package feed

import (
	"sync"

	"github.com/webitel/feed-relay-service/internal/domain/model"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 20

// Listener receives every pushed packet. It runs under the buffer lock and
// must not block or call back into the buffer.
type Listener func(p *model.Packet)

// Buffer is a fixed-capacity, newest-first store of recent packets.
type Buffer struct {
	mu sync.RWMutex

	capacity int
	items    []*model.Packet // index 0 is the newest packet
	seq      uint64

	listeners []Listener
	onEvict   func(p *model.Packet)
}

func NewBuffer(capacity int, opts ...Option) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	b := &Buffer{
		capacity: capacity,
		items:    make([]*model.Packet, 0, capacity+1),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a listener for future pushes.
func (b *Buffer) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Push stores a new packet at the head, evicts from the tail down to capacity
// and announces the packet to every listener. It never blocks on I/O.
func (b *Buffer) Push(eventType string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	p := model.NewPacket(b.seq, eventType, payload)

	b.items = append(b.items, nil)
	copy(b.items[1:], b.items)
	b.items[0] = p

	for len(b.items) > b.capacity {
		last := len(b.items) - 1
		evicted := b.items[last]
		b.items[last] = nil
		b.items = b.items[:last]
		if b.onEvict != nil {
			b.onEvict(evicted)
		}
	}

	for _, l := range b.listeners {
		l(p)
	}
}

// Replay visits every retained packet, newest-first.
func (b *Buffer) Replay(visit func(p *model.Packet)) {
	b.Join(visit, nil)
}

// Join replays the retained packets to visit and then runs attach before any
// later push can be announced. attach may be nil.
func (b *Buffer) Join(visit func(p *model.Packet), attach func()) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, p := range b.items {
		visit(p)
	}
	if attach != nil {
		attach()
	}
}

// Snapshot copies the retained packets, newest-first.
func (b *Buffer) Snapshot() []*model.Packet {
	out := make([]*model.Packet, 0, b.capacity)
	b.Replay(func(p *model.Packet) {
		out = append(out, p)
	})
	return out
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

func (b *Buffer) Capacity() int { return b.capacity }
