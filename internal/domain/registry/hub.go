/*
Package registry tracks live subscriber connections and fans packets out to them.

Each connection owns a buffered mailbox drained by its transport write pump,
so a slow client never blocks the broadcast path: Broadcast only offers the
packet to each open mailbox and moves on.
*/
package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/feed-relay-service/internal/domain/model"
	"golang.org/x/sync/errgroup"
)

// Hubber defines the gateway for subscriber management and fanout.
type Hubber interface {
	Broadcast(p *model.Packet) (sent, skipped int)
	Register(conn Connector)
	Unregister(connID uuid.UUID)
	Len() int
	MailboxSize() int
}

type hubConfig struct {
	evictionInterval time.Duration
	mailboxSize      int
}

// Hub implements a [SCALABLE_REGISTRY] keyed by connection id.
type Hub struct {
	// conns stores Map[uuid.UUID]Connector. Optimized for [READ_HEAVY] workloads.
	conns sync.Map
	count atomic.Int64

	config hubConfig

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		config: hubConfig{
			evictionInterval: time.Minute,
			mailboxSize:      256,
		},
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Len() int         { return int(h.count.Load()) }
func (h *Hub) MailboxSize() int { return h.config.mailboxSize }

// Broadcast offers the packet to every open connection. Connections that are
// not open are skipped silently; the janitor or their handler removes them.
func (h *Hub) Broadcast(p *model.Packet) (sent, skipped int) {
	h.conns.Range(func(_, val any) bool {
		conn, ok := val.(Connector)
		if !ok || !conn.IsOpen() {
			skipped++
			return true
		}
		if conn.Send(p) {
			sent++
		} else {
			skipped++
		}
		return true
	})
	return sent, skipped
}

// Register attaches a connection. Registering the same id twice is a no-op.
// After Shutdown the connection is closed instead of attached.
func (h *Hub) Register(conn Connector) {
	if h.stopped() {
		conn.Close()
		return
	}
	if _, loaded := h.conns.LoadOrStore(conn.GetID(), conn); !loaded {
		h.count.Add(1)
	}
	// Shutdown may have swept the map between the check and the store.
	if h.stopped() {
		h.Unregister(conn.GetID())
	}
}

func (h *Hub) stopped() bool {
	select {
	case <-h.stopCh:
		return true
	default:
		return false
	}
}

// Unregister detaches and closes the connection.
func (h *Hub) Unregister(connID uuid.UUID) {
	if val, ok := h.conns.LoadAndDelete(connID); ok {
		h.count.Add(-1)
		if conn, ok := val.(Connector); ok {
			conn.Close()
		}
	}
}

// Start launches the [JANITOR] that reclaims connections whose transport died
// without unregistering.
func (h *Hub) Start() {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ticker := time.NewTicker(h.config.evictionInterval)
		defer ticker.Stop()

		for {
			select {
			case <-h.stopCh:
				return
			case <-ticker.C:
				h.sweep()
			}
		}
	}()
}

func (h *Hub) sweep() int {
	removed := 0
	h.conns.Range(func(key, val any) bool {
		if conn, ok := val.(Connector); ok && !conn.IsOpen() {
			h.Unregister(key.(uuid.UUID))
			removed++
		}
		return true
	})
	return removed
}

// Shutdown stops the janitor and closes every connection, which ends their
// write pumps.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() { close(h.stopCh) })
	h.wg.Wait()

	var g errgroup.Group
	h.conns.Range(func(key, _ any) bool {
		id := key.(uuid.UUID)
		g.Go(func() error {
			h.Unregister(id)
			return nil
		})
		return true
	})
	_ = g.Wait()
}
