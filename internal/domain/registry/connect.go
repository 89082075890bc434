package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/feed-relay-service/internal/domain/model"
)

// Interface guard
var _ Connector = (*connect)(nil)

// [CONNECTOR] THE INTERFACE FOR EXTERNAL LAYERS (HUB/TRANSPORT HANDLERS)
type Connector interface {
	GetID() uuid.UUID
	Send(p *model.Packet) bool // Non-blocking offer; false when closed or full
	Recv() <-chan *model.Packet
	Done() <-chan struct{}
	IsOpen() bool
	Dropped() uint64
	Close() // Terminate connection and release resources
}

// [CONNECT] CONCRETE IMPLEMENTATION (UNEXPORTED TO FORCE INTERFACE USAGE)
type connect struct {
	id        uuid.UUID
	createdAt time.Time
	ctx       context.Context
	cancelFn  context.CancelFunc

	// mu guards sendCh against a Send racing with Close.
	mu     sync.RWMutex
	closed bool
	sendCh chan *model.Packet

	closeOnce    sync.Once
	droppedCount atomic.Uint64
}

// NewConnector creates a subscriber mailbox bound to ctx. Cancelling ctx marks
// the connection as not open; the hub janitor reclaims it.
func NewConnector(ctx context.Context, bufferSize int) Connector {
	childCtx, cancel := context.WithCancel(ctx)

	return &connect{
		id:        uuid.New(),
		createdAt: time.Now(),
		ctx:       childCtx,
		cancelFn:  cancel,
		sendCh:    make(chan *model.Packet, bufferSize),
	}
}

func (c *connect) GetID() uuid.UUID           { return c.id }
func (c *connect) Recv() <-chan *model.Packet { return c.sendCh }
func (c *connect) Done() <-chan struct{}      { return c.ctx.Done() }
func (c *connect) Dropped() uint64            { return c.droppedCount.Load() }

// IsOpen reports whether the transport side is still alive.
func (c *connect) IsOpen() bool {
	return c.ctx.Err() == nil
}

// Send enqueues the packet without waiting. A saturated mailbox means the
// transport is not draining; the packet is dropped and counted.
func (c *connect) Send(p *model.Packet) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed || c.ctx.Err() != nil {
		return false
	}

	select {
	case c.sendCh <- p:
		return true
	default:
		c.droppedCount.Add(1)
		return false
	}
}

// Close terminates the session. Safe to call more than once and concurrently
// from the hub (shutdown, janitor) and the transport handler (defer).
func (c *connect) Close() {
	c.closeOnce.Do(func() {
		// [SIGNAL_ABORT] Stop accepting packets before the channel goes away.
		c.cancelFn()

		// [UPSTREAM_NOTIFY] A closed channel tells the write pump to exit.
		c.mu.Lock()
		c.closed = true
		close(c.sendCh)
		c.mu.Unlock()
	})
}
