package feed

import "github.com/webitel/feed-relay-service/internal/domain/model"

// Option defines a functional configuration type for the Buffer.
type Option func(*Buffer)

// WithEvictHook is called, under the buffer lock, for every packet dropped
// from the tail.
func WithEvictHook(fn func(p *model.Packet)) Option {
	return func(b *Buffer) {
		b.onEvict = fn
	}
}

// WithListener registers a listener at construction time.
func WithListener(l Listener) Option {
	return func(b *Buffer) {
		b.listeners = append(b.listeners, l)
	}
}
