package service

import (
	"context"
	"fmt"
	"log/slog"
)

// Relay sequences startup: backfill runs to completion before the upstream
// connector starts forwarding live items, so the two never interleave.
type Relay struct {
	backfill *Backfiller
	upstream *UpstreamConnector
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRelay(backfill *Backfiller, upstream *UpstreamConnector, logger *slog.Logger) *Relay {
	return &Relay{
		backfill: backfill,
		upstream: upstream,
		logger:   logger.With("component", "relay"),
	}
}

// Start launches the relay in the background.
func (r *Relay) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		r.backfill.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		r.upstream.Run(ctx)
	}()
}

// Stop cancels the relay and waits for the upstream stream to be closed.
func (r *Relay) Stop(ctx context.Context) error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()

	select {
	case <-r.done:
		r.logger.Info("RELAY_STOPPED")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("relay stop: %w", ctx.Err())
	}
}

func (r *Relay) State() State { return r.upstream.State() }
