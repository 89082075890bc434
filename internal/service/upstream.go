package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/webitel/feed-relay-service/infra/metrics"
	"github.com/webitel/feed-relay-service/internal/domain/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// UpstreamConnector keeps a live upstream subscription open and forwards every
// received item into the buffer.
//
// It cycles Disconnected -> Connecting -> Connected. A failed connect and a
// stream that ends mid-way are handled the same way: back to Disconnected,
// wait retryDelay, connect again. There is no retry limit.
type UpstreamConnector struct {
	source     Streamer
	fwd        *Forwarder
	filter     string
	retryDelay time.Duration
	logger     *slog.Logger
	metrics    *metrics.Registry

	state atomic.Int32
}

func NewUpstreamConnector(source Streamer, fwd *Forwarder, filter string, retryDelay time.Duration, logger *slog.Logger, m *metrics.Registry) *UpstreamConnector {
	u := &UpstreamConnector{
		source:     source,
		fwd:        fwd,
		filter:     filter,
		retryDelay: retryDelay,
		logger:     logger.With("component", "upstream"),
		metrics:    m,
	}
	m.UpstreamState(Disconnected.String())
	return u
}

func (u *UpstreamConnector) State() State {
	return State(u.state.Load())
}

func (u *UpstreamConnector) setState(s State) {
	if State(u.state.Swap(int32(s))) != s {
		u.metrics.UpstreamState(s.String())
		u.logger.Debug("UPSTREAM_STATE", "state", s.String())
	}
}

// Run connects and reconnects until ctx is cancelled.
func (u *UpstreamConnector) Run(ctx context.Context) {
	defer u.setState(Disconnected)

	for {
		err := u.session(ctx)
		if ctx.Err() != nil {
			return
		}

		u.logger.Warn("UPSTREAM_UNAVAILABLE: retrying", "err", err, "retry_in", u.retryDelay.String())
		if !u.wait(ctx) {
			return
		}
	}
}

// session performs one connect attempt and, on success, forwards items until
// the stream ends or ctx is cancelled.
func (u *UpstreamConnector) session(ctx context.Context) error {
	u.setState(Connecting)

	stream, err := u.connect(ctx)
	if err != nil {
		u.setState(Disconnected)
		return err
	}

	u.setState(Connected)
	u.logger.Info("UPSTREAM_CONNECTED", "filter", u.filter)
	defer u.setState(Disconnected)

	for {
		select {
		case <-ctx.Done():
			u.drain(stream)
			return ctx.Err()

		case t, ok := <-stream.Recv():
			if !ok {
				if err := stream.Err(); err != nil {
					return fmt.Errorf("upstream stream: %w", err)
				}
				return ErrStreamClosed
			}
			u.fwd.Forward(t)
		}
	}
}

func (u *UpstreamConnector) connect(ctx context.Context) (model.TweetStream, error) {
	ctx, span := tracer.Start(ctx, "upstream.connect")
	defer span.End()
	span.SetAttributes(attribute.String("feed.filter", u.filter))

	stream, err := u.source.Stream(ctx, u.filter)
	u.metrics.ConnectAttempt(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "connect failed")
		return nil, fmt.Errorf("upstream connect: %w", err)
	}
	return stream, nil
}

// drain closes the stream, waits for its end and forwards whatever was
// already received so nothing is left mid-flight.
func (u *UpstreamConnector) drain(stream model.TweetStream) {
	if err := stream.Close(); err != nil && !errors.Is(err, context.Canceled) {
		u.logger.Warn("UPSTREAM_CLOSE_FAILED", "err", err)
	}
	for t := range stream.Recv() {
		u.fwd.Forward(t)
	}
	u.logger.Info("UPSTREAM_CLOSED")
}

// wait sleeps retryDelay; false means ctx was cancelled first.
func (u *UpstreamConnector) wait(ctx context.Context) bool {
	timer := time.NewTimer(u.retryDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
