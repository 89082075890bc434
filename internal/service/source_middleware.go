package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/webitel/feed-relay-service/internal/domain/model"
)

// SourceMiddleware implements [DECORATOR_PATTERN] to add observability
// to upstream calls without touching the driver.
type SourceMiddleware struct {
	Next   Source
	Logger *slog.Logger
}

// NewSourceMiddleware creates a new logging decorator for the Source.
func NewSourceMiddleware(next Source, logger *slog.Logger) Source {
	return &SourceMiddleware{
		Next:   next,
		Logger: logger,
	}
}

func (m *SourceMiddleware) Stream(ctx context.Context, filter string) (model.TweetStream, error) {
	start := time.Now()

	stream, err := m.Next.Stream(ctx, filter)
	if err != nil {
		m.Logger.Warn("UPSTREAM_STREAM_FAILED",
			"err", err,
			"filter", filter,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	m.Logger.Debug("UPSTREAM_STREAM_OPENED",
		"filter", filter,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return stream, nil
}

func (m *SourceMiddleware) Search(ctx context.Context, filter string, count int) ([]model.Tweet, error) {
	start := time.Now()

	res, err := m.Next.Search(ctx, filter, count)
	if err != nil {
		m.Logger.Warn("UPSTREAM_SEARCH_FAILED",
			"err", err,
			"filter", filter,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	m.Logger.Debug("UPSTREAM_SEARCH_COMPLETED",
		"filter", filter,
		"results", len(res),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
