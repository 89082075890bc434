package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/webitel/feed-relay-service/infra/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Backfiller seeds the buffer with recent history before live streaming, so
// the first subscribers do not see an empty feed.
type Backfiller struct {
	source  Searcher
	fwd     *Forwarder
	filter  string
	size    int
	logger  *slog.Logger
	metrics *metrics.Registry
}

func NewBackfiller(source Searcher, fwd *Forwarder, filter string, size int, logger *slog.Logger, m *metrics.Registry) *Backfiller {
	return &Backfiller{
		source:  source,
		fwd:     fwd,
		filter:  filter,
		size:    size,
		logger:  logger.With("component", "backfill"),
		metrics: m,
	}
}

// Run fetches up to size recent items and pushes them oldest-first. A failed
// query is logged and leaves the buffer as it was; Run never retries.
func (b *Backfiller) Run(ctx context.Context) int {
	if b.size <= 0 {
		return 0
	}

	ctx, span := tracer.Start(ctx, "feed.backfill")
	defer span.End()
	span.SetAttributes(attribute.String("feed.filter", b.filter), attribute.Int("feed.backfill_size", b.size))

	tweets, err := b.source.Search(ctx, b.filter, b.size)
	if errors.Is(err, ErrSearchUnsupported) {
		b.logger.Info("BACKFILL_SKIPPED: source has no history", "filter", b.filter)
		return 0
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		b.metrics.Backfill(0, err)
		b.logger.Warn("BACKFILL_FAILED: unable to fetch recent items", "err", err, "filter", b.filter)
		return 0
	}

	if len(tweets) > b.size {
		tweets = tweets[:b.size]
	}

	// Search is newest-first; push the oldest first so the buffer ends up in
	// true recency order.
	pushed := 0
	for i := len(tweets) - 1; i >= 0; i-- {
		if b.fwd.Forward(tweets[i]) {
			pushed++
		}
	}

	span.SetAttributes(attribute.Int("feed.backfill_pushed", pushed))
	b.metrics.Backfill(pushed, nil)
	b.logger.Info("BACKFILL_COMPLETED", "fetched", len(tweets), "pushed", pushed)
	return pushed
}
