package service

import (
	"context"
	"errors"

	"github.com/webitel/feed-relay-service/internal/domain/model"
)

var (
	// ErrStreamClosed reports an upstream stream that ended without an error.
	ErrStreamClosed = errors.New("upstream stream closed")
	// ErrSearchUnsupported is returned by sources without a history query.
	ErrSearchUnsupported = errors.New("upstream search not supported")
)

// Streamer opens a filtered live subscription. A returned stream is connected.
type Streamer interface {
	Stream(ctx context.Context, filter string) (model.TweetStream, error)
}

// Searcher queries recent history matching filter, newest-first, at most count items.
type Searcher interface {
	Search(ctx context.Context, filter string, count int) ([]model.Tweet, error)
}

// Source is the upstream event source collaborator.
type Source interface {
	Streamer
	Searcher
}
