package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/webitel/feed-relay-service/infra/metrics"
	"github.com/webitel/feed-relay-service/internal/domain/model"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// fakeStream is a controllable upstream subscription.
type fakeStream struct {
	ch     chan model.Tweet
	mu     sync.Mutex
	err    error
	closed bool
	once   sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{ch: make(chan model.Tweet, 16)}
}

func (s *fakeStream) Recv() <-chan model.Tweet { return s.ch }

func (s *fakeStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// fail ends the stream with err, as a mid-stream upstream error would.
func (s *fakeStream) fail(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.ch)
	})
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.fail(nil)
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeSource hands out scripted connect results in order.
type fakeSource struct {
	mu        sync.Mutex
	connects  []error
	streams   chan *fakeStream
	attempts  int
	search    []model.Tweet
	searchErr error
}

func newFakeSource(connectErrs ...error) *fakeSource {
	return &fakeSource{connects: connectErrs, streams: make(chan *fakeStream, 8)}
}

func (f *fakeSource) Stream(ctx context.Context, filter string) (model.TweetStream, error) {
	f.mu.Lock()
	i := f.attempts
	f.attempts++
	var err error
	if i < len(f.connects) {
		err = f.connects[i]
	}
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	s := newFakeStream()
	f.streams <- s
	return s, nil
}

func (f *fakeSource) Search(ctx context.Context, filter string, count int) ([]model.Tweet, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.search, nil
}

func (f *fakeSource) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

var errRefused = errors.New("connection refused")

// recordingPusher captures pushes in order.
type recordingPusher struct {
	mu     sync.Mutex
	pushes []model.Tweet
}

func (r *recordingPusher) Push(eventType string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, payload.(model.Tweet))
}

func (r *recordingPusher) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.pushes))
	for _, t := range r.pushes {
		ids = append(ids, t.ID)
	}
	return ids
}

func newTestForwarder(p Pusher) *Forwarder {
	return NewForwarder(p, model.EventTweet, 64, metrics.NewRegistry())
}
