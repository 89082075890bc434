package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/webitel/feed-relay-service/infra/metrics"
	"github.com/webitel/feed-relay-service/internal/domain/model"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for %s", what)
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func nextStream(t *testing.T, src *fakeSource) *fakeStream {
	t.Helper()
	select {
	case s := <-src.streams:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("connector never connected")
		return nil
	}
}

func startConnector(t *testing.T, src *fakeSource, p Pusher) (*UpstreamConnector, context.CancelFunc, <-chan struct{}) {
	t.Helper()
	u := NewUpstreamConnector(src, newTestForwarder(p), "#hack24", 10*time.Millisecond, testLogger(), metrics.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		u.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return u, cancel, done
}

func TestConnectorRetriesUntilConnected(t *testing.T) {
	src := newFakeSource(errRefused, errRefused)
	p := &recordingPusher{}
	u, _, _ := startConnector(t, src, p)

	s := nextStream(t, src)
	waitFor(t, "connected state", func() bool { return u.State() == Connected })
	if got := src.Attempts(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}

	s.ch <- model.Tweet{ID: "1"}
	s.ch <- model.Tweet{ID: "2"}
	waitFor(t, "forwarded items", func() bool { return len(p.IDs()) == 2 })

	if got := fmt.Sprint(p.IDs()); got != "[1 2]" {
		t.Fatalf("pushes = %s", got)
	}
}

func TestConnectorForwardsNothingWhileConnecting(t *testing.T) {
	refusals := make([]error, 100)
	for i := range refusals {
		refusals[i] = errRefused
	}
	src := newFakeSource(refusals...)
	p := &recordingPusher{}
	u, _, _ := startConnector(t, src, p)

	waitFor(t, "several attempts", func() bool { return src.Attempts() >= 3 })
	if u.State() == Connected {
		t.Fatalf("connector reports connected without a stream")
	}
	if len(p.IDs()) != 0 {
		t.Fatalf("pushes while disconnected: %v", p.IDs())
	}
}

func TestConnectorReconnectsAfterMidStreamError(t *testing.T) {
	src := newFakeSource()
	p := &recordingPusher{}
	u, _, _ := startConnector(t, src, p)

	first := nextStream(t, src)
	first.ch <- model.Tweet{ID: "1"}
	waitFor(t, "first item", func() bool { return len(p.IDs()) == 1 })

	first.fail(errors.New("stream reset"))

	second := nextStream(t, src)
	waitFor(t, "reconnected", func() bool { return u.State() == Connected })
	second.ch <- model.Tweet{ID: "1"} // replayed by the upstream after reconnect
	second.ch <- model.Tweet{ID: "2"}
	waitFor(t, "second item", func() bool { return len(p.IDs()) == 2 })

	if got := fmt.Sprint(p.IDs()); got != "[1 2]" {
		t.Fatalf("pushes = %s", got)
	}
}

func TestConnectorShutdownClosesAndDrainsStream(t *testing.T) {
	src := newFakeSource()
	p := &recordingPusher{}
	u, cancel, done := startConnector(t, src, p)

	s := nextStream(t, src)
	waitFor(t, "connected", func() bool { return u.State() == Connected })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("connector did not stop")
	}

	if !s.isClosed() {
		t.Fatalf("stream was not closed on shutdown")
	}
	if u.State() != Disconnected {
		t.Fatalf("state after shutdown = %s", u.State())
	}
}

func TestConnectorStopsDuringRetryDelay(t *testing.T) {
	refusals := make([]error, 10)
	for i := range refusals {
		refusals[i] = errRefused
	}
	src := newFakeSource(refusals...)
	u := NewUpstreamConnector(src, newTestForwarder(&recordingPusher{}), "#hack24", time.Hour, testLogger(), metrics.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		u.Run(ctx)
	}()

	waitFor(t, "first attempt", func() bool { return src.Attempts() == 1 })
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("retry timer blocked shutdown")
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Disconnected: "disconnected", Connecting: "connecting", Connected: "connected", State(9): "unknown"} {
		if s.String() != want {
			t.Errorf("%d.String() = %q", s, s.String())
		}
	}
}
