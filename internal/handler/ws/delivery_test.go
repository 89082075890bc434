package ws

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/webitel/feed-relay-service/infra/metrics"
	"github.com/webitel/feed-relay-service/internal/domain/feed"
	"github.com/webitel/feed-relay-service/internal/domain/registry"
	wsmarshaller "github.com/webitel/feed-relay-service/internal/handler/marshaller/ws"
	"github.com/webitel/feed-relay-service/internal/service"
)

func newTestServer(t *testing.T) (*feed.Buffer, *registry.Hub, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewRegistry()

	b := feed.NewBuffer(3)
	hub := registry.NewHub()
	service.NewFanout(hub, logger, m).Bind(b)

	marshaller, err := wsmarshaller.New(3)
	if err != nil {
		t.Fatalf("marshaller: %v", err)
	}
	h := NewWSHandler(logger, service.NewDeliveryService(b, hub, logger, m), marshaller)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return b, hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readText(t *testing.T, c *websocket.Conn) string {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func waitSubscribers(t *testing.T, hub *registry.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", hub.Len(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWSReplaysThenStreamsLive(t *testing.T) {
	b, hub, url := newTestServer(t)
	b.Push("tweet", "A")
	b.Push("tweet", "B")

	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if got := readText(t, c); got != `{"event":"tweet","data":"B"}` {
		t.Fatalf("first replay = %s", got)
	}
	if got := readText(t, c); got != `{"event":"tweet","data":"A"}` {
		t.Fatalf("second replay = %s", got)
	}

	waitSubscribers(t, hub, 1)
	b.Push("tweet", "C")
	if got := readText(t, c); got != `{"event":"tweet","data":"C"}` {
		t.Fatalf("live = %s", got)
	}
}

func TestWSUnregistersOnClientClose(t *testing.T) {
	_, hub, url := newTestServer(t)

	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitSubscribers(t, hub, 1)

	_ = c.Close()
	waitSubscribers(t, hub, 0)
}

func TestWSClosedByHubShutdown(t *testing.T) {
	_, hub, url := newTestServer(t)

	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	waitSubscribers(t, hub, 1)

	hub.Shutdown()

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = c.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("expected going-away close, got %v", err)
	}
}
