package grpc

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/webitel/feed-relay-service/infra/metrics"
	grpcsrv "github.com/webitel/feed-relay-service/infra/server/grpc"
	"github.com/webitel/feed-relay-service/internal/domain/feed"
	"github.com/webitel/feed-relay-service/internal/domain/registry"
	"github.com/webitel/feed-relay-service/internal/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

func startFeed(t *testing.T) (*feed.Buffer, *registry.Hub, *grpc.ClientConn) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewRegistry()

	b := feed.NewBuffer(3)
	hub := registry.NewHub()
	service.NewFanout(hub, logger, m).Bind(b)

	srv := grpcsrv.New("bufnet", logger)
	RegisterDeliveryServices(srv, NewDeliveryService(logger, service.NewDeliveryService(b, hub, logger, m)))

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Server.Serve(lis) }()
	t.Cleanup(srv.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })
	return b, hub, cc
}

func openStream(t *testing.T, ctx context.Context, cc *grpc.ClientConn) grpc.ClientStream {
	t.Helper()
	cs, err := cc.NewStream(ctx, &Feed_ServiceDesc.Streams[0], FeedStreamMethod)
	if err != nil {
		t.Fatalf("new stream: %v", err)
	}
	if err := cs.SendMsg(&emptypb.Empty{}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := cs.CloseSend(); err != nil {
		t.Fatalf("close send: %v", err)
	}
	return cs
}

func recvData(t *testing.T, cs grpc.ClientStream) string {
	t.Helper()
	msg := new(structpb.Struct)
	if err := cs.RecvMsg(msg); err != nil {
		t.Fatalf("recv: %v", err)
	}
	if msg.Fields["event"].GetStringValue() != "tweet" {
		t.Fatalf("event = %v", msg.Fields["event"])
	}
	return msg.Fields["data"].GetStringValue()
}

func waitSubscribed(t *testing.T, hub *registry.Hub) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamReplaysThenStreamsLive(t *testing.T) {
	b, hub, cc := startFeed(t)
	b.Push("tweet", "A")
	b.Push("tweet", "B")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cs := openStream(t, ctx, cc)

	if got := recvData(t, cs); got != "B" {
		t.Fatalf("first replay = %q", got)
	}
	if got := recvData(t, cs); got != "A" {
		t.Fatalf("second replay = %q", got)
	}

	waitSubscribed(t, hub)
	b.Push("tweet", "C")
	if got := recvData(t, cs); got != "C" {
		t.Fatalf("live = %q", got)
	}
}

func TestStreamEndsUnavailableOnShutdown(t *testing.T) {
	_, hub, cc := startFeed(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cs := openStream(t, ctx, cc)

	waitSubscribed(t, hub)
	hub.Shutdown()

	err := cs.RecvMsg(new(structpb.Struct))
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("expected Unavailable, got %v", err)
	}
}
