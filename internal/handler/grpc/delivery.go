package grpc

import (
	"log/slog"

	"github.com/webitel/feed-relay-service/infra/server/grpc/interceptors"
	grpcmarshaller "github.com/webitel/feed-relay-service/internal/handler/marshaller/grpc"
	"github.com/webitel/feed-relay-service/internal/service"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

var _ FeedServer = (*DeliveryService)(nil)

type DeliveryService struct {
	logger    *slog.Logger
	deliverer service.Deliverer
}

func NewDeliveryService(logger *slog.Logger, deliverer service.Deliverer) *DeliveryService {
	return &DeliveryService{
		logger:    logger.With("component", "grpc_delivery"),
		deliverer: deliverer,
	}
}

// Stream replays the retained packets and then streams live ones until the
// client goes away or the server shuts down.
func (d *DeliveryService) Stream(_ *emptypb.Empty, stream Feed_StreamServer) error {
	// Create a stream-scoped logger to track this specific connection
	l := d.logger
	if sid, ok := interceptors.GetSessionID(stream.Context()); ok {
		l = l.With(slog.String("session_id", sid.String()))
	}

	// [ATTACHMENT] Replay then attach in one step.
	conn, err := d.deliverer.Subscribe(stream.Context(), 0)
	if err != nil {
		l.Error("[HUB] subscription rejected", slog.Any("err", err))
		return status.Error(codes.Internal, "failed to establish connection session")
	}

	// [RESOURCE_RECLAMATION]
	defer func() {
		d.deliverer.Unsubscribe(conn.GetID())
		l.Info("[STREAM] connection closed and resources reclaimed",
			slog.String("conn_id", conn.GetID().String()),
			slog.Uint64("dropped", conn.Dropped()),
		)
	}()

	l.Info("[STREAM] session established", slog.String("conn_id", conn.GetID().String()))

	// [EVENT_LOOP]
	for {
		select {
		case <-stream.Context().Done():
			l.Info("[STREAM] client terminated connection", slog.Any("reason", stream.Context().Err()))
			return nil

		case p, ok := <-conn.Recv():
			if !ok {
				// [TERMINATION_SENTINEL] Mailbox closed by hub shutdown or eviction.
				return status.Error(codes.Unavailable, "session_terminated_by_server")
			}

			msg, err := grpcmarshaller.MarshallPacket(p)
			if err != nil {
				l.Error("[STREAM] marshal failed", slog.Any("err", err), slog.Uint64("seq", p.Seq()))
				continue
			}

			if err := stream.Send(msg); err != nil {
				l.Error("[STREAM] transmission error", slog.Any("err", err), slog.Uint64("seq", p.Seq()))
				return status.Error(codes.DataLoss, "stream_transmission_failed")
			}
		}
	}
}
