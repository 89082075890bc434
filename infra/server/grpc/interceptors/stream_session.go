package interceptors

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
)

type contextKey string

const (
	// SessionContextKey is the key used to store/retrieve the stream session id.
	SessionContextKey contextKey = "session_id"
)

// NewStreamSessionInterceptor tags every incoming stream with a fresh session
// id so its log lines can be correlated.
func NewStreamSessionInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		// [ENRICHMENT] Inject the session id into the context for downstream handlers
		newCtx := context.WithValue(ss.Context(), SessionContextKey, uuid.New())

		// [STREAM_WRAPPING] Override the context of the original stream
		wrapped := &wrappedStream{
			ServerStream: ss,
			ctx:          newCtx,
		}

		return handler(srv, wrapped)
	}
}

// wrappedStream is a thin wrapper to inject a new context into a gRPC stream.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}

// GetSessionID extracts the session id from context safely.
func GetSessionID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(SessionContextKey).(uuid.UUID)
	return id, ok
}
