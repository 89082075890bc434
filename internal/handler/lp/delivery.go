package lp

import (
	"cmp"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/webitel/feed-relay-service/internal/domain/model"
	lpmarshaller "github.com/webitel/feed-relay-service/internal/handler/marshaller/lp"
	"github.com/webitel/feed-relay-service/internal/service"
)

const (
	defaultPollTimeout = 30 * time.Second
	maxBatch           = 16
)

type LPHandler struct {
	deliverer service.Deliverer
	logger    *slog.Logger
	timeout   time.Duration
}

func NewLPHandler(deliverer service.Deliverer, logger *slog.Logger) *LPHandler {
	return &LPHandler{
		deliverer: deliverer,
		logger:    logger.With("component", "lp"),
		timeout:   defaultPollTimeout,
	}
}

// Poll handles the long-polling request.
// It holds the connection until a packet newer than ?since= arrives or the
// poll times out with 204.
func (h *LPHandler) Poll(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid since cursor", http.StatusBadRequest)
			return
		}
		since = v
	}

	// 1. Temporary Subscription.
	// The connector lives only for the duration of this HTTP request; replay
	// fills it with everything newer than the cursor.
	conn, err := h.deliverer.Subscribe(r.Context(), since)
	if err != nil {
		http.Error(w, "failed to subscribe", http.StatusInternalServerError)
		return
	}
	defer h.deliverer.Unsubscribe(conn.GetID())

	var packets []*model.Packet

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()

	// 2. Wait for data or timeout.
	select {
	case <-r.Context().Done():
		return

	case <-timer.C:
		w.WriteHeader(http.StatusNoContent)
		return

	case p, ok := <-conn.Recv():
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		packets = append(packets, p)

		// Drain everything already queued. Replay arrives newest-first and live
		// packets oldest-first, so the batch is ordered by seq before capping:
		// the oldest maxBatch go out and the cursor never skips past unsent ones.
	drainLoop:
		for {
			select {
			case next, ok := <-conn.Recv():
				if !ok {
					break drainLoop
				}
				packets = append(packets, next)
			default:
				break drainLoop
			}
		}
	}

	slices.SortFunc(packets, func(a, b *model.Packet) int {
		return cmp.Compare(a.Seq(), b.Seq())
	})
	if len(packets) > maxBatch {
		packets = packets[:maxBatch]
	}

	// 3. Final transmission.
	data, err := lpmarshaller.MarshallPackets(packets)
	if err != nil {
		h.logger.Error("LP_MARSHAL_FAILED", "err", err)
		http.Error(w, "marshal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
