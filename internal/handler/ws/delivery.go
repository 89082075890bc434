package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	wsmarshaller "github.com/webitel/feed-relay-service/internal/handler/marshaller/ws"
	"github.com/webitel/feed-relay-service/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

type WSHandler struct {
	logger     *slog.Logger
	deliverer  service.Deliverer
	marshaller *wsmarshaller.Marshaller
	upgrader   websocket.Upgrader
}

func NewWSHandler(logger *slog.Logger, deliverer service.Deliverer, marshaller *wsmarshaller.Marshaller) *WSHandler {
	return &WSHandler{
		logger:     logger.With("component", "ws"),
		deliverer:  deliverer,
		marshaller: marshaller,
		upgrader: websocket.Upgrader{
			// Browsers on any origin may watch the public feed.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 1. UPGRADE TO WEBSOCKET
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WS_UPGRADE_FAILED", "err", err, "remote", r.RemoteAddr)
		return
	}
	defer ws.Close()

	// 2. JOIN: replay the retained packets, then attach to the live fanout.
	conn, err := h.deliverer.Subscribe(r.Context(), 0)
	if err != nil {
		h.logger.Error("WS_SUBSCRIBE_FAILED", "err", err)
		return
	}
	defer h.deliverer.Unsubscribe(conn.GetID())

	h.logger.Info("WS_OPENED", "conn_id", conn.GetID(), "remote", r.RemoteAddr)

	// 3. READ PUMP: clients only send control frames; any read error is a
	// disconnect.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		ws.SetReadLimit(512)
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	// 4. WRITE PUMP
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			h.logger.Info("WS_CLOSED", "conn_id", conn.GetID(), "dropped", conn.Dropped())
			return

		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case p, ok := <-conn.Recv():
			if !ok {
				// Server shutdown or eviction.
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(writeWait))
				return
			}

			frame, err := h.marshaller.MarshallPacket(p)
			if err != nil {
				h.logger.Error("WS_MARSHAL_FAILED", "err", err, "seq", p.Seq())
				continue
			}

			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WritePreparedMessage(frame); err != nil {
				h.logger.Warn("WS_SEND_FAILED", "err", err, "conn_id", conn.GetID())
				return
			}
		}
	}
}
