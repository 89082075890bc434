// Package rest serves the read-only operator endpoints.
package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/webitel/feed-relay-service/internal/domain/feed"
	"github.com/webitel/feed-relay-service/internal/domain/model"
	"github.com/webitel/feed-relay-service/internal/domain/registry"
	"github.com/webitel/feed-relay-service/internal/service"
)

// StateReporter exposes the upstream connection state.
type StateReporter interface {
	State() service.State
}

type RestHandler struct {
	buffer   *feed.Buffer
	hub      registry.Hubber
	upstream StateReporter
	logger   *slog.Logger
}

func NewRestHandler(buffer *feed.Buffer, hub registry.Hubber, upstream StateReporter, logger *slog.Logger) *RestHandler {
	return &RestHandler{
		buffer:   buffer,
		hub:      hub,
		upstream: upstream,
		logger:   logger.With("component", "rest"),
	}
}

// Recent returns the retained packets newest-first.
func (h *RestHandler) Recent(w http.ResponseWriter, r *http.Request) {
	packets := make([]json.RawMessage, 0, h.buffer.Capacity())
	h.buffer.Replay(func(p *model.Packet) {
		data, err := p.Wire()
		if err != nil {
			return
		}
		packets = append(packets, data)
	})
	h.writeJSON(w, http.StatusOK, packets)
}

// Health reports ok while the process serves; upstream state is informational.
func (h *RestHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, model.HubStats{
		Status:      "ok",
		Upstream:    h.upstream.State().String(),
		Subscribers: h.hub.Len(),
		Retained:    h.buffer.Len(),
		Capacity:    h.buffer.Capacity(),
	})
}

func (h *RestHandler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("REST_WRITE_FAILED", "err", err)
	}
}
