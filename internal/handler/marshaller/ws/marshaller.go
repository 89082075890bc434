package wsmarshaller

import (
	"fmt"

	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/webitel/feed-relay-service/internal/domain/model"
)

// Marshaller frames packets for WebSocket delivery. Frames are prepared once
// per packet and shared by every connection the packet fans out to.
type Marshaller struct {
	frames *lru.Cache[uint64, *websocket.PreparedMessage]
}

// New keeps frames for the last size packets.
func New(size int) (*Marshaller, error) {
	frames, err := lru.New[uint64, *websocket.PreparedMessage](size)
	if err != nil {
		return nil, fmt.Errorf("ws frame cache: %w", err)
	}
	return &Marshaller{frames: frames}, nil
}

// MarshallPacket returns the text frame carrying the packet wire form.
func (m *Marshaller) MarshallPacket(p *model.Packet) (*websocket.PreparedMessage, error) {
	if pm, ok := m.frames.Get(p.Seq()); ok {
		return pm, nil
	}

	data, err := p.Wire()
	if err != nil {
		return nil, err
	}

	pm, err := websocket.NewPreparedMessage(websocket.TextMessage, data)
	if err != nil {
		return nil, fmt.Errorf("prepare frame: %w", err)
	}
	m.frames.Add(p.Seq(), pm)
	return pm, nil
}
