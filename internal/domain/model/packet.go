package model

import (
	"encoding/json"
	"sync"
)

// Default event tags.
const (
	EventTweet = "tweet"
)

// Packet is the unit moved from the upstream source to subscribers.
// It is immutable once created; the wire form is computed at most once and
// shared by every subscriber and every replay.
type Packet struct {
	seq   uint64
	event string
	data  any

	once sync.Once
	wire []byte
	err  error
}

// wirePacket is the exact shape sent to clients: an event tag and its payload.
type wirePacket struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// NewPacket builds a packet. seq is assigned by the buffer that owns it.
func NewPacket(seq uint64, event string, data any) *Packet {
	return &Packet{seq: seq, event: event, data: data}
}

func (p *Packet) Seq() uint64   { return p.seq }
func (p *Packet) Event() string { return p.event }
func (p *Packet) Data() any     { return p.data }

// Wire returns the JSON wire representation `{"event": ..., "data": ...}`.
func (p *Packet) Wire() ([]byte, error) {
	p.once.Do(func() {
		p.wire, p.err = json.Marshal(wirePacket{Event: p.event, Data: p.data})
	})
	return p.wire, p.err
}

// MarshalJSON lets packets be embedded in batch responses as-is.
func (p *Packet) MarshalJSON() ([]byte, error) {
	return p.Wire()
}
