package model

import (
	"encoding/json"
	"testing"
)

func TestPacketWireHasExactlyEventAndData(t *testing.T) {
	p := NewPacket(1, EventTweet, Tweet{ID: "1", Text: "hello #hack24"})

	raw, err := p.Wire()
	if err != nil {
		t.Fatalf("wire: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("want 2 top-level fields, got %d: %s", len(fields), raw)
	}
	if string(fields["event"]) != `"tweet"` {
		t.Errorf("event = %s", fields["event"])
	}
	if _, ok := fields["data"]; !ok {
		t.Errorf("data field missing: %s", raw)
	}
}

func TestPacketWireIsComputedOnce(t *testing.T) {
	p := NewPacket(1, EventTweet, map[string]any{"a": 1})

	first, err := p.Wire()
	if err != nil {
		t.Fatalf("wire: %v", err)
	}
	second, _ := p.Wire()
	if &first[0] != &second[0] {
		t.Fatalf("expected cached wire bytes to be reused")
	}

	embedded, err := json.Marshal([]*Packet{p})
	if err != nil {
		t.Fatalf("marshal batch: %v", err)
	}
	if string(embedded) != "["+string(first)+"]" {
		t.Fatalf("unexpected batch encoding: %s", embedded)
	}
}

func TestPacketWireReportsEncodeError(t *testing.T) {
	p := NewPacket(1, "bad", make(chan int))
	if _, err := p.Wire(); err == nil {
		t.Fatalf("expected encode error for unsupported payload")
	}
}
