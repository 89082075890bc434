package lpmarshaller

import (
	"testing"

	"github.com/webitel/feed-relay-service/internal/domain/model"
)

func TestMarshallPacketsBatchesWithCursor(t *testing.T) {
	data, err := MarshallPackets([]*model.Packet{
		model.NewPacket(5, "tweet", "C"),
		model.NewPacket(4, "tweet", "B"),
	})
	if err != nil {
		t.Fatalf("marshall: %v", err)
	}

	want := `{"packets":[{"event":"tweet","data":"C"},{"event":"tweet","data":"B"}],"cursor":5}`
	if string(data) != want {
		t.Fatalf("got %s\nwant %s", data, want)
	}
}

func TestMarshallPacketsEmpty(t *testing.T) {
	data, err := MarshallPackets(nil)
	if err != nil {
		t.Fatalf("marshall: %v", err)
	}
	if string(data) != `{"packets":[],"cursor":0}` {
		t.Fatalf("got %s", data)
	}
}
