package lpmarshaller

import (
	"encoding/json"

	"github.com/webitel/feed-relay-service/internal/domain/model"
)

// Response batches packets for long-polling consumers, oldest first. Cursor is
// the highest sequence number in the batch and goes back as ?since= on the next poll.
type Response struct {
	Packets []json.RawMessage `json:"packets"`
	Cursor  uint64            `json:"cursor"`
}

// MarshallPackets builds one JSON batch from the packets' cached wire form.
func MarshallPackets(packets []*model.Packet) ([]byte, error) {
	res := Response{
		Packets: make([]json.RawMessage, 0, len(packets)),
	}

	for _, p := range packets {
		data, err := p.Wire()
		if err != nil {
			return nil, err
		}
		res.Packets = append(res.Packets, data)
		res.Cursor = max(res.Cursor, p.Seq())
	}

	return json.Marshal(res)
}
