package grpcmarshaller

import (
	"encoding/json"
	"fmt"

	"github.com/webitel/feed-relay-service/internal/domain/model"
	"google.golang.org/protobuf/types/known/structpb"
)

// MarshallPacket maps a packet to a protobuf Struct with the same
// {"event", "data"} shape as the JSON wire form.
func MarshallPacket(p *model.Packet) (*structpb.Struct, error) {
	data, err := p.Wire()
	if err != nil {
		return nil, err
	}

	// Round-trip through the wire bytes so every transport sees identical
	// field names and number formatting.
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode wire packet: %w", err)
	}

	res, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build struct: %w", err)
	}
	return res, nil
}
