package ws

import (
	"encoding/json"
	"fmt"

	"github.com/koscakluka/ema-tutor/core/events"
)

// Frame is the JSON envelope of every text message exchanged with a client.
// Binary messages from the client carry raw audio-data chunks.
type Frame struct {
	Event events.Kind     `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeEvent(event events.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", event.Kind(), err)
	}
	return json.Marshal(Frame{Event: event.Kind(), Data: data})
}

func decodeFrame(payload []byte) (Frame, error) {
	var frame Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return Frame{}, fmt.Errorf("malformed frame: %w", err)
	}
	if !events.IsInbound(frame.Event) {
		return Frame{}, fmt.Errorf("unsupported event %q", frame.Event)
	}
	return frame, nil
}

func decodeData[T any](frame Frame) (T, error) {
	var data T
	if len(frame.Data) == 0 {
		return data, fmt.Errorf("%s event is missing data", frame.Event)
	}
	if err := json.Unmarshal(frame.Data, &data); err != nil {
		return data, fmt.Errorf("malformed %s data: %w", frame.Event, err)
	}
	return data, nil
}
