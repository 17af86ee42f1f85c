package event

import "encoding/json"

// WsEvent is the envelope for everything that crosses a live connection,
// in either direction.
type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Outbound wraps a payload into a WsEvent of the given kind.
func Outbound(kind string, payload any) (WsEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return WsEvent{}, err
	}
	return WsEvent{Event: kind, Payload: raw}, nil
}
