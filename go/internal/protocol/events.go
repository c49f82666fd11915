package protocol

import (
	"encoding/json"
	"time"
)

// Event is the envelope for everything the coordinator sends to a client.
type Event struct {
	ID        string          `json:"id"`        // Event UUID
	RoomID    string          `json:"room_id"`   // Room identifier
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType represents the type of coordinator event
type EventType string

const (
	EventTypeStateSync   EventType = "StateSync"
	EventTypeViewerCount EventType = "ViewerCount"

	// EventTypeReconnected is synthesized locally by a transport channel after
	// it re-establishes a dropped connection. It never appears on the wire.
	EventTypeReconnected EventType = "Reconnected"
)

// ViewerCountPayload carries the room's current viewer count (display-only)
type ViewerCountPayload struct {
	Count int `json:"count"`
}

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *Event) (interface{}, error) {
	switch event.Type {
	case EventTypeStateSync:
		var payload Snapshot
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeViewerCount:
		var payload ViewerCountPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeReconnected:
		return nil, nil // No payload

	default:
		return nil, nil // Unknown event type
	}
}
