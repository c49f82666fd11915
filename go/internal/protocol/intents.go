package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Intent is the envelope for everything a client sends to the coordinator.
type Intent struct {
	ID     string          `json:"id"`      // Intent UUID
	Type   IntentType      `json:"type"`    // Intent type
	SentAt time.Time       `json:"sent_at"` // Client send time (informational)
	Data   json.RawMessage `json:"data"`    // Intent-specific payload
}

// IntentType represents the type of client intent
type IntentType string

const (
	IntentTypePlay                IntentType = "Play"
	IntentTypePause               IntentType = "Pause"
	IntentTypeSeek                IntentType = "Seek"
	IntentTypeChangeMedia         IntentType = "ChangeMedia"
	IntentTypeRequestCurrentState IntentType = "RequestCurrentState"
)

// PlayPayload reports the local position at which the user started playback
type PlayPayload struct {
	CurrentTime float64 `json:"current_time"`
}

// PausePayload reports the local position at which the user paused
type PausePayload struct {
	CurrentTime float64 `json:"current_time"`
}

// SeekPayload reports the position the user seeked to
type SeekPayload struct {
	CurrentTime float64 `json:"current_time"`
}

// ChangeMediaPayload asks the coordinator to switch the room to new media
type ChangeMediaPayload struct {
	MediaID     string  `json:"media_id"`
	CurrentTime float64 `json:"current_time"`
	IsPlaying   bool    `json:"is_playing"`
}

// NewIntent builds an intent envelope around the given payload. A nil payload
// produces an intent with no data (RequestCurrentState).
func NewIntent(t IntentType, sentAt time.Time, payload interface{}) (Intent, error) {
	intent := Intent{
		ID:     uuid.New().String(),
		Type:   t,
		SentAt: sentAt,
	}
	if payload == nil {
		return intent, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Intent{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	intent.Data = data
	return intent, nil
}
