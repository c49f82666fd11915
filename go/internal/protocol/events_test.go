package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventPayloadStateSync(t *testing.T) {
	data, err := json.Marshal(Snapshot{
		Version:           7,
		MediaID:           "vid-42",
		IsPlaying:         true,
		PlaybackTime:      12.5,
		LastEventAtMs:     1000,
		CoordinatorTimeMs: 1500,
	})
	require.NoError(t, err)

	event := &Event{
		ID:        "evt-1",
		RoomID:    "lobby",
		Type:      EventTypeStateSync,
		Timestamp: time.Now(),
		Data:      data,
	}
	payload, err := ParseEventPayload(event)
	require.NoError(t, err)

	snap, ok := payload.(Snapshot)
	require.True(t, ok)
	assert.Equal(t, uint64(7), snap.Version)
	assert.Equal(t, "vid-42", snap.MediaID)
	assert.True(t, snap.IsPlaying)
	assert.InDelta(t, 12.5, snap.PlaybackTime, 1e-9)
}

func TestParseEventPayloadViewerCount(t *testing.T) {
	event := &Event{
		Type: EventTypeViewerCount,
		Data: json.RawMessage(`{"count": 17}`),
	}
	payload, err := ParseEventPayload(event)
	require.NoError(t, err)
	assert.Equal(t, ViewerCountPayload{Count: 17}, payload)
}

func TestParseEventPayloadMalformed(t *testing.T) {
	event := &Event{
		Type: EventTypeStateSync,
		Data: json.RawMessage(`{"version": "not-a-number"}`),
	}
	_, err := ParseEventPayload(event)
	assert.Error(t, err)
}

func TestParseEventPayloadUnknownType(t *testing.T) {
	event := &Event{Type: EventType("SomethingNew")}
	payload, err := ParseEventPayload(event)
	assert.NoError(t, err)
	assert.Nil(t, payload)
}

func TestNewIntentCarriesPayload(t *testing.T) {
	now := time.Unix(100, 0)
	intent, err := NewIntent(IntentTypeSeek, now, SeekPayload{CurrentTime: 33.5})
	require.NoError(t, err)
	assert.NotEmpty(t, intent.ID)
	assert.Equal(t, IntentTypeSeek, intent.Type)
	assert.Equal(t, now, intent.SentAt)

	var payload SeekPayload
	require.NoError(t, json.Unmarshal(intent.Data, &payload))
	assert.InDelta(t, 33.5, payload.CurrentTime, 1e-9)
}

func TestNewIntentNilPayload(t *testing.T) {
	intent, err := NewIntent(IntentTypeRequestCurrentState, time.Now(), nil)
	require.NoError(t, err)
	assert.Nil(t, intent.Data)
}
