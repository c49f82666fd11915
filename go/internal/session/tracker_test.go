package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockstep-live/lockstep/go/internal/protocol"
)

func TestLocalPlayAppliesOptimisticallyAndEmitsIntent(t *testing.T) {
	h := newHarness(t)
	surface := h.startMedia(t, 1, "vid-1")
	surface.setCurrent(12.5)

	_, playsBefore, _, _ := surface.snapshot()
	h.engine.Play()

	_, plays, _, _ := surface.snapshot()
	assert.Greater(t, plays, playsBefore, "local play applies to the surface immediately")

	intents := h.sender.byType(protocol.IntentTypePlay)
	require.Len(t, intents, 1)
	var payload protocol.PlayPayload
	require.NoError(t, json.Unmarshal(intents[0].Data, &payload))
	assert.InDelta(t, 12.5, payload.CurrentTime, 1e-9)
}

func TestLocalPauseEmitsIntent(t *testing.T) {
	h := newHarness(t)
	surface := h.startMedia(t, 1, "vid-1")
	surface.setCurrent(40)

	h.engine.Pause()

	intents := h.sender.byType(protocol.IntentTypePause)
	require.Len(t, intents, 1)
	var payload protocol.PausePayload
	require.NoError(t, json.Unmarshal(intents[0].Data, &payload))
	assert.InDelta(t, 40.0, payload.CurrentTime, 1e-9)
}

func TestEchoSuppression(t *testing.T) {
	h := newHarness(t)
	surface := h.startMedia(t, 1, "vid-1")
	surface.setCurrent(10)

	h.engine.Play()
	seeksAfterLocal, playsAfterLocal, pausesAfterLocal, _ := surface.snapshot()

	// The coordinator's echo of the local action races back inside the
	// local-action window: it must not re-touch the surface.
	h.engine.Consume(playingSnap(2, "", 10.0))

	seeks, plays, pauses, _ := surface.snapshot()
	assert.Equal(t, len(seeksAfterLocal), len(seeks))
	assert.Equal(t, playsAfterLocal, plays)
	assert.Equal(t, pausesAfterLocal, pauses)

	// After the window passes, remote updates flow again.
	h.settle()
	surface.setCurrent(10)
	h.engine.Consume(playingSnap(3, "", 50))
	seeks, _, _, _ = surface.snapshot()
	require.NotEmpty(t, seeks)
	assert.InDelta(t, 50.0, seeks[len(seeks)-1], 1e-9)
}

func TestSeekByRelative(t *testing.T) {
	h := newHarness(t)
	surface := h.startMedia(t, 1, "vid-1")
	surface.setCurrent(10)

	h.engine.SeekBy(30)

	seeks, _, _, _ := surface.snapshot()
	require.NotEmpty(t, seeks)
	assert.InDelta(t, 40.0, seeks[len(seeks)-1], 1e-9)

	intents := h.sender.byType(protocol.IntentTypeSeek)
	require.Len(t, intents, 1)
	var payload protocol.SeekPayload
	require.NoError(t, json.Unmarshal(intents[0].Data, &payload))
	assert.InDelta(t, 40.0, payload.CurrentTime, 1e-9)
}

func TestSeekByClampsAtZero(t *testing.T) {
	h := newHarness(t)
	surface := h.startMedia(t, 1, "vid-1")
	surface.setCurrent(10)

	h.engine.SeekBy(-50)

	seeks, _, _, _ := surface.snapshot()
	require.NotEmpty(t, seeks)
	assert.Equal(t, 0.0, seeks[len(seeks)-1])
}

func TestChangeMediaEmitsIntentAndSwitches(t *testing.T) {
	h := newHarness(t)
	first := h.startMedia(t, 1, "vid-1")
	first.setCurrent(33)

	h.engine.ChangeMedia("vid-2")

	intents := h.sender.byType(protocol.IntentTypeChangeMedia)
	require.Len(t, intents, 1)
	var payload protocol.ChangeMediaPayload
	require.NoError(t, json.Unmarshal(intents[0].Data, &payload))
	assert.Equal(t, "vid-2", payload.MediaID)
	assert.InDelta(t, 33.0, payload.CurrentTime, 1e-9)

	require.Eventually(t, func() bool {
		_, id, ready := h.manager.Session()
		return ready && id == "vid-2"
	}, testWait, testTick)
	_, _, _, destroyed := first.snapshot()
	assert.True(t, destroyed)
}

func TestLocalActionWithoutSurfaceStillReports(t *testing.T) {
	h := newHarness(t)

	// No media session yet; the gesture still reaches the coordinator.
	h.engine.Play()
	assert.Len(t, h.sender.byType(protocol.IntentTypePlay), 1)
	assert.True(t, h.engine.Status().HasUserInteracted)
}
