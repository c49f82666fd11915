package session

import (
	"github.com/rs/zerolog/log"

	"github.com/lockstep-live/lockstep/go/internal/protocol"
)

// The interaction gate encodes the platform autoplay restriction: unattended
// media cannot auto-start before the user has gestured at the page. The gate
// opens exactly once, on the first local control action or manual-sync
// request, and never resets.

// markInteractedLocked opens the gate. A snapshot parked behind it is applied
// immediately through the unconditional path, not the default disposition:
// the gate carries no play/pause semantics of its own, and the gesture that
// opened it already satisfies the autoplay requirement.
func (e *Engine) markInteractedLocked() {
	if e.st.hasUserInteracted {
		return
	}
	e.st.hasUserInteracted = true
	log.Info().Msg("interaction gate opened")

	pending := e.st.pendingSnapshot
	if pending == nil {
		return
	}
	surface, mediaID, ready := e.players.Session()
	if surface == nil || !ready {
		// Mid-construction; the readiness flush picks it up, and the open
		// gate will no longer park it.
		return
	}
	if pending.MediaID != "" && pending.MediaID != mediaID {
		return
	}
	snap := *pending
	e.st.pendingSnapshot = nil
	e.applyLocked(snap, surface)
}

// RequestSync is the manual-sync control: the user explicitly asks to be
// re-aligned with the room. It is itself a gesture, so it opens the gate, and
// it makes the next inbound snapshot apply unconditionally.
func (e *Engine) RequestSync() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.st.manualSyncRequested = true
	e.markInteractedLocked()
	e.sendIntentLocked(protocol.IntentTypeRequestCurrentState, nil)
}
