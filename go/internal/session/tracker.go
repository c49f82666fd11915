package session

import (
	"github.com/rs/zerolog/log"

	"github.com/lockstep-live/lockstep/go/internal/protocol"
)

// Local action tracker: every user-initiated control is applied to the
// surface immediately for optimistic local feedback, reported to the
// coordinator as an intent, and shielded from its own echo by the
// local-action window.

// Play is the user-initiated play control.
func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.markInteractedLocked()
	e.st.localActionUntil = e.clock.Now().Add(e.cfg.LocalActionWindow)

	var cur float64
	surface, _, ready := e.players.Session()
	if surface != nil && ready {
		if err := surface.Play(); err != nil {
			log.Warn().Err(err).Msg("local play failed")
			e.sink.Notice(NoticeWarn, NoticeSurfaceCommand, "play failed: "+err.Error())
		}
		if t, err := surface.CurrentTime(); err == nil {
			cur = t
		}
	}
	e.playing = true
	e.sendIntentLocked(protocol.IntentTypePlay, protocol.PlayPayload{CurrentTime: cur})
}

// Pause is the user-initiated pause control.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.markInteractedLocked()
	e.st.localActionUntil = e.clock.Now().Add(e.cfg.LocalActionWindow)

	var cur float64
	surface, _, ready := e.players.Session()
	if surface != nil && ready {
		if err := surface.Pause(); err != nil {
			log.Warn().Err(err).Msg("local pause failed")
			e.sink.Notice(NoticeWarn, NoticeSurfaceCommand, "pause failed: "+err.Error())
		}
		if t, err := surface.CurrentTime(); err == nil {
			cur = t
		}
	}
	e.playing = false
	e.sendIntentLocked(protocol.IntentTypePause, protocol.PausePayload{CurrentTime: cur})
}

// SeekBy is the user-initiated relative seek. Without a ready surface there
// is no position to seek relative to, so the action is dropped.
func (e *Engine) SeekBy(delta float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.markInteractedLocked()

	surface, _, ready := e.players.Session()
	if surface == nil || !ready {
		log.Warn().Float64("delta", delta).Msg("relative seek ignored, no ready surface")
		return
	}
	e.st.localActionUntil = e.clock.Now().Add(e.cfg.LocalActionWindow)

	cur, err := surface.CurrentTime()
	if err != nil {
		log.Warn().Err(err).Msg("surface position read failed")
		e.sink.Notice(NoticeWarn, NoticeSurfaceCommand, "position read failed: "+err.Error())
		return
	}
	target := cur + delta
	if target < 0 {
		target = 0
	}
	if err := surface.SeekTo(target, true); err != nil {
		log.Warn().Err(err).Float64("target", target).Msg("local seek failed")
		e.sink.Notice(NoticeWarn, NoticeSurfaceCommand, "seek failed: "+err.Error())
	}
	e.sendIntentLocked(protocol.IntentTypeSeek, protocol.SeekPayload{CurrentTime: target})
}

// ChangeMedia is the user-initiated media switch. The local surface begins
// its transition optimistically; the coordinator's versioned broadcast is
// what the room converges on.
func (e *Engine) ChangeMedia(mediaID string) {
	if mediaID == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.markInteractedLocked()
	e.st.localActionUntil = e.clock.Now().Add(e.cfg.LocalActionWindow)

	var cur float64
	surface, _, ready := e.players.Session()
	if surface != nil && ready {
		if t, err := surface.CurrentTime(); err == nil {
			cur = t
		}
	}
	e.sendIntentLocked(protocol.IntentTypeChangeMedia, protocol.ChangeMediaPayload{
		MediaID:     mediaID,
		CurrentTime: cur,
		IsPlaying:   e.playing,
	})
	e.players.Switch(mediaID)
}
