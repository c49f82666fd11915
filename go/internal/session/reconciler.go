package session

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/lockstep-live/lockstep/go/internal/player"
	"github.com/lockstep-live/lockstep/go/internal/protocol"
)

// Config holds engine tunables.
type Config struct {
	// DriftThreshold is the drift, in seconds, tolerated before a corrective
	// seek is issued. Below it, ordinary buffering and decoding jitter would
	// otherwise produce visible seeks.
	DriftThreshold float64

	// ApplySettle is the echo-suppression window opened after applying a
	// remote snapshot, covering the time the surface needs to acknowledge
	// the seek and play/pause commands.
	ApplySettle time.Duration

	// LocalActionWindow is the echo-suppression window opened by a local
	// action: long enough to outlast the echoed update racing back, short
	// enough not to block legitimate remote updates.
	LocalActionWindow time.Duration
}

// DefaultConfig returns default engine configuration
func DefaultConfig() Config {
	return Config{
		DriftThreshold:    0.35,
		ApplySettle:       200 * time.Millisecond,
		LocalActionWindow: 100 * time.Millisecond,
	}
}

// Sender delivers outbound intents to the coordinator.
type Sender interface {
	SendIntent(intent protocol.Intent) error
}

// Status is a read-only view of engine state for the local status endpoint.
type Status struct {
	MediaID             string `json:"media_id"`
	SurfaceReady        bool   `json:"surface_ready"`
	SurfaceState        string `json:"surface_state"`
	LastAppliedVersion  uint64 `json:"last_applied_version"`
	Playing             bool   `json:"playing"`
	HasUserInteracted   bool   `json:"has_user_interacted"`
	PendingSnapshot     bool   `json:"pending_snapshot"`
	ManualSyncRequested bool   `json:"manual_sync_requested"`
	ViewerCount         int    `json:"viewer_count"`
}

// Engine reconciles authoritative coordinator snapshots with locally
// initiated actions and drives the playback surface through the lifecycle
// manager. All entry points serialize on one mutex; the cooperative
// scheduling the design relies on is enforced by that single lock.
type Engine struct {
	players *player.Manager
	sender  Sender
	sink    Sink
	clock   clockwork.Clock
	cfg     Config

	mu               sync.Mutex
	st               reconciliationState
	playing          bool // last commanded play state
	viewerCount      int
	pendingSignalled bool
}

// NewEngine wires the engine to its collaborators and binds itself to the
// lifecycle manager's hooks.
func NewEngine(players *player.Manager, sender Sender, sink Sink, clock clockwork.Clock, cfg Config) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	e := &Engine{
		players: players,
		sender:  sender,
		sink:    sink,
		clock:   clock,
		cfg:     cfg,
	}
	players.Bind(player.Hooks{
		OnReady:       e.handleSurfaceReady,
		OnStateChange: e.handleSurfaceStateChange,
		OnFatal: func(mediaID string, err error) {
			e.sink.Notice(NoticeError, NoticeSurfaceFatal, err.Error())
		},
		OnSurfaceError: func(mediaID string, err error) {
			e.sink.Notice(NoticeWarn, NoticeSurfaceCommand, err.Error())
		},
	})
	return e
}

// Consume is the sole entry point for inbound snapshots.
func (e *Engine) Consume(snap protocol.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if snap.Version <= e.st.lastAppliedVersion {
		log.Debug().
			Uint64("version", snap.Version).
			Uint64("applied", e.st.lastAppliedVersion).
			Msg("stale snapshot dropped")
		return
	}
	// Claim the version before anything else: a retry of this or a lower
	// version must be rejected even if a later step parks or aborts.
	e.st.lastAppliedVersion = snap.Version

	e.disposeLocked(snap)
}

// disposeLocked routes an accepted snapshot: media transition, readiness
// parking, then the disposition priority order.
func (e *Engine) disposeLocked(snap protocol.Snapshot) {
	surface, mediaID, ready := e.players.Session()

	if snap.MediaID != "" && snap.MediaID != mediaID {
		e.st.pendingSnapshot = &snap
		e.players.Switch(snap.MediaID)
		return
	}

	if surface == nil || !ready {
		e.st.pendingSnapshot = &snap
		return
	}

	now := e.clock.Now()
	switch {
	case e.st.manualSyncRequested:
		e.st.manualSyncRequested = false
		e.applyLocked(snap, surface)

	case snap.IsPlaying && !e.st.hasUserInteracted:
		// Autoplay policy: remotely-triggered playback waits for a gesture.
		e.st.pendingSnapshot = &snap
		if !e.pendingSignalled {
			e.pendingSignalled = true
			e.sink.PendingSync(true)
		}

	case !e.st.applyingRemote(now) && !e.st.localActionInFlight(now):
		e.applyLocked(snap, surface)

	default:
		// Suppressed for the settle window; versions keep advancing, so the
		// next snapshot supersedes this one.
		log.Debug().Uint64("version", snap.Version).Msg("snapshot suppressed during settle window")
	}
}

// applyLocked issues the surface commands for a snapshot: a corrective seek
// only when drift exceeds the threshold, play/pause state always.
func (e *Engine) applyLocked(snap protocol.Snapshot, surface player.Surface) {
	// The settle window opens before any command is issued, so a failing
	// command cannot leave the suppression state dangling.
	e.st.applyingRemoteUntil = e.clock.Now().Add(e.cfg.ApplySettle)

	// Any applied snapshot supersedes a parked one.
	e.st.pendingSnapshot = nil

	target := snap.TargetTime()
	drift := 0.0
	cur, err := surface.CurrentTime()
	if err != nil {
		log.Warn().Err(err).Msg("surface position read failed")
		e.sink.Notice(NoticeWarn, NoticeSurfaceCommand, "position read failed: "+err.Error())
	} else {
		drift = math.Abs(target - cur)
		if drift > e.cfg.DriftThreshold {
			if err := surface.SeekTo(target, true); err != nil {
				log.Warn().Err(err).Float64("target", target).Msg("corrective seek failed")
				e.sink.Notice(NoticeWarn, NoticeSurfaceCommand, "seek failed: "+err.Error())
			}
		}
	}

	if snap.IsPlaying {
		if err := surface.Play(); err != nil {
			log.Warn().Err(err).Msg("play command failed")
			e.sink.Notice(NoticeWarn, NoticeSurfaceCommand, "play failed: "+err.Error())
		}
	} else {
		if err := surface.Pause(); err != nil {
			log.Warn().Err(err).Msg("pause command failed")
			e.sink.Notice(NoticeWarn, NoticeSurfaceCommand, "pause failed: "+err.Error())
		}
	}
	e.playing = snap.IsPlaying

	if e.pendingSignalled {
		e.pendingSignalled = false
		e.sink.PendingSync(false)
	}

	log.Debug().
		Uint64("version", snap.Version).
		Float64("target", target).
		Float64("drift", drift).
		Bool("playing", snap.IsPlaying).
		Msg("snapshot applied")
}

// handleSurfaceReady replays a parked snapshot through the normal disposition
// once the surface signals readiness.
func (e *Engine) handleSurfaceReady(mediaID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.pendingSnapshot == nil {
		return
	}
	snap := *e.st.pendingSnapshot
	e.st.pendingSnapshot = nil
	log.Debug().
		Uint64("version", snap.Version).
		Str("media_id", mediaID).
		Msg("replaying pending snapshot after readiness")
	e.disposeLocked(snap)
}

// handleSurfaceStateChange records play-state flips originating in the
// surface itself (end-of-media pause, buffering stalls) so the reported state
// stays truthful between snapshots. No intent is emitted: the flip was not a
// user action, and the next snapshot forces the authoritative state anyway.
func (e *Engine) handleSurfaceStateChange(mediaID string, playing bool) {
	e.mu.Lock()
	e.playing = playing
	e.mu.Unlock()
	log.Debug().Str("media_id", mediaID).Bool("playing", playing).Msg("surface state change")
}

// HandleReconnect requests fresh authoritative state after the transport
// re-established its connection. Not a user gesture: neither the interaction
// gate nor the manual-sync flag is touched, so a playing snapshot returned to
// a never-touched client still parks behind the gate.
func (e *Engine) HandleReconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sendIntentLocked(protocol.IntentTypeRequestCurrentState, nil)
	e.sink.Notice(NoticeInfo, NoticeTransport, "reconnected, requested fresh state")
}

// SetViewerCount forwards the display-only viewer count to the UI sink.
func (e *Engine) SetViewerCount(count int) {
	e.mu.Lock()
	e.viewerCount = count
	e.mu.Unlock()
	e.sink.ViewerCount(count)
}

// Status reports the engine's current state.
func (e *Engine) Status() Status {
	_, mediaID, ready := e.players.Session()
	state := e.players.State()

	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		MediaID:             mediaID,
		SurfaceReady:        ready,
		SurfaceState:        string(state),
		LastAppliedVersion:  e.st.lastAppliedVersion,
		Playing:             e.playing,
		HasUserInteracted:   e.st.hasUserInteracted,
		PendingSnapshot:     e.st.pendingSnapshot != nil,
		ManualSyncRequested: e.st.manualSyncRequested,
		ViewerCount:         e.viewerCount,
	}
}

func (e *Engine) sendIntentLocked(t protocol.IntentType, payload interface{}) {
	intent, err := protocol.NewIntent(t, e.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("intent", string(t)).Msg("intent build failed")
		return
	}
	if err := e.sender.SendIntent(intent); err != nil {
		log.Warn().Err(err).Str("intent", string(t)).Msg("intent send failed")
		e.sink.Notice(NoticeWarn, NoticeTransport, "intent delivery failed: "+err.Error())
	}
}
