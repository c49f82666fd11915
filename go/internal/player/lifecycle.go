package player

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// State is the lifecycle state of the managed surface.
type State string

const (
	StateUninitialized State = "UNINITIALIZED"
	StateConstructing  State = "CONSTRUCTING"
	StateReady         State = "READY"
	StateDestroyed     State = "DESTROYED"
)

// ManagerConfig holds construction tunables for the lifecycle manager.
type ManagerConfig struct {
	ContainerID  string
	RetryBackoff time.Duration // fixed backoff between construction attempts
	MaxAttempts  int
}

// DefaultManagerConfig returns default lifecycle configuration
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		ContainerID:  "player",
		RetryBackoff: 500 * time.Millisecond,
		MaxAttempts:  10,
	}
}

// Hooks are invoked by the manager outside its own lock. OnReady fires once
// per constructed surface; OnFatal fires when construction retries for a
// media identity are exhausted.
type Hooks struct {
	OnReady        func(mediaID string)
	OnFatal        func(mediaID string, err error)
	OnStateChange  func(mediaID string, playing bool)
	OnSurfaceError func(mediaID string, err error)
}

// MediaSession binds a surface instance to the media identity it was built
// for. A session is never mutated across identities: an identity change
// destroys the session wholesale, since cached positions and pending flags
// tied to the old surface are meaningless for the new one.
type MediaSession struct {
	MediaID string
	Surface Surface
	Ready   bool
}

// Manager owns the lifecycle of the active playback surface: one session per
// media identity, constructed after the player API latch resolves, readiness
// strictly callback-driven.
type Manager struct {
	factory Factory
	ready   *APIReady
	clock   clockwork.Clock
	cfg     ManagerConfig

	mu         sync.Mutex
	state      State
	session    *MediaSession
	target     string // identity construction is aimed at; cleared when retries exhaust
	generation uint64
	retryTimer clockwork.Timer
	readyFired bool // OnReady arrived before construct stored the session
	hooks      Hooks

	closed    chan struct{}
	closeOnce sync.Once
}

// NewManager creates a lifecycle manager. Hooks are attached with Bind before
// the first Switch.
func NewManager(factory Factory, ready *APIReady, clock clockwork.Clock, cfg ManagerConfig) *Manager {
	return &Manager{
		factory: factory,
		ready:   ready,
		clock:   clock,
		cfg:     cfg,
		state:   StateUninitialized,
		closed:  make(chan struct{}),
	}
}

// Bind attaches lifecycle hooks.
func (m *Manager) Bind(hooks Hooks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = hooks
}

// Session returns the active surface, its media identity, and whether the
// surface has signalled readiness.
func (m *Manager) Session() (Surface, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, "", false
	}
	return m.session.Surface, m.session.MediaID, m.session.Ready
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Switch begins a transition to a new media identity: the prior surface is
// destroyed best-effort, any scheduled construction retry for it is
// cancelled, and a new surface is constructed asynchronously. A request for
// the identity already active or already mid-construction is a no-op, so
// repeated snapshots for the same media cannot restart the attempt sequence.
func (m *Manager) Switch(mediaID string) {
	m.mu.Lock()
	if m.target == mediaID {
		m.mu.Unlock()
		return
	}
	m.target = mediaID
	m.generation++
	gen := m.generation
	m.stopRetryLocked()
	old := m.session
	m.session = nil
	m.readyFired = false
	if old != nil {
		m.state = StateDestroyed
	}
	m.mu.Unlock()

	if old != nil {
		if err := old.Surface.Destroy(); err != nil {
			// Teardown is best-effort; the replacement surface does not depend on it.
			log.Warn().Err(err).Str("media_id", old.MediaID).Msg("surface teardown failed")
		}
	}

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.state = StateConstructing
	m.mu.Unlock()

	log.Info().Str("media_id", mediaID).Msg("constructing playback surface")
	go m.construct(gen, mediaID, 1)
}

// construct attempts to build a surface for mediaID. It waits for the player
// API latch first, then retries on a fixed backoff up to the configured
// attempt bound. gen guards against the identity changing mid-flight.
func (m *Manager) construct(gen uint64, mediaID string, attempt int) {
	select {
	case <-m.ready.Done():
	case <-m.closed:
		return
	}

	cb := Callbacks{
		OnReady:       func() { m.handleReady(gen, mediaID) },
		OnStateChange: func(playing bool) { m.handleStateChange(gen, mediaID, playing) },
		OnError:       func(err error) { m.handleSurfaceError(gen, mediaID, err) },
	}
	cfg := Config{ContainerID: m.cfg.ContainerID, NativeControls: false}

	surface, err := m.factory.New(mediaID, cfg, cb)
	if err != nil {
		if attempt >= m.cfg.MaxAttempts {
			m.mu.Lock()
			current := gen == m.generation
			if current {
				// Clearing the target lets a later snapshot for this media
				// start a fresh attempt sequence.
				m.state = StateUninitialized
				m.target = ""
			}
			hooks := m.hooks
			m.mu.Unlock()

			log.Error().Err(err).
				Str("media_id", mediaID).
				Int("attempts", attempt).
				Msg("surface construction exhausted retries")
			if current && hooks.OnFatal != nil {
				hooks.OnFatal(mediaID, fmt.Errorf("%w for %q after %d attempts: %v", ErrConstructionFailed, mediaID, attempt, err))
			}
			return
		}

		m.mu.Lock()
		if gen != m.generation {
			m.mu.Unlock()
			return
		}
		// The retry timer is the one timer that must be cancellable: if the
		// identity changes again before it fires, constructing a surface for
		// the old identity would target a no-longer-relevant container.
		m.retryTimer = m.clock.AfterFunc(m.cfg.RetryBackoff, func() {
			m.construct(gen, mediaID, attempt+1)
		})
		m.mu.Unlock()

		log.Debug().Err(err).
			Str("media_id", mediaID).
			Int("attempt", attempt).
			Dur("backoff", m.cfg.RetryBackoff).
			Msg("surface construction failed, retry scheduled")
		return
	}

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		// Identity moved on while the factory was constructing.
		if err := surface.Destroy(); err != nil {
			log.Warn().Err(err).Str("media_id", mediaID).Msg("teardown of superseded surface failed")
		}
		return
	}
	sess := &MediaSession{MediaID: mediaID, Surface: surface}
	m.session = sess
	var hooks Hooks
	notify := false
	if m.readyFired {
		// The surface fired OnReady from inside Factory.New.
		sess.Ready = true
		m.state = StateReady
		hooks = m.hooks
		notify = true
	}
	m.mu.Unlock()

	if notify && hooks.OnReady != nil {
		hooks.OnReady(mediaID)
	}
}

func (m *Manager) handleReady(gen uint64, mediaID string) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	if m.session == nil {
		m.readyFired = true
		m.mu.Unlock()
		return
	}
	if m.session.Ready {
		m.mu.Unlock()
		return
	}
	m.session.Ready = true
	m.state = StateReady
	hooks := m.hooks
	m.mu.Unlock()

	log.Info().Str("media_id", mediaID).Msg("playback surface ready")
	if hooks.OnReady != nil {
		hooks.OnReady(mediaID)
	}
}

func (m *Manager) handleStateChange(gen uint64, mediaID string, playing bool) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	hooks := m.hooks
	m.mu.Unlock()

	if hooks.OnStateChange != nil {
		hooks.OnStateChange(mediaID, playing)
	}
}

func (m *Manager) handleSurfaceError(gen uint64, mediaID string, err error) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	hooks := m.hooks
	m.mu.Unlock()

	log.Error().Err(err).Str("media_id", mediaID).Msg("playback surface error")
	if hooks.OnSurfaceError != nil {
		hooks.OnSurfaceError(mediaID, err)
	}
}

// stopRetryLocked cancels a scheduled construction retry. Stop can race a
// callback that is already running; the generation check inside construct
// covers that window.
func (m *Manager) stopRetryLocked() {
	if m.retryTimer == nil {
		return
	}
	m.retryTimer.Stop()
	m.retryTimer = nil
}

// Close destroys the active surface and cancels any pending construction.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.closed) })

	m.mu.Lock()
	m.generation++
	m.stopRetryLocked()
	old := m.session
	m.session = nil
	m.target = ""
	m.state = StateDestroyed
	m.mu.Unlock()

	if old != nil {
		if err := old.Surface.Destroy(); err != nil {
			log.Warn().Err(err).Str("media_id", old.MediaID).Msg("surface teardown failed")
		}
	}
}
