package player

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var errSurfaceDestroyed = errors.New("player: surface destroyed")

// HeadlessFactory builds simulated surfaces. It lets a viewer client run
// without a real embed, for room debugging and soak tests.
type HeadlessFactory struct {
	clock clockwork.Clock
}

// NewHeadlessFactory creates a factory for simulated surfaces.
func NewHeadlessFactory(clock clockwork.Clock) *HeadlessFactory {
	return &HeadlessFactory{clock: clock}
}

// New constructs a headless surface. Readiness fires synchronously: a
// simulated player has nothing to buffer.
func (f *HeadlessFactory) New(mediaID string, cfg Config, cb Callbacks) (Surface, error) {
	s := &HeadlessSurface{
		clock: f.clock,
		cb:    cb,
		basis: f.clock.Now(),
	}
	if cb.OnReady != nil {
		cb.OnReady()
	}
	return s, nil
}

// HeadlessSurface simulates playback: position advances against the injected
// clock while playing and freezes while paused.
type HeadlessSurface struct {
	clock clockwork.Clock
	cb    Callbacks

	mu        sync.Mutex
	playing   bool
	position  float64   // position at basis
	basis     time.Time // clock reading when position was last fixed
	destroyed bool
}

func (s *HeadlessSurface) positionLocked() float64 {
	if !s.playing {
		return s.position
	}
	return s.position + s.clock.Since(s.basis).Seconds()
}

// CurrentTime returns the simulated playback position.
func (s *HeadlessSurface) CurrentTime() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return 0, errSurfaceDestroyed
	}
	return s.positionLocked(), nil
}

// SeekTo moves the simulated position.
func (s *HeadlessSurface) SeekTo(seconds float64, allowAhead bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return errSurfaceDestroyed
	}
	if seconds < 0 {
		seconds = 0
	}
	s.position = seconds
	s.basis = s.clock.Now()
	return nil
}

// Play starts simulated playback.
func (s *HeadlessSurface) Play() error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return errSurfaceDestroyed
	}
	changed := !s.playing
	if changed {
		s.position = s.positionLocked()
		s.basis = s.clock.Now()
		s.playing = true
	}
	cb := s.cb
	s.mu.Unlock()

	if changed && cb.OnStateChange != nil {
		go cb.OnStateChange(true)
	}
	return nil
}

// Pause freezes simulated playback.
func (s *HeadlessSurface) Pause() error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return errSurfaceDestroyed
	}
	changed := s.playing
	if changed {
		s.position = s.positionLocked()
		s.basis = s.clock.Now()
		s.playing = false
	}
	cb := s.cb
	s.mu.Unlock()

	if changed && cb.OnStateChange != nil {
		go cb.OnStateChange(false)
	}
	return nil
}

// Destroy marks the surface dead; all further commands fail.
func (s *HeadlessSurface) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
	return nil
}
