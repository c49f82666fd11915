package player

import "errors"

var (
	// ErrContainerUnavailable is returned by a Factory when the hosting
	// container for the surface does not exist yet.
	ErrContainerUnavailable = errors.New("player: hosting container unavailable")

	// ErrConstructionFailed is reported after construction retries are exhausted.
	ErrConstructionFailed = errors.New("player: surface construction failed")
)

// Surface is the capability contract the engine requires from the embedded
// media player. Implementations wrap an external control surface (embedded
// web player, cast target, mpv); the engine only ever talks through this
// interface and never polls player internals.
type Surface interface {
	// CurrentTime returns the current playback position in seconds.
	CurrentTime() (float64, error)

	// SeekTo moves playback to the given position. allowAhead permits seeking
	// beyond the buffered range; past-end behavior is the player's concern.
	SeekTo(seconds float64, allowAhead bool) error

	Play() error
	Pause() error

	// Destroy tears the surface down. Best-effort; a failing teardown must not
	// prevent construction of a replacement surface.
	Destroy() error
}

// Callbacks are invoked by the surface implementation. OnReady fires exactly
// once per surface, after which commands may be issued. Implementations may
// fire OnReady synchronously from Factory.New.
type Callbacks struct {
	OnReady       func()
	OnStateChange func(playing bool)
	OnError       func(err error)
}

// Config controls surface construction.
type Config struct {
	ContainerID string

	// NativeControls is always false when the coordination layer constructs a
	// surface: it must own every control path, or direct manipulation of the
	// player would desynchronize the room.
	NativeControls bool
}

// Factory constructs surfaces for media identities.
type Factory interface {
	New(mediaID string, cfg Config, cb Callbacks) (Surface, error)
}
