package transport

import (
	"errors"

	"github.com/lockstep-live/lockstep/go/internal/protocol"
)

// ErrClosed is returned when sending on a closed channel.
var ErrClosed = errors.New("transport: channel closed")

// Channel is a bidirectional event channel to the coordinator. Implementations
// own the connection lifecycle, including reconnect and backoff; after a
// reconnect they synthesize an EventTypeReconnected event so the engine can
// request fresh authoritative state.
type Channel interface {
	// Events returns the inbound event stream. The channel is closed when the
	// transport shuts down.
	Events() <-chan protocol.Event

	// SendIntent delivers an outbound intent. Best-effort: a full outbound
	// buffer drops the intent with a warning rather than blocking the engine.
	SendIntent(intent protocol.Intent) error

	Close() error
}
