package session

import (
	"time"

	"github.com/lockstep-live/lockstep/go/internal/protocol"
)

// reconciliationState is the single per-client record guarded by the engine
// mutex. The two suppression flags are deadlines rather than booleans with
// clearing timers: a flag is "set" while the clock has not passed it, so no
// error path can leave one permanently set.
type reconciliationState struct {
	lastAppliedVersion  uint64
	pendingSnapshot     *protocol.Snapshot // single latest-wins slot
	hasUserInteracted   bool               // one-way
	manualSyncRequested bool
	applyingRemoteUntil time.Time
	localActionUntil    time.Time
}

func (s *reconciliationState) applyingRemote(now time.Time) bool {
	return now.Before(s.applyingRemoteUntil)
}

func (s *reconciliationState) localActionInFlight(now time.Time) bool {
	return now.Before(s.localActionUntil)
}
