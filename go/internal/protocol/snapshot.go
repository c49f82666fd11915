package protocol

// Snapshot is the coordinator's authoritative description of shared playback
// state at a point in time. The coordinator emits strictly increasing
// versions; a client must never regress to an older one.
type Snapshot struct {
	Version           uint64  `json:"version"`
	MediaID           string  `json:"media_id,omitempty"` // empty means "no media change", not "clear media"
	IsPlaying         bool    `json:"is_playing"`
	PlaybackTime      float64 `json:"playback_time"`       // seconds into the media at LastEventAtMs
	LastEventAtMs     int64   `json:"last_event_at_ms"`    // coordinator clock, ms
	CoordinatorTimeMs int64   `json:"coordinator_time_ms"` // coordinator clock, ms, >= LastEventAtMs
}

// TargetTime computes the playback position a client should be at right now.
// Both timestamps come from the coordinator's clock, so the extrapolation has
// no dependence on the client's wall clock. A paused snapshot is frozen at
// its recorded position regardless of how much time has since elapsed.
func (s Snapshot) TargetTime() float64 {
	if !s.IsPlaying {
		return s.PlaybackTime
	}
	target := s.PlaybackTime + float64(s.CoordinatorTimeMs-s.LastEventAtMs)/1000.0
	if target < 0 {
		return 0
	}
	return target
}
