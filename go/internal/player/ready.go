package player

import "sync"

// APIReady is the process-wide latch for the player library's one-shot
// "API ready" signal. Resolve is called exactly once at startup by the
// embedding layer; every subsequent session construction waits on Done.
type APIReady struct {
	once sync.Once
	done chan struct{}
}

// NewAPIReady returns an unresolved latch.
func NewAPIReady() *APIReady {
	return &APIReady{done: make(chan struct{})}
}

// Resolve marks the player API as ready. Safe to call more than once; only
// the first call has any effect.
func (r *APIReady) Resolve() {
	r.once.Do(func() { close(r.done) })
}

// Done returns a channel closed once the API is ready.
func (r *APIReady) Done() <-chan struct{} {
	return r.done
}

// Resolved reports whether the API is ready without blocking.
func (r *APIReady) Resolved() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}
