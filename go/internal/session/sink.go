package session

// NoticeLevel grades a notice for the UI layer.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

// NoticeCode identifies the subsystem a notice originated from.
type NoticeCode string

const (
	NoticeTransport      NoticeCode = "transport"
	NoticeSurfaceFatal   NoticeCode = "surface_fatal"
	NoticeSurfaceCommand NoticeCode = "surface_command"
)

// Sink receives display-only signals for the external UI layer: the
// pending-sync indicator, viewer counts, and best-effort notices.
// Implementations must return quickly and must not call back into the Engine.
type Sink interface {
	// PendingSync reports whether a remotely-triggered play is parked behind
	// the autoplay gate, waiting for a user gesture.
	PendingSync(active bool)

	ViewerCount(count int)

	Notice(level NoticeLevel, code NoticeCode, message string)
}

// NopSink discards all signals.
type NopSink struct{}

func (NopSink) PendingSync(bool)                       {}
func (NopSink) ViewerCount(int)                        {}
func (NopSink) Notice(NoticeLevel, NoticeCode, string) {}
