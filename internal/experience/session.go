package experience

import "time"

// SessionStatus is the lifecycle state of one guest traversal.
type SessionStatus string

const (
	SessionCreated   SessionStatus = "created"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	// SessionAbandoned is never written by the runtime. It is derived at
	// query time for sessions that stalled without completing.
	SessionAbandoned SessionStatus = "abandoned"
)

// Mode distinguishes a real guest run from an admin previewing the draft.
type Mode string

const (
	ModeGuest   Mode = "guest"
	ModePreview Mode = "preview"
)

// Source names which snapshot the session was created against.
type Source string

const (
	SourceDraft     Source = "draft"
	SourcePublished Source = "published"
)

// AbandonCutoff is how long a non-completed session may sit untouched
// before listings report it abandoned.
const AbandonCutoff = 24 * time.Hour

// DeriveStatus maps a stored status to the one listings report: created
// and active sessions untouched for longer than cutoff are abandoned.
// Completed is terminal and never reinterpreted.
func DeriveStatus(stored SessionStatus, updatedAt, now time.Time, cutoff time.Duration) SessionStatus {
	if stored == SessionCompleted {
		return stored
	}
	if now.Sub(updatedAt) > cutoff {
		return SessionAbandoned
	}
	return stored
}
