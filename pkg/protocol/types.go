package protocol

import "time"

// Status is the lifecycle state of a recorded mutation event.
type Status string

const (
	StatusApplied  Status = "applied"  // Effect is (or was last known to be) in place.
	StatusAccepted Status = "accepted" // User chose "Accept Fate".
	StatusExpired  Status = "expired"  // The variant's own timer reverted the effect.
	StatusUndone   Status = "undone"   // Reverted by undo (self-undo or snapshot restore).
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusApplied, StatusAccepted, StatusExpired, StatusUndone:
		return true
	default:
		return false
	}
}

// CanTransition reports whether an event may move from s to next.
// Undone is terminal, so WasUndone only ever flips false to true.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusApplied:
		return next == StatusAccepted || next == StatusExpired || next == StatusUndone
	case StatusAccepted:
		return next == StatusExpired || next == StatusUndone
	case StatusExpired:
		return next == StatusUndone
	default:
		return false
	}
}

// Event is one row of the history ledger.
type Event struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Mutation   string    `json:"mutation"`
	SnapshotID string    `json:"snapshot_id"`
	Status     Status    `json:"status"`
}

// WasUndone reports whether the event was hard-undone.
func (e Event) WasUndone() bool {
	return e.Status == StatusUndone
}
