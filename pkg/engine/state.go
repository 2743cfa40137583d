package engine

// State is where the engine is in the roulette protocol.
type State int

const (
	StateIdle State = iota
	StateGated
	StateSnapshotting
	StateSelecting
	StateApplying
	StateActive
	StateUndone
	StateExpired
	StateAccepted
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateGated:        "gated",
	StateSnapshotting: "snapshotting",
	StateSelecting:    "selecting",
	StateApplying:     "applying",
	StateActive:       "active",
	StateUndone:       "undone",
	StateExpired:      "expired",
	StateAccepted:     "accepted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Result is how a roulette cycle ended.
type Result string

const (
	ResultDisabled   Result = "disabled"    // enabled=false and not forced
	ResultSafeRoll   Result = "safe-roll"   // the draw was >= probability, or a debugger is attached
	ResultAborted    Result = "aborted"     // snapshot or workspace inspection failed
	ResultNoEligible Result = "no-eligible" // no variant is both enabled and eligible
	ResultFailed     Result = "failed"      // the variant failed to apply or could not be recorded
	ResultApplied    Result = "applied"     // mutation in place, no choice made
	ResultUndone     Result = "undone"      // user chose Undo
	ResultAccepted   Result = "accepted"    // user chose Accept Fate
	ResultExpired    Result = "expired"     // the mutation expired while the choice was pending
)

// Mutated reports whether the cycle applied a mutation, whatever happened after.
func (r Result) Mutated() bool {
	switch r {
	case ResultApplied, ResultUndone, ResultAccepted, ResultExpired:
		return true
	default:
		return false
	}
}
