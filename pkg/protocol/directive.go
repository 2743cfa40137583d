package protocol

// Op is a directive sent to a running watch daemon over its UDS socket.
// Requests and responses are line-delimited JSON.
type Op string

const (
	OpUndo    Op = "undo"    // Undo the latest mutation (or restore SnapshotID).
	OpTrigger Op = "trigger" // Force a roulette cycle at 100%.
	OpAccept  Op = "accept"  // Accept the active mutation.
	OpStatus  Op = "status"  // Report engine state and the active mutation.
)

// Valid reports whether o is a known op.
func (o Op) Valid() bool {
	switch o {
	case OpUndo, OpTrigger, OpAccept, OpStatus:
		return true
	default:
		return false
	}
}

// Request is a single directive.
type Request struct {
	Op         Op     `json:"op"`
	SnapshotID string `json:"snapshot_id,omitempty"`
}

// Response is the daemon's ACK for a Request.
type Response struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}
