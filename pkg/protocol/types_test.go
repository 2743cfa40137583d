package protocol_test

import (
	"testing"

	"roulette/pkg/protocol"
)

func TestStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to protocol.Status
		want     bool
	}{
		{protocol.StatusApplied, protocol.StatusUndone, true},
		{protocol.StatusApplied, protocol.StatusExpired, true},
		{protocol.StatusApplied, protocol.StatusAccepted, true},
		{protocol.StatusApplied, protocol.StatusApplied, false},
		{protocol.StatusAccepted, protocol.StatusUndone, true},
		{protocol.StatusAccepted, protocol.StatusExpired, true},
		{protocol.StatusAccepted, protocol.StatusApplied, false},
		{protocol.StatusExpired, protocol.StatusUndone, true},
		{protocol.StatusExpired, protocol.StatusAccepted, false},
		{protocol.StatusUndone, protocol.StatusApplied, false},
		{protocol.StatusUndone, protocol.StatusExpired, false},
		{protocol.StatusUndone, protocol.StatusUndone, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvent_WasUndone(t *testing.T) {
	for _, s := range []protocol.Status{protocol.StatusApplied, protocol.StatusAccepted, protocol.StatusExpired} {
		if (protocol.Event{Status: s}).WasUndone() {
			t.Errorf("status %s should not report WasUndone", s)
		}
	}
	if !(protocol.Event{Status: protocol.StatusUndone}).WasUndone() {
		t.Error("undone event should report WasUndone")
	}
}

func TestOp_Valid(t *testing.T) {
	for _, op := range []protocol.Op{protocol.OpUndo, protocol.OpTrigger, protocol.OpAccept, protocol.OpStatus} {
		if !op.Valid() {
			t.Errorf("%s should be valid", op)
		}
	}
	if protocol.Op("explode").Valid() {
		t.Error("unknown op should be invalid")
	}
}
