package protocol_test

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"roulette/pkg/protocol"
)

func TestSnapshotCreationError_ErrorsAs(t *testing.T) {
	err := fmt.Errorf("roulette cycle: %w", &protocol.SnapshotCreationError{
		Dir: "/tmp/snaps",
		Err: os.ErrPermission,
	})

	var target *protocol.SnapshotCreationError
	if !errors.As(err, &target) {
		t.Fatal("errors.As failed to extract SnapshotCreationError")
	}
	if target.Dir != "/tmp/snaps" {
		t.Errorf("expected Dir '/tmp/snaps', got %q", target.Dir)
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Error("expected wrapped os.ErrPermission to be reachable via errors.Is")
	}
}

func TestVariantApplyError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := &protocol.VariantApplyError{Variant: "australian-mode", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable via errors.Is")
	}
	if !strings.Contains(err.Error(), "australian-mode") {
		t.Errorf("expected variant name in message, got %q", err.Error())
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", &protocol.SnapshotNotFoundError{ID: "1700000000000"}, "snapshot 1700000000000 not found"},
		{"nothing to undo", &protocol.NothingToUndoError{}, "nothing to undo: history is empty"},
		{"already undone", &protocol.AlreadyUndoneError{EventID: "e1", Mutation: "placebo"}, "mutation placebo (event e1) was already undone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
