package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"roulette/pkg/engine"
	"roulette/pkg/ledger"
	"roulette/pkg/protocol"
	"roulette/pkg/snapshot"
)

func TestRenderStats(t *testing.T) {
	styles := NewStyles(DefaultTheme())

	if out := renderStats(ledger.Stats{}, styles); !strings.Contains(out, "No mutations yet") {
		t.Errorf("empty stats:\n%s", out)
	}

	s := ledger.Stats{
		Total:    4,
		ByStatus: map[string]int{"undone": 2, "accepted": 1, "expired": 1},
		Mutations: []ledger.MutationCount{
			{Mutation: "variable-reverser", Total: 3, Undone: 2, Accepted: 1},
			{Mutation: "australian-mode", Total: 1, Expired: 1},
		},
	}
	out := renderStats(s, styles)
	for _, want := range []string{"Mutations", "Undo rate", "50%", "variable-reverser", "australian-mode", "Accepted"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestDescribeUndo(t *testing.T) {
	tests := []struct {
		name string
		res  engine.UndoResult
		want string
	}{
		{
			name: "self undo",
			res:  engine.UndoResult{Mutation: "jitterbug", Method: engine.MethodSelfUndo},
			want: "Undid jitterbug.",
		},
		{
			name: "already reverted",
			res:  engine.UndoResult{Mutation: "australian-mode", Method: engine.MethodAlreadyReverted},
			want: "australian-mode had already reverted itself; marked undone.",
		},
		{
			name: "snapshot with failures",
			res: engine.UndoResult{
				Mutation:   "placebo",
				SnapshotID: "42",
				Method:     engine.MethodSnapshot,
				Report: snapshot.Report{
					Restored: 2,
					Failed:   []snapshot.FileError{{Path: "c.go", Err: errors.New("denied")}},
				},
			},
			want: "Undid placebo: restored 2 files from snapshot 42 (1 failed).",
		},
		{
			name: "explicit snapshot",
			res:  engine.UndoResult{SnapshotID: "7", Method: engine.MethodSnapshot},
			want: "restored 0 files from snapshot 7.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeUndo(tt.res); got != tt.want {
				t.Errorf("describeUndo() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBenignUndo(t *testing.T) {
	if msg, ok := benignUndo(&protocol.NothingToUndoError{}); !ok || msg != "Nothing to undo." {
		t.Errorf("nothing to undo: %q %v", msg, ok)
	}
	if msg, ok := benignUndo(&protocol.AlreadyUndoneError{EventID: "e", Mutation: "placebo"}); !ok || !strings.Contains(msg, "placebo") {
		t.Errorf("already undone: %q %v", msg, ok)
	}
	if _, ok := benignUndo(errors.New("disk on fire")); ok {
		t.Error("other errors are not benign")
	}
	if _, ok := benignUndo(nil); ok {
		t.Error("nil is not benign")
	}
}

func TestPrintOutcome(t *testing.T) {
	styles := NewStyles(DefaultTheme())
	tests := []struct {
		out  engine.Outcome
		want string
	}{
		{out: engine.Outcome{Result: engine.ResultDisabled}, want: "disabled"},
		{out: engine.Outcome{Result: engine.ResultSafeRoll, Roll: 42.5}, want: "safe (rolled 42.50)"},
		{out: engine.Outcome{Result: engine.ResultApplied, Mutation: "placebo", SnapshotID: "9"}, want: "placebo (snapshot 9)"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		printOutcome(&buf, styles, tt.out)
		if !strings.Contains(buf.String(), tt.want) {
			t.Errorf("printOutcome(%s) = %q, want %q", tt.out.Result, buf.String(), tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:       "0 B",
		1023:    "1023 B",
		1024:    "1.0 KiB",
		1536:    "1.5 KiB",
		5 << 20: "5.0 MiB",
		3 << 30: "3.0 GiB",
	}
	for n, want := range tests {
		if got := formatBytes(n); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}
