package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"roulette/pkg/engine"
	"roulette/pkg/protocol"
)

// printOutcome writes a one-line summary of a roulette cycle.
func printOutcome(w io.Writer, styles Styles, out engine.Outcome) {
	switch out.Result {
	case engine.ResultDisabled:
		fmt.Fprintln(w, styles.Muted.Render("roulette is disabled"))
	case engine.ResultSafeRoll:
		fmt.Fprintln(w, styles.Muted.Render(fmt.Sprintf("safe (rolled %.2f)", out.Roll)))
	case engine.ResultNoEligible:
		fmt.Fprintln(w, styles.Muted.Render("the wheel stopped but no mutation fits this workspace"))
	case engine.ResultAborted, engine.ResultFailed:
		fmt.Fprintln(w, styles.Bad.Render(fmt.Sprintf("roulette %s", out.Result)))
	default:
		fmt.Fprintf(w, "%s %s (snapshot %s): %s\n",
			styles.Title.Render("mutated:"), out.Mutation, out.SnapshotID, styles.statusStyle(string(out.Result)).Render(string(out.Result)))
	}
}

// benignUndo turns the idempotent undo outcomes into a message.
func benignUndo(err error) (string, bool) {
	var nothing *protocol.NothingToUndoError
	if errors.As(err, &nothing) {
		return "Nothing to undo.", true
	}
	var already *protocol.AlreadyUndoneError
	if errors.As(err, &already) {
		return fmt.Sprintf("%s was already undone.", already.Mutation), true
	}
	return "", false
}

// waitForActive blocks while a timed mutation is active in a short-lived
// process, so its timer can revert it. ctx cancellation (Ctrl+C) ends the
// wait early; the caller's Shutdown then reverts it.
func waitForActive(ctx context.Context, w io.Writer, eng *engine.Engine) {
	info, ok := eng.Active()
	if !ok || info.ExpiresAt.IsZero() {
		return
	}
	fmt.Fprintf(w, "%s stays until %s. Press Ctrl+C to revert it now.\n",
		info.Mutation, info.ExpiresAt.Format(time.Kitchen))

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, ok := eng.Active(); !ok {
				return
			}
		}
	}
}
