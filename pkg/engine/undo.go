package engine

import (
	"context"
	"errors"
	"fmt"

	"roulette/pkg/mutation"
	"roulette/pkg/protocol"
	"roulette/pkg/snapshot"
)

// UndoMethod is how an undo was carried out.
type UndoMethod string

const (
	MethodSelfUndo        UndoMethod = "self-undo"        // the variant reversed itself
	MethodSnapshot        UndoMethod = "snapshot-restore" // files restored from the snapshot
	MethodAlreadyReverted UndoMethod = "already-reverted" // the variant's timer had already reverted it
)

// UndoResult reports a finished undo.
type UndoResult struct {
	EventID    string          `json:"event_id,omitempty"`
	Mutation   string          `json:"mutation,omitempty"`
	SnapshotID string          `json:"snapshot_id"`
	Method     UndoMethod      `json:"method"`
	Report     snapshot.Report `json:"-"`
}

// Undo reverts the latest mutation. With a snapshotID that does not belong
// to the latest event, it restores that snapshot directly.
func (e *Engine) Undo(ctx context.Context, snapshotID string) (UndoResult, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	latest, err := e.ledger.Latest(ctx)
	if err != nil {
		return UndoResult{}, fmt.Errorf("undo: %w", err)
	}
	if latest == nil && snapshotID == "" {
		return UndoResult{}, &protocol.NothingToUndoError{}
	}
	if snapshotID != "" && (latest == nil || latest.SnapshotID != snapshotID) {
		report, err := e.snapshots.Restore(ctx, snapshotID)
		if err != nil {
			return UndoResult{SnapshotID: snapshotID}, err
		}
		e.notifyRestore(report)
		return UndoResult{SnapshotID: snapshotID, Method: MethodSnapshot, Report: report}, nil
	}
	return e.undoEventLocked(ctx, *latest)
}

// UndoEvent reverts one specific event.
func (e *Engine) UndoEvent(ctx context.Context, eventID string) (UndoResult, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	ev, err := e.ledger.Get(ctx, eventID)
	if err != nil {
		return UndoResult{EventID: eventID}, fmt.Errorf("undo: %w", err)
	}
	return e.undoEventLocked(ctx, ev)
}

func (e *Engine) undoEventLocked(ctx context.Context, ev protocol.Event) (UndoResult, error) {
	res := UndoResult{EventID: ev.ID, Mutation: ev.Mutation, SnapshotID: ev.SnapshotID}

	slot := e.takeActive(ev.ID)
	if slot == nil {
		// The event may have expired since it was read. onExpire writes the
		// status while holding the slot lock, so a fresh read is current.
		fresh, err := e.ledger.Get(ctx, ev.ID)
		if err != nil {
			return res, fmt.Errorf("undo: %w", err)
		}
		ev = fresh
	}

	switch ev.Status {
	case protocol.StatusUndone:
		return res, &protocol.AlreadyUndoneError{EventID: ev.ID, Mutation: ev.Mutation}
	case protocol.StatusExpired:
		if slot == nil {
			return e.markUndone(ctx, res, MethodAlreadyReverted)
		}
	}

	if slot != nil {
		if !slot.handle.Cancel() && slot.handle.Fired() {
			// The timer won the race; wait for it instead of reverting twice.
			<-slot.handle.Done()
			return e.markUndone(ctx, res, MethodAlreadyReverted)
		}
		if slot.variant.Capabilities().SelfUndo {
			err := slot.variant.Undo(ctx)
			if err == nil {
				e.notifier.Notify(fmt.Sprintf("Mutation %s undone.", ev.Mutation))
				return e.markUndone(ctx, res, MethodSelfUndo)
			}
			if !errors.Is(err, mutation.ErrNothingPending) {
				e.logger.Warn("roulette: self-undo failed, restoring snapshot",
					"mutation", ev.Mutation, "snapshot", ev.SnapshotID, "err", err)
			}
		}
	}

	report, err := e.snapshots.Restore(ctx, ev.SnapshotID)
	if err != nil {
		return res, err
	}
	res.Report = report
	e.notifyRestore(report)
	return e.markUndone(ctx, res, MethodSnapshot)
}

func (e *Engine) markUndone(ctx context.Context, res UndoResult, method UndoMethod) (UndoResult, error) {
	res.Method = method
	if err := e.ledger.SetStatus(ctx, res.EventID, protocol.StatusUndone); err != nil {
		return res, fmt.Errorf("mark %s undone: %w", res.EventID, err)
	}
	e.finish(StateUndone)
	e.logger.Info("roulette: mutation undone", "mutation", res.Mutation, "event", res.EventID, "method", method)
	return res, nil
}

func (e *Engine) notifyRestore(r snapshot.Report) {
	if len(r.Failed) > 0 {
		e.notifier.Notify(fmt.Sprintf("Restored snapshot %s: %d files, %d failed (see log).", r.ID, r.Restored, len(r.Failed)))
		return
	}
	e.notifier.Notify(fmt.Sprintf("Restored snapshot %s (%d files).", r.ID, r.Restored))
}
