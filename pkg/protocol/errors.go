package protocol

import "fmt"

// SnapshotCreationError means the backup root or the snapshot directory
// could not be created. No mutation may proceed after it.
type SnapshotCreationError struct {
	Dir string
	Err error
}

func (e *SnapshotCreationError) Error() string {
	return fmt.Sprintf("create snapshot in %s: %v", e.Dir, e.Err)
}

func (e *SnapshotCreationError) Unwrap() error { return e.Err }

// SnapshotNotFoundError represents a restore of an unknown snapshot id.
type SnapshotNotFoundError struct {
	ID string
}

func (e *SnapshotNotFoundError) Error() string {
	return fmt.Sprintf("snapshot %s not found", e.ID)
}

// VariantApplyError wraps a failure raised by a variant's Apply.
// The snapshot taken for the cycle is kept.
type VariantApplyError struct {
	Variant string
	Err     error
}

func (e *VariantApplyError) Error() string {
	return fmt.Sprintf("apply mutation %s: %v", e.Variant, e.Err)
}

func (e *VariantApplyError) Unwrap() error { return e.Err }

// NothingToUndoError is returned by undo when the ledger is empty and no
// snapshot id was supplied.
type NothingToUndoError struct{}

func (e *NothingToUndoError) Error() string {
	return "nothing to undo: history is empty"
}

// AlreadyUndoneError is returned when undo targets an event that was
// already reverted.
type AlreadyUndoneError struct {
	EventID  string
	Mutation string
}

func (e *AlreadyUndoneError) Error() string {
	return fmt.Sprintf("mutation %s (event %s) was already undone", e.Mutation, e.EventID)
}
