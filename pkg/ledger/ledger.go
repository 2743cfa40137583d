// Package ledger is the bounded, append-only history of applied mutations.
// Every successful roulette cycle appends exactly one event; only the event
// status changes afterwards.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roulette/pkg/protocol"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when an event id is not in the ledger.
	ErrNotFound = errors.New("ledger: event not found")

	// ErrInvalidTransition is returned when a status change would move an
	// event backwards (for example undone -> applied).
	ErrInvalidTransition = errors.New("ledger: invalid status transition")
)

// Store is the SQLite-backed history ledger.
type Store struct {
	db       *sql.DB
	capacity int
	now      func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithCapacity overrides the number of events retained (default protocol.LedgerCapacity).
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithClock overrides the clock used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New applies the ledger schema to db and returns a Store over it.
func New(ctx context.Context, db *sql.DB, opts ...Option) (*Store, error) {
	if _, err := db.ExecContext(ctx, protocol.SchemaDDL); err != nil {
		return nil, fmt.Errorf("ledger schema: %w", err)
	}
	s := &Store{db: db, capacity: protocol.LedgerCapacity, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Open opens (or creates) the ledger database at path.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := OpenDB(ctx, path)
	if err != nil {
		return nil, err
	}
	s, err := New(ctx, db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records e and evicts the oldest events beyond capacity in the same
// transaction. Missing ID, Timestamp and Status are filled in; the stored
// event is returned.
func (s *Store) Append(ctx context.Context, e protocol.Event) (protocol.Event, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	if e.Status == "" {
		e.Status = protocol.StatusApplied
	}
	if !e.Status.Valid() {
		return protocol.Event{}, fmt.Errorf("ledger append: unknown status %q", e.Status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return protocol.Event{}, fmt.Errorf("ledger begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO events (id, created_at, mutation, snapshot_id, status) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UnixNano(), e.Mutation, e.SnapshotID, string(e.Status),
	); err != nil {
		return protocol.Event{}, fmt.Errorf("ledger insert: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM events WHERE seq NOT IN (SELECT seq FROM events ORDER BY seq DESC LIMIT ?)`,
		s.capacity,
	); err != nil {
		return protocol.Event{}, fmt.Errorf("ledger evict: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return protocol.Event{}, fmt.Errorf("ledger commit: %w", err)
	}
	return e, nil
}

const selectColumns = `SELECT id, created_at, mutation, snapshot_id, status FROM events`

// Latest returns the most recently appended event, or nil when the ledger is empty.
func (s *Store) Latest(ctx context.Context) (*protocol.Event, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` ORDER BY seq DESC LIMIT 1`)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger latest: %w", err)
	}
	return &e, nil
}

// Get returns the event with the given id.
func (s *Store) Get(ctx context.Context, id string) (protocol.Event, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return protocol.Event{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return protocol.Event{}, fmt.Errorf("ledger get %s: %w", id, err)
	}
	return e, nil
}

// All returns every retained event in insertion order, oldest first.
func (s *Store) All(ctx context.Context) ([]protocol.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("ledger all: %w", err)
	}
	defer rows.Close()

	var events []protocol.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger scan: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// SetStatus moves event id to status next. Transitions that would move an
// event backwards return ErrInvalidTransition.
func (s *Store) SetStatus(ctx context.Context, id string, next protocol.Status) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM events WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("ledger status %s: %w", id, err)
	}

	if !protocol.Status(current).CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE events SET status = ? WHERE id = ?`, string(next), id); err != nil {
		return fmt.Errorf("ledger update %s: %w", id, err)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (protocol.Event, error) {
	var (
		e       protocol.Event
		created int64
		status  string
	)
	if err := row.Scan(&e.ID, &created, &e.Mutation, &e.SnapshotID, &status); err != nil {
		return protocol.Event{}, err
	}
	e.Timestamp = time.Unix(0, created)
	e.Status = protocol.Status(status)
	return e, nil
}
