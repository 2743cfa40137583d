// Package engine runs the roulette protocol: gate, snapshot, select, apply,
// record, then offer the undo. It owns the single active-mutation slot and
// the undo logic that picks between a variant's self-undo and a snapshot
// restore.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"roulette/pkg/mutation"
	"roulette/pkg/protocol"
	"roulette/pkg/snapshot"
)

// ErrNotActive is returned by Accept when the event is no longer applied.
var ErrNotActive = errors.New("engine: mutation is no longer active")

// Settings is the configuration read at the start of every cycle.
type Settings struct {
	Enabled          bool
	Probability      float64 // percent, 0-100
	EnabledMutations []string
	MutationDuration time.Duration
}

// SettingsSource loads Settings. It is called on every cycle so edits take
// effect without a restart.
type SettingsSource interface {
	Settings() (Settings, error)
}

// SnapshotStore is the subset of *snapshot.Store the engine uses.
type SnapshotStore interface {
	Create(ctx context.Context) (string, error)
	Restore(ctx context.Context, id string) (snapshot.Report, error)
}

// Ledger is the subset of *ledger.Store the engine uses.
type Ledger interface {
	Append(ctx context.Context, e protocol.Event) (protocol.Event, error)
	Latest(ctx context.Context) (*protocol.Event, error)
	Get(ctx context.Context, id string) (protocol.Event, error)
	SetStatus(ctx context.Context, id string, s protocol.Status) error
}

// WorkspaceProbe reports the workspace context variants are selected against.
type WorkspaceProbe interface {
	Inspect(ctx context.Context) (mutation.Workspace, error)
}

// DebugProbe reports whether the user is in a debugging session.
type DebugProbe interface {
	Debugging(ctx context.Context) bool
}

// Notifier shows a one-line message to the user.
type Notifier interface {
	Notify(msg string)
}

// Options wires an Engine. Catalog, Snapshots, Ledger, Settings and
// Workspace are required.
type Options struct {
	Catalog   *mutation.Catalog
	Snapshots SnapshotStore
	Ledger    Ledger
	Settings  SettingsSource
	Workspace WorkspaceProbe
	Debug     DebugProbe
	Prompter  Prompter
	Notifier  Notifier
	Logger    *slog.Logger
	Rand      mutation.Rand
	Out       io.Writer // handed to variants that write to the terminal
}

// Trigger describes why a cycle runs.
type Trigger struct {
	Force  bool   // probability 100, ignores enabled
	Reason string // e.g. the commit hash
}

// Outcome reports a finished cycle.
type Outcome struct {
	Result     Result  `json:"result"`
	Roll       float64 `json:"roll"`
	Forced     bool    `json:"forced,omitempty"`
	SnapshotID string  `json:"snapshot_id,omitempty"`
	Mutation   string  `json:"mutation,omitempty"`
	EventID    string  `json:"event_id,omitempty"`
}

// ActiveInfo describes the mutation in the active slot.
type ActiveInfo struct {
	Mutation   string    `json:"mutation"`
	EventID    string    `json:"event_id"`
	SnapshotID string    `json:"snapshot_id"`
	AppliedAt  time.Time `json:"applied_at"`
	ExpiresAt  time.Time `json:"expires_at,omitzero"`
}

type activeSlot struct {
	variant    mutation.Variant
	eventID    string
	snapshotID string
	handle     *mutation.Handle
	token      uint64
	appliedAt  time.Time
}

// Engine runs roulette cycles and undo for one workspace.
type Engine struct {
	catalog   *mutation.Catalog
	snapshots SnapshotStore
	ledger    Ledger
	settings  SettingsSource
	workspace WorkspaceProbe
	debug     DebugProbe
	prompter  Prompter
	notifier  Notifier
	logger    *slog.Logger
	rand      mutation.Rand
	out       io.Writer
	now       func() time.Time

	// opMu serializes protocol operations (cycles, undo, accept).
	opMu sync.Mutex

	// mu guards the fields below. It is never held across a snapshot walk
	// or a variant call, so expiry callbacks never wait on a cycle.
	mu        sync.Mutex
	step      State // in-flight protocol step, StateIdle between operations
	last      State // terminal state of the last cycle
	active    *activeSlot
	nextToken uint64
}

// New validates opts and returns an Engine.
func New(opts Options) (*Engine, error) {
	switch {
	case opts.Catalog == nil:
		return nil, errors.New("engine: catalog is required")
	case opts.Snapshots == nil:
		return nil, errors.New("engine: snapshot store is required")
	case opts.Ledger == nil:
		return nil, errors.New("engine: ledger is required")
	case opts.Settings == nil:
		return nil, errors.New("engine: settings source is required")
	case opts.Workspace == nil:
		return nil, errors.New("engine: workspace probe is required")
	}

	e := &Engine{
		catalog:   opts.Catalog,
		snapshots: opts.Snapshots,
		ledger:    opts.Ledger,
		settings:  opts.Settings,
		workspace: opts.Workspace,
		debug:     opts.Debug,
		prompter:  opts.Prompter,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
		rand:      opts.Rand,
		out:       opts.Out,
		now:       time.Now,
	}
	if e.debug == nil {
		e.debug = neverDebugging{}
	}
	if e.prompter == nil {
		e.prompter = NopPrompter{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.notifier == nil {
		e.notifier = logNotifier{logger: e.logger}
	}
	if e.rand == nil {
		e.rand = mutation.DefaultRand
	}
	if e.out == nil {
		e.out = io.Discard
	}
	return e, nil
}

// State returns the current protocol state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.step != StateIdle:
		return e.step
	case e.active != nil:
		return StateActive
	default:
		return e.last
	}
}

// Active returns the mutation in the active slot, if any.
func (e *Engine) Active() (ActiveInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return ActiveInfo{}, false
	}
	info := ActiveInfo{
		Mutation:   e.active.variant.Name(),
		EventID:    e.active.eventID,
		SnapshotID: e.active.snapshotID,
		AppliedAt:  e.active.appliedAt,
	}
	if e.active.handle.Pending() {
		info.ExpiresAt = e.active.handle.Deadline()
	}
	return info, true
}

func (e *Engine) setStep(s State) {
	e.mu.Lock()
	e.step = s
	e.mu.Unlock()
}

func (e *Engine) finish(terminal State) {
	e.mu.Lock()
	e.step = StateIdle
	e.last = terminal
	e.mu.Unlock()
}

// Roulette runs one cycle. Errors are returned only for protocol failures
// (settings, snapshot, apply, record); a safe roll or an empty selection
// is a normal outcome.
func (e *Engine) Roulette(ctx context.Context, trig Trigger) (Outcome, error) {
	out, offer, err := e.spin(ctx, trig)
	if err != nil || offer == nil {
		return out, err
	}
	return e.resolve(ctx, out, offer)
}

type pendingOffer struct {
	offer  Offer
	handle *mutation.Handle
}

// spin runs the protocol up to Active under opMu.
func (e *Engine) spin(ctx context.Context, trig Trigger) (Outcome, *pendingOffer, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	out := Outcome{Forced: trig.Force}

	settings, err := e.settings.Settings()
	if err != nil {
		out.Result = ResultAborted
		e.notifier.Notify(fmt.Sprintf("Roulette skipped: %v", err))
		return out, nil, fmt.Errorf("load settings: %w", err)
	}
	if !trig.Force && !settings.Enabled {
		out.Result = ResultDisabled
		return out, nil, nil
	}

	probability := settings.Probability
	if trig.Force {
		probability = 100
	}

	e.setStep(StateGated)
	out.Roll = e.rand.Float64() * 100
	// Written so a NaN probability never passes the gate.
	if !(out.Roll < probability) {
		e.logger.Debug("roulette: safe roll", "roll", out.Roll, "probability", probability, "reason", trig.Reason)
		out.Result = ResultSafeRoll
		e.finish(StateIdle)
		return out, nil, nil
	}
	if !trig.Force && e.debug.Debugging(ctx) {
		e.logger.Info("roulette: debugging session detected, skipping", "reason", trig.Reason)
		out.Result = ResultSafeRoll
		e.finish(StateIdle)
		return out, nil, nil
	}

	// Retire the previous mutation before the snapshot so the new snapshot
	// never captures its effect.
	e.supersede(ctx)

	e.setStep(StateSnapshotting)
	snapID, err := e.snapshots.Create(ctx)
	if err != nil {
		e.finish(StateIdle)
		out.Result = ResultAborted
		e.notifier.Notify(fmt.Sprintf("Snapshot failed, no mutation applied: %v", err))
		return out, nil, err
	}
	out.SnapshotID = snapID

	e.setStep(StateSelecting)
	ws, err := e.workspace.Inspect(ctx)
	if err != nil {
		e.finish(StateIdle)
		out.Result = ResultAborted
		return out, nil, fmt.Errorf("inspect workspace: %w", err)
	}
	eligible := e.catalog.Eligible(ws, settings.EnabledMutations)
	if len(eligible) == 0 {
		e.logger.Info("roulette: no eligible mutation", "snapshot", snapID)
		out.Result = ResultNoEligible
		e.finish(StateIdle)
		return out, nil, nil
	}
	v := eligible[e.rand.IntN(len(eligible))]
	out.Mutation = v.Name()

	e.setStep(StateApplying)
	env := mutation.Env{
		Workspace: ws,
		Duration:  settings.MutationDuration,
		Notify:    e.notifier.Notify,
		Rand:      e.rand,
		Out:       e.out,
	}
	handle, err := v.Apply(ctx, env)
	if err != nil {
		e.finish(StateIdle)
		out.Result = ResultFailed
		applyErr := &protocol.VariantApplyError{Variant: v.Name(), Err: err}
		e.notifier.Notify(fmt.Sprintf("Mutation %s failed: %v (snapshot %s kept)", v.Name(), err, snapID))
		return out, nil, applyErr
	}

	ev, err := e.ledger.Append(ctx, protocol.Event{
		Timestamp:  e.now(),
		Mutation:   v.Name(),
		SnapshotID: snapID,
		Status:     protocol.StatusApplied,
	})
	if err != nil {
		e.revertUnrecorded(ctx, v, handle, snapID)
		e.finish(StateIdle)
		out.Result = ResultFailed
		return out, nil, fmt.Errorf("record mutation %s: %w", v.Name(), err)
	}
	out.EventID = ev.ID
	out.Result = ResultApplied

	token := uint64(0)
	e.mu.Lock()
	e.step = StateIdle
	e.last = StateIdle
	if v.Capabilities().SelfUndo || handle != nil {
		e.nextToken++
		token = e.nextToken
		e.active = &activeSlot{
			variant:    v,
			eventID:    ev.ID,
			snapshotID: snapID,
			handle:     handle,
			token:      token,
			appliedAt:  ev.Timestamp,
		}
	}
	e.mu.Unlock()
	// Registered after the slot is filled; a timer that already fired runs
	// the callback right here.
	if handle != nil {
		name := v.Name()
		handle.OnExpire(func(err error) { e.onExpire(token, ev.ID, name, err) })
	}

	e.logger.Info("roulette: mutation applied",
		"mutation", v.Name(), "event", ev.ID, "snapshot", snapID, "roll", out.Roll, "reason", trig.Reason)

	return out, &pendingOffer{
		offer: Offer{
			EventID:     ev.ID,
			Mutation:    v.Name(),
			Description: v.Description(),
			SnapshotID:  snapID,
			Duration:    v.Duration(env),
		},
		handle: handle,
	}, nil
}

// resolve offers Undo / Accept outside opMu so an undo directive can still
// get through while the prompt is open.
func (e *Engine) resolve(ctx context.Context, out Outcome, p *pendingOffer) (Outcome, error) {
	promptCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if p.handle != nil {
		go func() {
			select {
			case <-p.handle.Done():
				cancel()
			case <-promptCtx.Done():
			}
		}()
	}

	switch e.prompter.Offer(promptCtx, p.offer) {
	case ChoiceUndo:
		if _, err := e.UndoEvent(ctx, out.EventID); err != nil {
			var already *protocol.AlreadyUndoneError
			if !errors.As(err, &already) {
				return out, err
			}
		}
		out.Result = ResultUndone
	case ChoiceAccept:
		err := e.Accept(ctx, out.EventID)
		switch {
		case errors.Is(err, ErrNotActive):
			out.Result = ResultExpired
		case err != nil:
			return out, err
		default:
			out.Result = ResultAccepted
		}
	default:
		if p.handle.Fired() {
			out.Result = ResultExpired
		}
	}
	return out, nil
}

// Accept records the user's acceptance. A timed mutation stays in the slot
// and still expires on schedule.
func (e *Engine) Accept(ctx context.Context, eventID string) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	ev, err := e.ledger.Get(ctx, eventID)
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	if ev.Status != protocol.StatusApplied {
		return fmt.Errorf("%w: %s is %s", ErrNotActive, ev.Mutation, ev.Status)
	}
	if err := e.ledger.SetStatus(ctx, eventID, protocol.StatusAccepted); err != nil {
		return fmt.Errorf("accept: %w", err)
	}

	e.mu.Lock()
	if e.active != nil && e.active.eventID == eventID && !e.active.handle.Pending() {
		e.active = nil
	}
	e.last = StateAccepted
	e.mu.Unlock()

	e.logger.Info("roulette: fate accepted", "mutation", ev.Mutation, "event", eventID)
	return nil
}

// takeActive removes the slot and returns it when eventID matches, or for
// any event when eventID is empty.
func (e *Engine) takeActive(eventID string) *activeSlot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil || (eventID != "" && e.active.eventID != eventID) {
		return nil
	}
	slot := e.active
	e.active = nil
	return slot
}

// onExpire runs after a variant's timer reverted it. It only acts if the
// slot still belongs to the expiring application.
func (e *Engine) onExpire(token uint64, eventID, name string, revertErr error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil || e.active.token != token {
		return
	}
	e.active = nil
	e.last = StateExpired

	if revertErr != nil {
		e.logger.Warn("roulette: expiry revert failed", "mutation", name, "event", eventID, "err", revertErr)
	}
	// Held under mu so an undo that finds the slot empty sees the new status.
	if err := e.ledger.SetStatus(context.Background(), eventID, protocol.StatusExpired); err != nil {
		e.logger.Warn("roulette: record expiry", "event", eventID, "err", err)
	}
	e.logger.Info("roulette: mutation expired", "mutation", name, "event", eventID)
}

// supersede force-undoes the mutation in the active slot before a new
// one is applied.
func (e *Engine) supersede(ctx context.Context) {
	slot := e.takeActive("")
	if slot == nil {
		return
	}
	e.logger.Info("roulette: superseding active mutation", "mutation", slot.variant.Name(), "event", slot.eventID)
	e.retire(ctx, slot, protocol.StatusUndone)
}

// Shutdown reverts a timed mutation still in the slot, so no effect outlives
// the process that owns its timer.
func (e *Engine) Shutdown(ctx context.Context) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	slot := e.takeActive("")
	if slot == nil {
		return
	}
	if !slot.handle.Pending() {
		return
	}
	e.retire(ctx, slot, protocol.StatusExpired)
}

// retire reverts a slot the caller has already taken.
func (e *Engine) retire(ctx context.Context, slot *activeSlot, final protocol.Status) {
	if !slot.handle.Cancel() && slot.handle.Fired() {
		<-slot.handle.Done()
		e.setStatus(ctx, slot.eventID, protocol.StatusExpired)
		return
	}
	if err := slot.variant.Undo(ctx); err != nil && !errors.Is(err, mutation.ErrNothingPending) {
		e.logger.Warn("roulette: self-undo failed, restoring snapshot",
			"mutation", slot.variant.Name(), "event", slot.eventID, "snapshot", slot.snapshotID, "err", err)
		r, rerr := e.snapshots.Restore(ctx, slot.snapshotID)
		if rerr != nil {
			e.logger.Error("roulette: could not revert mutation",
				"mutation", slot.variant.Name(), "event", slot.eventID, "snapshot", slot.snapshotID, "err", rerr)
			e.notifier.Notify(fmt.Sprintf("Could not revert %s: %v", slot.variant.Name(), rerr))
			return
		}
		e.notifyRestore(r)
	}
	e.setStatus(ctx, slot.eventID, final)
}

// revertUnrecorded backs out a mutation whose ledger append failed, so no
// effect exists without a history entry.
func (e *Engine) revertUnrecorded(ctx context.Context, v mutation.Variant, h *mutation.Handle, snapID string) {
	h.Cancel()
	if v.Capabilities().SelfUndo {
		if err := v.Undo(ctx); err == nil {
			return
		}
	}
	if _, err := e.snapshots.Restore(ctx, snapID); err != nil {
		e.logger.Error("roulette: could not revert unrecorded mutation", "mutation", v.Name(), "snapshot", snapID, "err", err)
	}
}

func (e *Engine) setStatus(ctx context.Context, eventID string, s protocol.Status) {
	if err := e.ledger.SetStatus(ctx, eventID, s); err != nil {
		e.logger.Warn("roulette: update history", "event", eventID, "status", s, "err", err)
	}
}

type neverDebugging struct{}

func (neverDebugging) Debugging(context.Context) bool { return false }

type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Notify(msg string) {
	n.logger.Info(msg)
}
