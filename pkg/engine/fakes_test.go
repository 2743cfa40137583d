package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"roulette/pkg/ledger"
	"roulette/pkg/mutation"
	"roulette/pkg/protocol"
	"roulette/pkg/snapshot"

	"github.com/stretchr/testify/require"
)

// scriptedRand replays rolls for Float64 and always picks index 0.
type scriptedRand struct {
	mu    sync.Mutex
	rolls []float64
	i     int
}

func (r *scriptedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rolls) == 0 {
		return 0
	}
	f := r.rolls[r.i%len(r.rolls)]
	r.i++
	return f
}

func (r *scriptedRand) IntN(int) int { return 0 }

type fakeSettings struct {
	s   Settings
	err error
}

func (f *fakeSettings) Settings() (Settings, error) { return f.s, f.err }

type staticWorkspace struct {
	ws mutation.Workspace
}

func (s staticWorkspace) Inspect(context.Context) (mutation.Workspace, error) { return s.ws, nil }

type debugFlag bool

func (d debugFlag) Debugging(context.Context) bool { return bool(d) }

type recordingNotifier struct {
	mu    sync.Mutex
	notes []string
}

func (n *recordingNotifier) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, msg)
}

// countingSnapshots wraps a SnapshotStore and counts calls. createErr makes
// every Create fail.
type countingSnapshots struct {
	inner     SnapshotStore
	createErr error

	mu       sync.Mutex
	creates  int
	restores []string
}

func (c *countingSnapshots) Create(ctx context.Context) (string, error) {
	c.mu.Lock()
	c.creates++
	c.mu.Unlock()
	if c.createErr != nil {
		return "", c.createErr
	}
	return c.inner.Create(ctx)
}

func (c *countingSnapshots) Restore(ctx context.Context, id string) (snapshot.Report, error) {
	c.mu.Lock()
	c.restores = append(c.restores, id)
	c.mu.Unlock()
	return c.inner.Restore(ctx, id)
}

func (c *countingSnapshots) counts() (creates int, restores []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creates, append([]string(nil), c.restores...)
}

// fakeVariant records applies and undos. With Expires set it schedules a
// reversal after lifetime.
type fakeVariant struct {
	name     string
	caps     mutation.Capabilities
	eligible bool
	applyErr error
	undoErr  error
	lifetime time.Duration

	mu       sync.Mutex
	applies  int
	undos    int
	expiries int
	pending  bool
	handle   *mutation.Handle
}

func (v *fakeVariant) Name() string                        { return v.name }
func (v *fakeVariant) Description() string                 { return "fake " + v.name }
func (v *fakeVariant) Capabilities() mutation.Capabilities { return v.caps }
func (v *fakeVariant) Eligible(mutation.Workspace) bool    { return v.eligible }
func (v *fakeVariant) Duration(mutation.Env) time.Duration { return v.lifetime }

func (v *fakeVariant) Apply(context.Context, mutation.Env) (*mutation.Handle, error) {
	if v.applyErr != nil {
		return nil, v.applyErr
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.applies++
	v.pending = true
	if !v.caps.Expires {
		return nil, nil
	}
	v.handle = mutation.Schedule(v.lifetime, func(context.Context) error {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.pending {
			v.pending = false
			v.expiries++
		}
		return nil
	})
	return v.handle, nil
}

func (v *fakeVariant) Undo(context.Context) error {
	if !v.caps.SelfUndo {
		return mutation.ErrCannotSelfUndo
	}
	if v.undoErr != nil {
		return v.undoErr
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.pending {
		return mutation.ErrNothingPending
	}
	v.pending = false
	v.undos++
	v.handle.Cancel()
	return nil
}

func (v *fakeVariant) stats() (applies, undos, expiries int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.applies, v.undos, v.expiries
}

func oneShot(name string) *fakeVariant {
	return &fakeVariant{name: name, eligible: true}
}

func timed(name string, lifetime time.Duration) *fakeVariant {
	return &fakeVariant{
		name:     name,
		eligible: true,
		lifetime: lifetime,
		caps:     mutation.Capabilities{SelfUndo: true, Expires: true},
	}
}

type harness struct {
	engine    *Engine
	ledger    *ledger.Store
	snapshots *countingSnapshots
	settings  *fakeSettings
	notifier  *recordingNotifier
	rand      *scriptedRand
	root      string
}

type harnessOption func(*Options)

func withPrompter(p Prompter) harnessOption {
	return func(o *Options) { o.Prompter = p }
}

func withDebug(d DebugProbe) harnessOption {
	return func(o *Options) { o.Debug = d }
}

func newHarness(t *testing.T, variants []mutation.Variant, opts ...harnessOption) *harness {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := snapshot.New(snapshot.Options{
		Root:   root,
		Dir:    filepath.Join(t.TempDir(), "snapshots"),
		Logger: logger,
	})
	led, err := ledger.Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = led.Close() })

	catalog, err := mutation.NewCatalog(variants...)
	require.NoError(t, err)

	var names []string
	for _, v := range variants {
		names = append(names, v.Name())
	}

	h := &harness{
		ledger:    led,
		snapshots: &countingSnapshots{inner: store},
		settings: &fakeSettings{s: Settings{
			Enabled:          true,
			Probability:      100,
			EnabledMutations: names,
			MutationDuration: time.Minute,
		}},
		notifier: &recordingNotifier{},
		rand:     &scriptedRand{rolls: []float64{0.5}},
		root:     root,
	}

	o := Options{
		Catalog:   catalog,
		Snapshots: h.snapshots,
		Ledger:    led,
		Settings:  h.settings,
		Workspace: staticWorkspace{ws: mutation.Workspace{Root: root, Focus: "main.go", Open: []string{"main.go"}}},
		Notifier:  h.notifier,
		Logger:    logger,
		Rand:      h.rand,
	}
	for _, opt := range opts {
		opt(&o)
	}
	h.engine, err = New(o)
	require.NoError(t, err)
	return h
}

func (h *harness) events(t *testing.T) []protocol.Event {
	t.Helper()
	all, err := h.ledger.All(context.Background())
	require.NoError(t, err)
	return all
}

func (h *harness) status(t *testing.T, eventID string) protocol.Status {
	t.Helper()
	ev, err := h.ledger.Get(context.Background(), eventID)
	require.NoError(t, err)
	return ev.Status
}

var errBoom = errors.New("boom")
