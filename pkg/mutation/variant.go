// Package mutation defines the variant contract, the catalog of variants and
// the cancellable expiry handle used by variants that revert themselves.
package mutation

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"path/filepath"
	"time"
)

var (
	// ErrCannotSelfUndo is returned by Undo on variants without the SelfUndo capability.
	ErrCannotSelfUndo = errors.New("mutation: variant cannot self-undo")

	// ErrNothingPending is returned by Undo when no application is pending.
	ErrNothingPending = errors.New("mutation: nothing pending")

	// ErrNotEligible is returned by Apply when the workspace no longer qualifies.
	ErrNotEligible = errors.New("mutation: workspace not eligible")
)

// Capabilities is the explicit record of what a variant can do. The engine
// decides how to undo from these flags, never from type assertions.
type Capabilities struct {
	SelfUndo bool // Undo reverses the effect without a snapshot restore
	Expires  bool // Apply schedules an automatic reversal and returns a Handle
}

// Variant is one kind of mutation.
type Variant interface {
	Name() string
	Description() string
	Capabilities() Capabilities
	// Eligible reports whether the variant can act on ws. It must not
	// modify anything.
	Eligible(ws Workspace) bool
	// Apply performs the effect. Variants that expire return a Handle for
	// the scheduled reversal; others return nil.
	Apply(ctx context.Context, env Env) (*Handle, error)
	// Undo reverses the most recent Apply of this instance.
	Undo(ctx context.Context) error
	// Duration is how long the effect persists. Zero for one-shot edits.
	Duration(env Env) time.Duration
}

// Workspace is the context a variant inspects and edits.
type Workspace struct {
	Root        string   // absolute workspace root
	Focus       string   // root-relative path of the focused document, "" if none
	Open        []string // root-relative paths of the documents in play
	Interactive bool     // a terminal is attached
}

// Abs returns the absolute path of a root-relative path.
func (w Workspace) Abs(rel string) string {
	return filepath.Join(w.Root, filepath.FromSlash(rel))
}

// HasFocus reports whether there is a focused document.
func (w Workspace) HasFocus() bool {
	return w.Focus != ""
}

// Rand is the source of randomness handed to variants. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

type globalRand struct{}

func (globalRand) IntN(n int) int   { return rand.IntN(n) }
func (globalRand) Float64() float64 { return rand.Float64() }

// DefaultRand is backed by the math/rand/v2 global source.
var DefaultRand Rand = globalRand{}

// Env is everything Apply may use besides the workspace files.
type Env struct {
	Workspace Workspace
	Duration  time.Duration // configured auto-expiry for timed variants
	Notify    func(msg string)
	Rand      Rand
	Out       io.Writer // terminal output, for variants that make noise
}

func (e Env) notify(msg string) {
	if e.Notify != nil {
		e.Notify(msg)
	}
}

func (e Env) rand() Rand {
	if e.Rand != nil {
		return e.Rand
	}
	return DefaultRand
}

func (e Env) duration(fallback time.Duration) time.Duration {
	if e.Duration > 0 {
		return e.Duration
	}
	return fallback
}

// DefaultDuration is used when no duration is configured.
const DefaultDuration = 5 * time.Minute

// oneShot provides the contract methods shared by variants that edit once
// and rely on the snapshot for undo.
type oneShot struct{}

func (oneShot) Capabilities() Capabilities { return Capabilities{} }
func (oneShot) Duration(Env) time.Duration { return 0 }
func (oneShot) Undo(context.Context) error { return ErrCannotSelfUndo }
