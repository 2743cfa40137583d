package mutation

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// AustralianMode turns the focused file upside down by reversing its line
// order, then turns it back when the configured duration elapses.
type AustralianMode struct {
	mu      sync.Mutex
	pending *upsideDown
}

type upsideDown struct {
	path   string
	rel    string
	env    Env
	handle *Handle
}

func NewAustralianMode() *AustralianMode { return &AustralianMode{} }

func (*AustralianMode) Name() string        { return "australian-mode" }
func (*AustralianMode) Description() string { return "Turns your code upside down (reverses line order)" }

func (*AustralianMode) Capabilities() Capabilities {
	return Capabilities{SelfUndo: true, Expires: true}
}

func (*AustralianMode) Duration(env Env) time.Duration { return env.duration(DefaultDuration) }

func (*AustralianMode) Eligible(ws Workspace) bool { return ws.HasFocus() }

func (a *AustralianMode) Apply(ctx context.Context, env Env) (*Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pending != nil {
		if err := a.revertLocked(); err != nil {
			return nil, fmt.Errorf("undo previous flip: %w", err)
		}
	}

	f, _, err := editFocus(env.Workspace, reverseLines)
	if err != nil {
		return nil, err
	}

	p := &upsideDown{path: f.path, rel: env.Workspace.Focus, env: env}
	p.handle = Schedule(a.Duration(env), func(context.Context) error {
		return a.expire(p)
	})
	a.pending = p
	env.notify("G'day mate! aye")
	return p.handle, nil
}

// Undo flips the file back. Reversing lines is its own inverse, so edits
// made while upside down survive the flip.
func (a *AustralianMode) Undo(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return ErrNothingPending
	}
	return a.revertLocked()
}

func (a *AustralianMode) expire(p *upsideDown) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending != p {
		return nil
	}
	if err := a.revertLocked(); err != nil {
		return err
	}
	p.env.notify("Back to the northern hemisphere!")
	return nil
}

func (a *AustralianMode) revertLocked() error {
	p := a.pending
	a.pending = nil
	p.handle.Cancel()

	f, err := loadText(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			p.env.notify(fmt.Sprintf("Could not restore Australian Mode (%s is gone)", p.rel))
		}
		return fmt.Errorf("restore %s: %w", p.rel, err)
	}
	return f.write(reverseLines(f.content))
}

func reverseLines(content string) string {
	lines := strings.Split(content, "\n")
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.Join(lines, "\n")
}
