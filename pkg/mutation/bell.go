package mutation

import (
	"context"
	"fmt"
	"strings"
)

// TerminalBell rings the terminal bell a few times.
type TerminalBell struct {
	oneShot
	Rings int
}

func NewTerminalBell() *TerminalBell { return &TerminalBell{Rings: 3} }

func (*TerminalBell) Name() string        { return "terminal-bell" }
func (*TerminalBell) Description() string { return "Plays a sound effect on every commit" }

func (*TerminalBell) Eligible(ws Workspace) bool { return ws.Interactive }

func (b *TerminalBell) Apply(_ context.Context, env Env) (*Handle, error) {
	if env.Out == nil {
		return nil, ErrNotEligible
	}
	if _, err := fmt.Fprint(env.Out, strings.Repeat("\a", b.Rings)); err != nil {
		return nil, fmt.Errorf("ring bell: %w", err)
	}
	return nil, nil
}
