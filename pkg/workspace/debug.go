package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// InspectMarker is the file in the state directory whose presence means a
// debugging session is in progress.
const InspectMarker = "inspect"

// InspectingEnv, when truthy, marks a debugging session.
const InspectingEnv = "ROULETTE_INSPECTING"

// Debuggers are the process names that count as a debugging session.
var Debuggers = []string{"dlv", "gdb", "lldb"}

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecCommandRunner implements CommandRunner using os/exec.
type ExecCommandRunner struct{}

// Run executes a command and returns its stdout.
func (r *ExecCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if ok := errors.As(err, &exitErr); ok {
			return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// DebugProbe detects a debugging session from a marker file, an
// environment variable, or a running debugger process.
type DebugProbe struct {
	StateDir string
	Runner   CommandRunner // nil skips the process check
	Getenv   func(string) string
	Logger   *slog.Logger
	Timeout  time.Duration
}

// NewDebugProbe returns a probe that checks all three signals.
func NewDebugProbe(stateDir string, logger *slog.Logger) *DebugProbe {
	return &DebugProbe{
		StateDir: stateDir,
		Runner:   &ExecCommandRunner{},
		Getenv:   os.Getenv,
		Logger:   logger,
		Timeout:  2 * time.Second,
	}
}

// Debugging implements engine.DebugProbe.
func (p *DebugProbe) Debugging(ctx context.Context) bool {
	if p.StateDir != "" {
		if _, err := os.Stat(filepath.Join(p.StateDir, InspectMarker)); err == nil {
			p.log("inspect marker present")
			return true
		}
	}
	if p.Getenv != nil {
		switch strings.ToLower(strings.TrimSpace(p.Getenv(InspectingEnv))) {
		case "1", "true", "yes":
			p.log(InspectingEnv + " set")
			return true
		}
	}
	if p.Runner == nil {
		return false
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	for _, name := range Debuggers {
		// pgrep exits 1 when nothing matches.
		out, err := p.Runner.Run(ctx, "pgrep", "-x", name)
		if err == nil && strings.TrimSpace(string(out)) != "" {
			p.log("debugger running", "process", name)
			return true
		}
	}
	return false
}

func (p *DebugProbe) log(msg string, args ...any) {
	if p.Logger != nil {
		p.Logger.Debug("debugging session: "+msg, args...)
	}
}
