package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"roulette/pkg/protocol"
)

// Paths holds all resolved roulette state file paths.
// Use ResolvePaths() to populate this struct with defaults + env overrides.
type Paths struct {
	Root        string // workspace root
	Home        string // <root>/.roulette or ROULETTE_HOME
	DBPath      string // ledger.db or ROULETTE_DB_PATH
	SocketPath  string // roulette.sock or ROULETTE_SOCKET_PATH
	PIDPath     string // roulette.pid or ROULETTE_PID_PATH
	SnapshotDir string // snapshots/ or ROULETTE_SNAPSHOT_DIR
}

// ResolvePaths returns all roulette paths for the workspace, respecting env
// var overrides.
// Environment variables:
//   - ROULETTE_HOME: base directory for all state (default: <root>/.roulette)
//   - ROULETTE_DB_PATH: history ledger (default: $ROULETTE_HOME/ledger.db)
//   - ROULETTE_SOCKET_PATH: watch daemon UDS socket (default: $ROULETTE_HOME/roulette.sock)
//   - ROULETTE_PID_PATH: watch daemon PID file (default: $ROULETTE_HOME/roulette.pid)
//   - ROULETTE_SNAPSHOT_DIR: snapshot backups (default: $ROULETTE_HOME/snapshots)
//
// rootFlag wins over git discovery; an empty rootFlag uses the git top-level
// of the working directory, or the working directory itself.
func ResolvePaths(ctx context.Context, rootFlag string) (*Paths, error) {
	root, err := resolveRoot(ctx, rootFlag)
	if err != nil {
		return nil, err
	}

	home := os.Getenv("ROULETTE_HOME")
	if home == "" {
		home = filepath.Join(root, protocol.StateDir)
	}

	return &Paths{
		Root:        root,
		Home:        home,
		DBPath:      resolvePathWithEnv("ROULETTE_DB_PATH", home, protocol.LedgerFile),
		SocketPath:  resolvePathWithEnv("ROULETTE_SOCKET_PATH", home, "roulette.sock"),
		PIDPath:     resolvePathWithEnv("ROULETTE_PID_PATH", home, "roulette.pid"),
		SnapshotDir: resolvePathWithEnv("ROULETTE_SNAPSHOT_DIR", home, protocol.SnapshotsDir),
	}, nil
}

// resolveRoot returns an absolute workspace root.
func resolveRoot(ctx context.Context, rootFlag string) (string, error) {
	if rootFlag != "" {
		abs, err := filepath.Abs(rootFlag)
		if err != nil {
			return "", fmt.Errorf("resolve root %s: %w", rootFlag, err)
		}
		return abs, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working dir: %w", err)
	}
	out, err := exec.CommandContext(ctx, "git", "-C", cwd, "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return cwd, nil
	}
	if top := strings.TrimSpace(string(out)); top != "" {
		return top, nil
	}
	return cwd, nil
}

// resolvePathWithEnv returns the path from envKey if set, otherwise joins base + suffix.
func resolvePathWithEnv(envKey, base, suffix string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return filepath.Join(base, suffix)
}
