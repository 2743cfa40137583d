package main

import (
	"context"
	"path/filepath"
	"testing"
)

func TestResolvePaths_Defaults(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	paths, err := ResolvePaths(context.Background(), root)
	if err != nil {
		t.Fatalf("ResolvePaths() error: %v", err)
	}

	base := filepath.Join(root, ".roulette")
	if paths.Root != root {
		t.Errorf("Root = %q, want %q", paths.Root, root)
	}
	if paths.Home != base {
		t.Errorf("Home = %q, want %q", paths.Home, base)
	}
	if paths.DBPath != filepath.Join(base, "ledger.db") {
		t.Errorf("DBPath = %q", paths.DBPath)
	}
	if paths.SocketPath != filepath.Join(base, "roulette.sock") {
		t.Errorf("SocketPath = %q", paths.SocketPath)
	}
	if paths.PIDPath != filepath.Join(base, "roulette.pid") {
		t.Errorf("PIDPath = %q", paths.PIDPath)
	}
	if paths.SnapshotDir != filepath.Join(base, "snapshots") {
		t.Errorf("SnapshotDir = %q", paths.SnapshotDir)
	}
}

func TestResolvePaths_EnvOverrides(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()

	t.Setenv("ROULETTE_HOME", filepath.Join(tmpDir, "home"))
	t.Setenv("ROULETTE_DB_PATH", filepath.Join(tmpDir, "custom.db"))
	t.Setenv("ROULETTE_SNAPSHOT_DIR", filepath.Join(tmpDir, "backups"))

	paths, err := ResolvePaths(context.Background(), tmpDir)
	if err != nil {
		t.Fatalf("ResolvePaths() error: %v", err)
	}

	if paths.Home != filepath.Join(tmpDir, "home") {
		t.Errorf("Home = %q", paths.Home)
	}
	if paths.DBPath != filepath.Join(tmpDir, "custom.db") {
		t.Errorf("DBPath = %q, want override", paths.DBPath)
	}
	if paths.SnapshotDir != filepath.Join(tmpDir, "backups") {
		t.Errorf("SnapshotDir = %q, want override", paths.SnapshotDir)
	}
	// Paths without their own override follow ROULETTE_HOME.
	if paths.PIDPath != filepath.Join(tmpDir, "home", "roulette.pid") {
		t.Errorf("PIDPath = %q, want under ROULETTE_HOME", paths.PIDPath)
	}
}

func TestResolvePaths_RelativeRoot(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	paths, err := ResolvePaths(context.Background(), "sub")
	if err != nil {
		t.Fatalf("ResolvePaths() error: %v", err)
	}
	if !filepath.IsAbs(paths.Root) || filepath.Base(paths.Root) != "sub" {
		t.Errorf("Root = %q, want absolute path ending in sub", paths.Root)
	}
}
