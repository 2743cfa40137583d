package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

// clearEnv unsets every ROULETTE_* variable the CLI reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ROULETTE_HOME", "ROULETTE_DB_PATH", "ROULETTE_SOCKET_PATH", "ROULETTE_PID_PATH", "ROULETTE_SNAPSHOT_DIR",
		"ROULETTE_ENABLED", "ROULETTE_PROBABILITY", "ROULETTE_ENABLED_MUTATIONS", "ROULETTE_MUTATION_DURATION_MINUTES",
		"ROULETTE_INSPECTING",
	} {
		t.Setenv(k, "")
	}
}

// newWorkspace returns a workspace root holding one source file.
func newWorkspace(t *testing.T) string {
	t.Helper()
	clearEnv(t)
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

// onlyPlacebo restricts the catalog so triggers are deterministic.
func onlyPlacebo(t *testing.T, root string) {
	t.Helper()
	dir := filepath.Join(root, ".roulette")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`enabled_mutations = ["placebo"]`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

// runCLI executes the root command against root and returns stdout.
func runCLI(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--root", root}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// mustRunCLI fails the test when the command errors.
func mustRunCLI(t *testing.T, root string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, root, args...)
	if err != nil {
		t.Fatalf("roulette %v: %v\noutput:\n%s", args, err, out)
	}
	return out
}
