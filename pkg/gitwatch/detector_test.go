package gitwatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

// fakeGit answers rev-parse from a mutable head.
type fakeGit struct {
	mu     sync.Mutex
	head   string
	stderr string
	err    error
	calls  int
}

func (f *fakeGit) Run(_ context.Context, _ string, args ...string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.stderr, f.err
	}
	if f.head == "" {
		return "", "", errors.New("exit status 1")
	}
	return f.head + "\n", "", nil
}

func (f *fakeGit) set(head string) {
	f.mu.Lock()
	f.head = head
	f.mu.Unlock()
}

func newTestDetector(t *testing.T, git *fakeGit, cooldown time.Duration) *Detector {
	t.Helper()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	return New(Options{
		Root:         root,
		PollInterval: 10 * time.Millisecond,
		Debounce:     -1,
		Cooldown:     cooldown,
		Runner:       git,
	})
}

func TestHead(t *testing.T) {
	git := &fakeGit{head: "abc123"}
	d := newTestDetector(t, git, 0)

	got, err := d.Head(context.Background())
	if err != nil || got != "abc123" {
		t.Fatalf("Head() = %q, %v", got, err)
	}
}

func TestHeadUnbornRepository(t *testing.T) {
	d := newTestDetector(t, &fakeGit{}, 0)

	got, err := d.Head(context.Background())
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if got != "" {
		t.Errorf("Head() = %q, want empty for a repository without commits", got)
	}
}

func TestHeadNotRepository(t *testing.T) {
	git := &fakeGit{err: errors.New("exit status 128"), stderr: "fatal: not a git repository (or any of the parent directories): .git"}
	d := newTestDetector(t, git, 0)

	if _, err := d.Head(context.Background()); !errors.Is(err, ErrNotRepository) {
		t.Fatalf("Head() error = %v, want ErrNotRepository", err)
	}
}

func TestRunEmitsNewCommits(t *testing.T) {
	git := &fakeGit{head: "aaaa"}
	d := newTestDetector(t, git, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan Commit, 4)
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, out) }()

	select {
	case c := <-out:
		t.Fatalf("initial HEAD must not be reported, got %v", c)
	case <-time.After(50 * time.Millisecond):
	}

	git.set("bbbb")
	select {
	case c := <-out:
		if c.Hash != "bbbb" {
			t.Errorf("Hash = %q, want bbbb", c.Hash)
		}
		if c.At.IsZero() {
			t.Error("At should be set")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for commit")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v after cancel", err)
	}
}

func TestRunWaitsForFirstCommit(t *testing.T) {
	git := &fakeGit{}
	d := newTestDetector(t, git, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan Commit, 1)
	go func() { _ = d.Run(ctx, out) }()

	time.Sleep(30 * time.Millisecond)
	git.set("first")

	select {
	case c := <-out:
		if c.Hash != "first" {
			t.Errorf("Hash = %q", c.Hash)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first commit in an empty repository was not reported")
	}
}

func TestRunFailsOutsideRepository(t *testing.T) {
	git := &fakeGit{err: errors.New("exit status 128"), stderr: "fatal: not a git repository"}
	d := newTestDetector(t, git, 0)

	if err := d.Run(context.Background(), make(chan Commit)); !errors.Is(err, ErrNotRepository) {
		t.Fatalf("Run() = %v, want ErrNotRepository", err)
	}
}

func TestCheckCooldown(t *testing.T) {
	git := &fakeGit{head: "one"}
	d := newTestDetector(t, git, time.Hour)
	d.last = "zero"

	out := make(chan Commit, 4)
	ctx := context.Background()

	d.check(ctx, out)
	git.set("two")
	d.check(ctx, out)

	if len(out) != 1 {
		t.Fatalf("emitted %d commits, want 1 inside the cooldown", len(out))
	}
	if c := <-out; c.Hash != "one" {
		t.Errorf("Hash = %q, want one", c.Hash)
	}
	if d.last != "two" {
		t.Errorf("last = %q, skipped commit should still be recorded", d.last)
	}
}

func TestCheckIgnoresUnchangedHead(t *testing.T) {
	git := &fakeGit{head: "same"}
	d := newTestDetector(t, git, 0)
	d.last = "same"

	out := make(chan Commit, 1)
	d.check(context.Background(), out)
	if len(out) != 0 {
		t.Fatal("unchanged HEAD must not emit")
	}
}

func TestRelevant(t *testing.T) {
	tests := map[string]bool{
		"/r/.git/HEAD":           true,
		"/r/.git/logs/HEAD":      true,
		"/r/.git/COMMIT_EDITMSG": true,
		"/r/.git/index":          false,
		"/r/.git/index.lock":     false,
		"/r/.git/HEAD.lock":      false,
	}
	for name, want := range tests {
		if got := relevant(fsnotify.Event{Name: name, Op: fsnotify.Write}); got != want {
			t.Errorf("relevant(%q) = %v, want %v", name, got, want)
		}
	}
}
