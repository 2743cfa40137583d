// Package gitwatch turns new commits in a working tree into trigger events.
//
// The detector watches .git and .git/logs with fsnotify and re-reads HEAD
// after a debounce period. A ticker polls HEAD as a safety net, and is the
// only source when fsnotify is unavailable.
package gitwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// Defaults applied by New when the corresponding option is zero.
const (
	DefaultPollInterval = 10 * time.Second
	DefaultDebounce     = 5 * time.Second
)

// ErrNotRepository is returned by Head when Root is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Commit is one observed change of HEAD.
type Commit struct {
	Hash string
	At   time.Time
}

// Options configures a Detector.
type Options struct {
	Root         string
	PollInterval time.Duration
	Debounce     time.Duration // negative disables debouncing
	Cooldown     time.Duration // minimum gap between emitted commits, zero for none
	Runner       GitRunner
	Logger       *slog.Logger
	Now          func() time.Time
}

// Detector emits a Commit each time HEAD moves to a new hash.
type Detector struct {
	root     string
	poll     time.Duration
	debounce time.Duration
	runner   GitRunner
	logger   *slog.Logger
	now      func() time.Time
	limiter  *rate.Limiter

	last string
}

// New returns a Detector for opts.Root.
func New(opts Options) *Detector {
	d := &Detector{
		root:     opts.Root,
		poll:     opts.PollInterval,
		debounce: opts.Debounce,
		runner:   opts.Runner,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if d.poll <= 0 {
		d.poll = DefaultPollInterval
	}
	if d.debounce == 0 {
		d.debounce = DefaultDebounce
	}
	if d.runner == nil {
		d.runner = &ExecGitRunner{}
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.now == nil {
		d.now = time.Now
	}
	if opts.Cooldown > 0 {
		d.limiter = rate.NewLimiter(rate.Every(opts.Cooldown), 1)
	} else {
		d.limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return d
}

// Head returns the current HEAD hash, or "" for a repository without
// commits.
func (d *Detector) Head(ctx context.Context) (string, error) {
	out, stderr, err := d.runner.Run(ctx, d.root, "rev-parse", "--verify", "--quiet", "HEAD")
	if err == nil {
		return strings.TrimSpace(out), nil
	}
	if strings.Contains(stderr, "not a git repository") {
		return "", fmt.Errorf("%s: %w", d.root, ErrNotRepository)
	}
	// --verify --quiet exits 1 with no output when HEAD is unborn.
	if strings.TrimSpace(stderr) == "" && strings.TrimSpace(out) == "" {
		return "", nil
	}
	return "", fmt.Errorf("git rev-parse HEAD: %w: %s", err, strings.TrimSpace(stderr))
}

// Run blocks until ctx is done, sending each new commit on out. The HEAD
// present when Run starts is recorded and not reported.
func (d *Detector) Run(ctx context.Context, out chan<- Commit) error {
	head, err := d.Head(ctx)
	if err != nil {
		return err
	}
	d.last = head
	d.logger.Info("watching for commits", "root", d.root, "head", shortHash(head))

	watcher := d.initWatcher()
	if watcher == nil {
		return d.pollLoop(ctx, out)
	}
	defer func() { _ = watcher.Close() }()

	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	debounceTimer := newDebounceTimer()
	defer debounceTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return d.pollLoop(ctx, out)
			}
			if !relevant(ev) {
				continue
			}
			if d.debounce < 0 {
				d.check(ctx, out)
				continue
			}
			resetDebounceTimer(debounceTimer, d.debounce)
		case <-debounceTimer.C:
			d.check(ctx, out)
		case err, ok := <-watcher.Errors:
			if !ok {
				return d.pollLoop(ctx, out)
			}
			d.logger.Warn("fsnotify: watcher error", "error", err)
		case <-ticker.C:
			d.check(ctx, out)
		}
	}
}

func (d *Detector) pollLoop(ctx context.Context, out chan<- Commit) error {
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.check(ctx, out)
		}
	}
}

// initWatcher returns nil when fsnotify cannot be used; Run then polls.
func (d *Detector) initWatcher() *fsnotify.Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.logger.Warn("fsnotify: failed to create watcher, falling back to polling", "error", err)
		return nil
	}

	gitDir := filepath.Join(d.root, ".git")
	if err := watcher.Add(gitDir); err != nil {
		_ = watcher.Close()
		d.logger.Warn("fsnotify: failed to watch, falling back to polling", "path", gitDir, "error", err)
		return nil
	}
	// .git/logs only appears after the first commit; HEAD changes in .git
	// still cover that case.
	logs := filepath.Join(gitDir, "logs")
	if err := watcher.Add(logs); err != nil {
		d.logger.Debug("fsnotify: not watching logs", "path", logs, "error", err)
	}
	return watcher
}

// check re-reads HEAD and emits a Commit when it moved.
func (d *Detector) check(ctx context.Context, out chan<- Commit) {
	head, err := d.Head(ctx)
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Warn("read HEAD", "error", err)
		}
		return
	}
	if head == "" || head == d.last {
		return
	}
	d.last = head

	if !d.limiter.Allow() {
		d.logger.Info("commit within cooldown, skipped", "head", shortHash(head))
		return
	}

	d.logger.Info("new commit", "head", shortHash(head))
	select {
	case out <- Commit{Hash: head, At: d.now()}:
	case <-ctx.Done():
	}
}

// relevant filters out lock files and object writes, which never move HEAD
// on their own.
func relevant(ev fsnotify.Event) bool {
	name := filepath.Base(ev.Name)
	if strings.HasSuffix(name, ".lock") {
		return false
	}
	return name != "objects" && name != "index"
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

// newDebounceTimer returns a stopped timer. Since Go 1.23 Stop and Reset
// discard any pending tick, so no drain is needed.
func newDebounceTimer() *time.Timer {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	return timer
}

func resetDebounceTimer(timer *time.Timer, d time.Duration) {
	timer.Reset(d)
}
