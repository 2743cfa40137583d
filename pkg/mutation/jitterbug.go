package mutation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var jitterComments = []string{
	"Did you mean to write this?",
	"This looks suspicious...",
	"Rewrite this entire file",
	"I'm watching you...",
	"Bug detected (maybe), ha!",
	`¯\_(ツ)_/¯`,
	"This code is cursed",
	"Have you tried turning it off and on again?",
}

// DefaultHopInterval is how often the jitterbug visits another file.
const DefaultHopInterval = 30 * time.Second

// Jitterbug hops between the open documents for the configured duration and
// leaves a "helpful" comment in each one it visits. Undo and expiry both
// remove the comments it left.
type Jitterbug struct {
	HopInterval time.Duration

	mu  sync.Mutex
	run *hopRun
}

type hopRun struct {
	env     Env
	handle  *Handle
	stop    chan struct{}
	stopped chan struct{}

	// inserted counts the comment lines left per absolute path.
	inserted map[string]map[string]int
}

func NewJitterbug() *Jitterbug { return &Jitterbug{HopInterval: DefaultHopInterval} }

func (*Jitterbug) Name() string        { return "jitterbug" }
func (*Jitterbug) Description() string { return "Hops between open files and leaves 'helpful' comments" }

func (*Jitterbug) Capabilities() Capabilities {
	return Capabilities{SelfUndo: true, Expires: true}
}

func (*Jitterbug) Duration(env Env) time.Duration { return env.duration(DefaultDuration) }

func (*Jitterbug) Eligible(ws Workspace) bool { return len(ws.Open) > 1 }

func (j *Jitterbug) Apply(ctx context.Context, env Env) (*Handle, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.run != nil {
		if err := j.finishLocked(j.run); err != nil {
			return nil, fmt.Errorf("stop previous hopping: %w", err)
		}
	}
	if !j.Eligible(env.Workspace) {
		return nil, ErrNotEligible
	}

	run := &hopRun{
		env:      env,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
		inserted: make(map[string]map[string]int),
	}
	if err := run.hop(); err != nil {
		return nil, err
	}

	interval := j.HopInterval
	if interval <= 0 {
		interval = DefaultHopInterval
	}
	go run.loop(interval)

	run.handle = Schedule(j.Duration(env), func(context.Context) error {
		return j.expire(run)
	})
	j.run = run
	env.notify("The jitterbug is loose in your open files.")
	return run.handle, nil
}

func (j *Jitterbug) Undo(context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.run == nil {
		return ErrNothingPending
	}
	run := j.run
	if err := j.finishLocked(run); err != nil {
		return err
	}
	run.env.notify("File hopper stopped and its comments removed.")
	return nil
}

func (j *Jitterbug) expire(run *hopRun) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.run != run {
		return nil
	}
	if err := j.finishLocked(run); err != nil {
		return err
	}
	run.env.notify("The hopping has stopped.")
	return nil
}

// finishLocked stops the hop loop, waits for it to exit and strips the
// comments it inserted.
func (j *Jitterbug) finishLocked(run *hopRun) error {
	j.run = nil
	run.handle.Cancel()
	close(run.stop)
	<-run.stopped
	return run.cleanup()
}

func (r *hopRun) loop(interval time.Duration) {
	defer close(r.stopped)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			_ = r.hop()
		}
	}
}

// hop inserts one comment at a random line of a random open document.
func (r *hopRun) hop() error {
	ws := r.env.Workspace
	rnd := r.env.rand()
	rel := ws.Open[rnd.IntN(len(ws.Open))]

	f, err := loadText(ws.Abs(rel))
	if err != nil {
		return fmt.Errorf("hop to %s: %w", rel, err)
	}
	line := commentPrefix(rel) + " " + jitterComments[rnd.IntN(len(jitterComments))]

	lines := strings.Split(f.content, "\n")
	at := rnd.IntN(len(lines))
	lines = append(lines[:at], append([]string{line}, lines[at:]...)...)
	if err := f.write(strings.Join(lines, "\n")); err != nil {
		return err
	}

	counts, ok := r.inserted[f.path]
	if !ok {
		counts = make(map[string]int)
		r.inserted[f.path] = counts
	}
	counts[line]++
	return nil
}

// cleanup removes the inserted comment lines, leaving any other edits alone.
func (r *hopRun) cleanup() error {
	var errs []error
	for path, counts := range r.inserted {
		f, err := loadText(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		lines := strings.Split(f.content, "\n")
		kept := lines[:0]
		for _, l := range lines {
			if counts[l] > 0 {
				counts[l]--
				continue
			}
			kept = append(kept, l)
		}
		if err := f.write(strings.Join(kept, "\n")); err != nil {
			errs = append(errs, err)
		}
	}
	r.inserted = nil
	return errors.Join(errs...)
}
