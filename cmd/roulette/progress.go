package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// progressLog prints step-by-step progress for init and watch, with a
// spinner for slow steps when attached to a terminal.
type progressLog struct {
	w      io.Writer
	isTTY  bool
	styles Styles
	mu     sync.Mutex
}

func newProgressLog(w io.Writer, isTTY bool, styles Styles) *progressLog {
	return &progressLog{w: w, isTTY: isTTY, styles: styles}
}

// Step prints a completed step.
func (p *progressLog) Step(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s %s\n", p.styles.Good.Render("✓"), fmt.Sprintf(format, args...))
}

// Warn prints a step that completed with a caveat.
func (p *progressLog) Warn(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s %s\n", p.styles.Warn.Render("!"), fmt.Sprintf(format, args...))
}

// StartSpinner starts a spinner for msg and returns the function that stops
// it and prints the checkmark. Without a terminal it prints msg once.
func (p *progressLog) StartSpinner(msg string) func() {
	if !p.isTTY {
		p.mu.Lock()
		fmt.Fprintf(p.w, "%s\n", msg)
		p.mu.Unlock()

		return func() { p.Step("%s", msg) }
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)

	frames := spinner.MiniDot.Frames
	fps := spinner.MiniDot.FPS

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(fps)
		defer ticker.Stop()

		for i := 0; ; i = (i + 1) % len(frames) {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.mu.Lock()
				fmt.Fprintf(p.w, "\r%s %s", frames[i], msg)
				p.mu.Unlock()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()

			p.mu.Lock()
			defer p.mu.Unlock()
			fmt.Fprintf(p.w, "\r%s %s\n", p.styles.Good.Render("✓"), msg)
		})
	}
}
