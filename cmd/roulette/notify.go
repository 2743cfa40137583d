package main

import (
	"fmt"
	"io"
	"sync"
)

// styledNotifier prints engine notifications as one highlighted line.
type styledNotifier struct {
	mu     sync.Mutex
	w      io.Writer
	styles Styles
}

func newStyledNotifier(w io.Writer, t Theme) *styledNotifier {
	return &styledNotifier{w: w, styles: NewStyles(t)}
}

// Notify implements engine.Notifier.
func (n *styledNotifier) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "%s %s\n", n.styles.Notice.Render("🎰"), msg)
}
