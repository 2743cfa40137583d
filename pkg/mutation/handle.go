package mutation

import (
	"context"
	"sync"
	"time"
)

type handleState int

const (
	handlePending handleState = iota
	handleCancelled
	handleFired
)

// Handle is a scheduled reversal. Exactly one of Cancel or the timer wins:
// once Cancel returns true the reversal never runs, and once the timer has
// started the reversal Cancel returns false.
type Handle struct {
	mu       sync.Mutex
	state    handleState
	timer    *time.Timer
	deadline time.Time
	done     chan struct{}
	err      error
	onExpire []func(error)
}

// Schedule runs revert after d unless the returned handle is cancelled first.
func Schedule(d time.Duration, revert func(context.Context) error) *Handle {
	h := &Handle{
		done:     make(chan struct{}),
		deadline: time.Now().Add(d),
	}
	h.timer = time.AfterFunc(d, func() { h.fire(revert) })
	return h
}

func (h *Handle) fire(revert func(context.Context) error) {
	h.mu.Lock()
	if h.state != handlePending {
		h.mu.Unlock()
		return
	}
	h.state = handleFired
	h.mu.Unlock()

	err := revert(context.Background())

	h.mu.Lock()
	h.err = err
	callbacks := h.onExpire
	h.onExpire = nil
	close(h.done)
	h.mu.Unlock()

	for _, fn := range callbacks {
		fn(err)
	}
}

// Cancel stops the scheduled reversal. It reports true if the reversal had
// not started and now never will.
func (h *Handle) Cancel() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != handlePending {
		return false
	}
	h.state = handleCancelled
	h.timer.Stop()
	return true
}

// Fired reports whether the timer started the reversal.
func (h *Handle) Fired() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == handleFired
}

// Pending reports whether the reversal is still scheduled.
func (h *Handle) Pending() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == handlePending
}

// Done is closed once a fired reversal has finished. It is never closed for
// a cancelled handle.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Deadline is when the reversal is scheduled to run.
func (h *Handle) Deadline() time.Time {
	return h.deadline
}

// Err is the reversal's error once Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// OnExpire registers fn to run after the reversal finishes. If it already
// finished, fn runs immediately.
func (h *Handle) OnExpire(fn func(error)) {
	h.mu.Lock()
	select {
	case <-h.done:
		err := h.err
		h.mu.Unlock()
		fn(err)
		return
	default:
	}
	h.onExpire = append(h.onExpire, fn)
	h.mu.Unlock()
}
