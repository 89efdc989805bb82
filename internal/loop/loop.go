// Package loop provides a single-goroutine event loop. Work posted from any
// goroutine is executed in FIFO order on the goroutine that calls Run, so
// state owned by the loop never needs to be shared across goroutines.
package loop

import (
	"context"
	"sync"
)

// Loop is an unbounded FIFO of functions drained in ticks. One tick runs
// every function that was pending when the tick started; functions posted
// during a tick run in the next one.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	closed  bool
	ticks   int64
	wake    chan struct{}
}

// New creates an empty loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn for the next tick. It reports false when the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()
	l.signal()
	return true
}

// Step runs a single tick and returns the number of functions executed.
func (l *Loop) Step() int {
	l.mu.Lock()
	batch := l.pending
	l.pending = nil
	if len(batch) > 0 {
		l.ticks++
	}
	l.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Drain runs ticks until nothing is pending and returns the number of ticks run.
func (l *Loop) Drain() int {
	n := 0
	for l.Step() > 0 {
		n++
	}
	return n
}

// Run executes ticks until ctx is done or the loop is closed. Work pending at
// Close is still executed before Run returns nil.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Step()

		l.mu.Lock()
		idle := len(l.pending) == 0
		closed := l.closed
		l.mu.Unlock()

		if !idle {
			continue
		}
		if closed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Close stops accepting work and wakes Run so it can return.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.signal()
}

// Ticks returns the number of non-empty ticks executed so far.
func (l *Loop) Ticks() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticks
}

// Pending returns the number of functions waiting for the next tick.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
