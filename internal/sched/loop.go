package sched

import (
	"context"
	"sync"
)

// queueDepth bounds the number of pending callbacks. Event sources in this
// system are a handful of timers and the platform event streams, so the
// queue never grows past a few entries in practice.
const queueDepth = 64

// Loop is a single-goroutine executor. Every callback posted to it runs to
// completion before the next one starts, which gives the control plane its
// ordering guarantee: state mutation and any resulting timer rearm or cancel
// are atomic with respect to every other callback.
//
// Thread Safety:
//   - Post is safe for concurrent use from any goroutine, including from
//     callbacks already running on the loop.
type Loop struct {
	fns chan func()

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// NewLoop creates a Loop. Run must be called before posted callbacks execute.
func NewLoop() *Loop {
	return &Loop{
		fns:  make(chan func(), queueDepth),
		done: make(chan struct{}),
	}
}

// Run executes posted callbacks until ctx is cancelled. It blocks; callers
// normally run it in a dedicated goroutine. After Run returns, further posts
// are dropped.
func (l *Loop) Run(ctx context.Context) {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.mu.Unlock()
		close(l.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.fns:
			fn()
		}
	}
}

// Post enqueues fn for execution on the loop goroutine. It reports whether
// the callback was accepted; false means the loop has stopped (or the queue
// is saturated, which indicates a stuck callback).
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.mu.Unlock()

	select {
	case l.fns <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for it to finish. It must not be called
// from a loop callback (that would deadlock); it exists for synchronous
// queries from other goroutines.
func (l *Loop) Call(fn func()) bool {
	ch := make(chan struct{})
	ok := l.Post(func() {
		fn()
		close(ch)
	})
	if !ok {
		return false
	}
	select {
	case <-ch:
		return true
	case <-l.done:
		return false
	}
}

// Done returns a channel closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
