package sched

import (
	"sync"
	"time"
)

// Timer is an owned, lazily allocated timer handle whose callback always
// executes on the owning Loop. A nil *Timer means "not running": Arm, Disarm
// and Armed are all no-ops on a nil receiver, so teardown paths never need
// to branch on whether a handle was ever allocated.
//
// Cancellation is observable: once Disarm returns, the callback will not run
// afterwards, even if the underlying expiry already fired. The generation
// counter is checked on the loop, where it is serialized with the Disarm.
type Timer struct {
	loop *Loop

	mu       sync.Mutex
	gen      uint64
	armed    bool
	periodic bool
	interval time.Duration
	fn       func()
	t        *time.Timer
}

// NewTimer allocates a timer handle bound to the loop.
func (l *Loop) NewTimer() *Timer {
	return &Timer{loop: l}
}

// Arm schedules fn after interval, rearming automatically when periodic.
// Re-arming an already armed timer replaces the previous schedule; the old
// callback will not run.
func (t *Timer) Arm(interval time.Duration, periodic bool, fn func()) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	t.armed = true
	t.periodic = periodic
	t.interval = interval
	t.fn = fn
	if t.t != nil {
		t.t.Stop()
	}
	t.schedule(t.gen)
}

// schedule starts the underlying timer for generation g. Caller holds t.mu.
func (t *Timer) schedule(g uint64) {
	t.t = time.AfterFunc(t.interval, func() {
		t.loop.Post(func() { t.fire(g) })
	})
}

// fire runs on the loop. It drops stale expiries from generations that have
// been disarmed or rearmed since the expiry was scheduled.
func (t *Timer) fire(g uint64) {
	t.mu.Lock()
	if !t.armed || g != t.gen {
		t.mu.Unlock()
		return
	}
	fn := t.fn
	if t.periodic {
		t.schedule(g)
	} else {
		t.armed = false
	}
	t.mu.Unlock()

	fn()
}

// Disarm cancels the timer. Safe to call repeatedly and on a nil handle.
func (t *Timer) Disarm() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	t.armed = false
	if t.t != nil {
		t.t.Stop()
		t.t = nil
	}
	t.fn = nil
}

// Armed reports whether the timer is currently scheduled.
func (t *Timer) Armed() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}
