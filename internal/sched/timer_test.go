package sched

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerFiresOnce(t *testing.T) {
	loop := startLoop(t)
	tm := loop.NewTimer()

	fired := make(chan struct{}, 1)
	tm.Arm(10*time.Millisecond, false, func() { fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("single-shot timer never fired")
	}

	select {
	case <-fired:
		t.Fatal("single-shot timer fired twice")
	case <-time.After(50 * time.Millisecond):
	}

	if tm.Armed() {
		t.Error("single-shot timer still armed after firing")
	}
}

func TestTimerPeriodic(t *testing.T) {
	loop := startLoop(t)
	tm := loop.NewTimer()

	var count atomic.Int32
	tm.Arm(5*time.Millisecond, true, func() { count.Add(1) })

	deadline := time.Now().Add(2 * time.Second)
	for count.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("periodic timer fired %d times, want >= 3", count.Load())
		}
		time.Sleep(time.Millisecond)
	}

	tm.Disarm()
	if tm.Armed() {
		t.Error("timer reports armed after Disarm")
	}
}

// A disarmed timer's callback must never execute afterwards, even if the
// expiry was already in flight when Disarm was called.
func TestTimerDisarmIsObservable(t *testing.T) {
	loop := startLoop(t)
	tm := loop.NewTimer()

	var fired atomic.Bool
	tm.Arm(5*time.Millisecond, false, func() { fired.Store(true) })

	// Disarm from the loop itself so it is serialized with the expiry.
	loop.Call(func() { tm.Disarm() })

	time.Sleep(50 * time.Millisecond)
	if fired.Load() {
		t.Fatal("callback ran after Disarm")
	}
}

func TestTimerRearmReplacesSchedule(t *testing.T) {
	loop := startLoop(t)
	tm := loop.NewTimer()

	var old, renewed atomic.Bool
	tm.Arm(5*time.Millisecond, false, func() { old.Store(true) })
	tm.Arm(10*time.Millisecond, false, func() { renewed.Store(true) })

	time.Sleep(100 * time.Millisecond)
	if old.Load() {
		t.Error("replaced callback still ran")
	}
	if !renewed.Load() {
		t.Error("replacement callback never ran")
	}
}

func TestTimerNilHandleNoOps(t *testing.T) {
	var tm *Timer

	// All operations must tolerate the absent handle.
	tm.Arm(time.Millisecond, false, func() {})
	tm.Disarm()
	if tm.Armed() {
		t.Error("nil timer reports armed")
	}
}

func TestTimerDisarmTwice(t *testing.T) {
	loop := startLoop(t)
	tm := loop.NewTimer()

	tm.Arm(time.Hour, false, func() {})
	tm.Disarm()
	tm.Disarm()

	if tm.Armed() {
		t.Error("timer armed after double Disarm")
	}
}
