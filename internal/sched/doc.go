// Package sched provides the cooperative execution model the lifecycle
// controller is built on: a single-goroutine Loop that serializes every
// callback, and Timer handles whose expiries are delivered onto that loop.
//
// The model mirrors a bare-metal run-to-completion scheduler. No callback
// preempts another, so a state machine driven exclusively from the loop
// needs no locking for its own state, and disarming a timer from a loop
// callback guarantees the timer's callback will never run afterwards.
//
// # Usage
//
//	loop := sched.NewLoop()
//	go loop.Run(ctx)
//
//	watchdog := loop.NewTimer()
//	watchdog.Arm(5*time.Minute, true, func() { checkConnectivity() })
//	...
//	watchdog.Disarm()
//
// A nil *Timer behaves as "not running" for all operations, so components
// can keep unallocated handles in their zero state.
package sched
