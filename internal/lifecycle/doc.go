// Package lifecycle sequences the device through its three states: Idle,
// Provisioning and Routing.
//
// The controller is the only place lifecycle decisions are made. Entry
// into Provisioning comes from the trigger line, entry into Routing from
// polling the provisioning session, and exit back to Idle from a failed
// session, a watchdog-detected uplink loss or process shutdown. Teardown
// is a single idempotent path shared by all of those.
//
// Everything runs on one sched.Loop, so dispatches never interleave. The
// accepting flag stands in for the masked trigger interrupt of a hardware
// port; the real line is still mirrored through platform.ButtonLine.
package lifecycle
