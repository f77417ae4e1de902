// Package provisioning runs SmartConfig-style credential provisioning
// sessions.
//
// A session walks the transport's phases from waiting for encoded packets
// through receiving credentials to linking with the uplink network. Each
// phase is guarded by a timeout; a timed-out attempt restarts the transport
// from scratch until the configured attempt limit is reached, at which
// point the session terminates with overall failure.
//
// The controller deliberately does not push outcomes at its owner. The
// lifecycle controller polls IsRunning and WasSuccessful on its own timer
// and draws conclusions there, keeping all lifecycle decisions in one
// place.
package provisioning
