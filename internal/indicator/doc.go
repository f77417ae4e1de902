// Package indicator drives the device status output.
//
// The output is a single two-state line (an LED on real hardware). The
// indicator layers three meanings on top of it: blinking while the device
// is being provisioned, steady while routing is active, off while idle.
// Blinking is implemented with a periodic timer on the control loop, so
// state changes never race the toggle callback.
package indicator
