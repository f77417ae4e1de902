package platform

// IndicatorOutput is the level-driven two-state status output. Blinking is
// implemented above this interface by toggling.
type IndicatorOutput interface {
	On()
	Off()
}

// ButtonLine is the hardware trigger line. The lifecycle controller keeps
// delivery disabled for the whole provisioning/routing lifetime and clears
// the latch before re-enabling, so a stale edge cannot re-trigger entry.
//
// Implementations without real interrupt hardware (the simulator, tests)
// may treat Enable/Disable as bookkeeping only; the controller additionally
// guards its dispatch entry point with its own accepting-triggers flag.
type ButtonLine interface {
	// Enable arms edge delivery.
	Enable()

	// Disable masks edge delivery.
	Disable()

	// ClearLatch drops a pending, already-latched edge.
	ClearLatch()
}
