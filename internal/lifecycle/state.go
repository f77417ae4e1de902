package lifecycle

// State is the controller's lifecycle state.
type State int

// Lifecycle states. The device is exactly one of these at any time.
const (
	// StateIdle: not routing, button armed, nothing else running.
	StateIdle State = iota

	// StateProvisioning: credential provisioning in progress.
	StateProvisioning

	// StateRouting: uplink established, router side configured.
	StateRouting
)

// String returns a human-readable state name for logging and reporting.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProvisioning:
		return "provisioning"
	case StateRouting:
		return "routing"
	default:
		return "unknown"
	}
}

// Trigger is a lifecycle dispatch cause.
type Trigger int

// Dispatch triggers.
const (
	// TriggerButton: the physical (or simulated) trigger line fired.
	TriggerButton Trigger = iota

	// TriggerPoll: the provisioning poll timer expired.
	TriggerPoll

	// TriggerWatchdog: the connection watchdog timer expired.
	TriggerWatchdog
)

// String returns a human-readable trigger name for logging and reporting.
func (t Trigger) String() string {
	switch t {
	case TriggerButton:
		return "button"
	case TriggerPoll:
		return "poll"
	case TriggerWatchdog:
		return "watchdog"
	default:
		return "unknown"
	}
}
