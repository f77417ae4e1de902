package platform

// SmartConfigPhase is a provisioning transport status, one per phase of the
// out-of-band credential delivery protocol.
type SmartConfigPhase int

// Transport phases, in protocol order.
const (
	// PhaseWaiting: transport started, no intermediary device seen yet.
	PhaseWaiting SmartConfigPhase = iota

	// PhaseFindingChannel: scanning for the intermediary's channel.
	PhaseFindingChannel

	// PhaseReceivingCredentials: decoding the encoded credential stream.
	PhaseReceivingCredentials

	// PhaseLinking: credentials decoded; the event carries them.
	PhaseLinking

	// PhaseLinkEstablished: the uplink confirmed the connection.
	PhaseLinkEstablished
)

// String returns a human-readable phase name for logging.
func (p SmartConfigPhase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseFindingChannel:
		return "finding_channel"
	case PhaseReceivingCredentials:
		return "receiving_credentials"
	case PhaseLinking:
		return "linking"
	case PhaseLinkEstablished:
		return "link_established"
	default:
		return "unknown"
	}
}

// SmartConfigStatus is one transport status event. Credentials is non-nil
// only for PhaseLinking.
type SmartConfigStatus struct {
	Phase       SmartConfigPhase
	Credentials *StationCredentials
}

// SmartConfigHandler receives transport status events, serialized with the
// rest of the control plane.
type SmartConfigHandler func(SmartConfigStatus)

// SmartConfigTransport abstracts the out-of-band provisioning protocol.
// The wire decoding itself is outside this system; the transport only
// reports phase changes and the decoded credentials.
type SmartConfigTransport interface {
	// Start begins listening for an intermediary device and delivers
	// status events to handler until Stop is called or the protocol
	// completes.
	Start(handler SmartConfigHandler) error

	// Stop cancels the session. Idempotent; no events are delivered after
	// Stop returns.
	Stop() error
}
