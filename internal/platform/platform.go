package platform

import (
	"net"
	"net/netip"
)

// OpMode is the radio's operating role.
type OpMode int

// Operating roles, mirroring the single-radio hardware: the station side
// faces the uplink, the access-point side faces the hosted subnet.
const (
	ModeDisabled OpMode = iota
	ModeStation
	ModeAccessPoint
	ModeStationAP
)

// String returns a human-readable role name for logging.
func (m OpMode) String() string {
	switch m {
	case ModeDisabled:
		return "disabled"
	case ModeStation:
		return "station"
	case ModeAccessPoint:
		return "access_point"
	case ModeStationAP:
		return "station_ap"
	default:
		return "unknown"
	}
}

// Interface selects one of the radio's two network interfaces.
type Interface int

// Radio interfaces.
const (
	StationInterface Interface = iota
	AccessPointInterface
)

// StationCredentials are the uplink credentials decoded by the provisioning
// transport.
type StationCredentials struct {
	SSID       string
	Passphrase string

	// BSSID pins the credentials to a specific access point when non-nil.
	BSSID net.HardwareAddr
}

// IPConfig is an interface's address configuration.
type IPConfig struct {
	Address netip.Addr
	Netmask netip.Addr
	Gateway netip.Addr
}

// LeaseRange is the DHCP server's assignable address window.
type LeaseRange struct {
	Start netip.Addr
	End   netip.Addr
}

// AccessPointSettings is the hosted network's configuration as applied to
// the stack. SSID is the final derived value, not the configured prefix.
type AccessPointSettings struct {
	SSID       string
	Password   string
	Open       bool
	Hidden     bool
	MaxClients int
}

// StackEvent is a tagged-variant network stack notification. Exactly one
// field is non-nil. Implementations must deliver events serialized with the
// rest of the control plane (in this codebase: posted onto the owning
// sched.Loop).
type StackEvent struct {
	StationConnected    *StationConnectedEvent
	StationDisconnected *StationDisconnectedEvent
	StationGotIP        *StationGotIPEvent
	PeerAssociated      *PeerEvent
	PeerDisassociated   *PeerEvent
}

// StationConnectedEvent reports association with the uplink access point.
type StationConnectedEvent struct {
	SSID    string
	Channel int
}

// StationDisconnectedEvent reports loss of the uplink association.
type StationDisconnectedEvent struct {
	SSID   string
	Reason string
}

// StationGotIPEvent reports address acquisition on the uplink interface.
type StationGotIPEvent struct {
	Address netip.Addr
	Netmask netip.Addr
	Gateway netip.Addr
}

// PeerEvent reports a downstream client joining or leaving the hosted
// access point.
type PeerEvent struct {
	MAC net.HardwareAddr
	AID int
}

// StackEventHandler receives stack events. A nil handler clears delivery.
type StackEventHandler func(StackEvent)

// NetworkStack abstracts the radio/IP stack the controller drives. All
// methods are synchronous configuration calls; asynchronous outcomes arrive
// through the registered event handler.
type NetworkStack interface {
	// SetMode switches the radio's operating role.
	SetMode(mode OpMode) error

	// Mode returns the current operating role.
	Mode() OpMode

	// SetEventHandler registers the event sink. Passing nil clears it;
	// events raised afterwards are dropped.
	SetEventHandler(handler StackEventHandler)

	// ApplyStationConfig stores uplink credentials for the next connect.
	ApplyStationConfig(creds StationCredentials) error

	// StationConnect starts an asynchronous association with the uplink.
	StationConnect() error

	// StationDisconnect drops any uplink association. No-op when idle.
	StationDisconnect() error

	// ApplyAccessPointConfig configures the hosted network.
	ApplyAccessPointConfig(settings AccessPointSettings) error

	// SetIPConfig assigns the given interface's address configuration.
	SetIPConfig(iface Interface, cfg IPConfig) error

	// StopDHCPServer halts lease handling on the access-point side.
	StopDHCPServer() error

	// StartDHCPServer resumes lease handling on the access-point side.
	StartDHCPServer() error

	// SetDHCPLeaseRange installs the assignable address window. The DHCP
	// server must be stopped while this is called.
	SetDHCPLeaseRange(r LeaseRange) error

	// SetDNSServer sets the resolver advertised to subnet clients.
	SetDNSServer(addr netip.Addr) error

	// EnableTranslation turns on address/port translation for the subnet
	// anchored at addr.
	EnableTranslation(addr netip.Addr) error

	// SetBroadcastInterfaces selects which roles deliver broadcast frames.
	SetBroadcastInterfaces(mode OpMode) error

	// HardwareAddr returns the interface's MAC address.
	HardwareAddr(iface Interface) (net.HardwareAddr, error)

	// IPInfo returns the interface's current address configuration.
	IPInfo(iface Interface) (IPConfig, error)
}
