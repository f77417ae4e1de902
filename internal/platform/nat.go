package platform

import "net/netip"

// PortMapProtocol is the IP protocol number of a translation rule.
type PortMapProtocol uint8

// Supported translation protocols.
const (
	ProtocolTCP PortMapProtocol = 6
	ProtocolUDP PortMapProtocol = 17
)

// String returns a human-readable protocol name for logging.
func (p PortMapProtocol) String() string {
	switch p {
	case ProtocolTCP:
		return "tcp"
	case ProtocolUDP:
		return "udp"
	default:
		return "unknown"
	}
}

// PortMapDirection states which side may open a mapped connection.
type PortMapDirection uint8

// Translation directions.
const (
	// DirectionInbound: the external network may open toward the subnet.
	DirectionInbound PortMapDirection = 1

	// DirectionOutbound: the subnet may open toward the external network.
	DirectionOutbound PortMapDirection = 2
)

// String returns a human-readable direction name for logging.
func (d PortMapDirection) String() string {
	switch d {
	case DirectionInbound:
		return "inbound"
	case DirectionOutbound:
		return "outbound"
	default:
		return "unknown"
	}
}

// PortMapRule is one translation entry as handed to the engine. Rules are
// keyed by (Protocol, ExternalPort).
type PortMapRule struct {
	Protocol           PortMapProtocol
	MappingAddress     netip.Addr
	ExternalPort       uint16
	DestinationAddress netip.Addr
	DestinationPort    uint16
	Direction          PortMapDirection
}

// NATEngine abstracts the address/port translation engine. Rule semantics
// (packet rewriting, session tracking) are entirely the engine's concern.
type NATEngine interface {
	// InstallPortMap adds a static translation rule.
	InstallPortMap(rule PortMapRule) error

	// UpdatePortMapAddress rewrites the mapping address of the installed
	// rule keyed by (proto, externalPort), leaving every other field
	// untouched.
	UpdatePortMapAddress(proto PortMapProtocol, externalPort uint16, addr netip.Addr) error
}
