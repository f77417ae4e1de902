// Package sim provides in-memory implementations of the platform
// interfaces so the controller runs end-to-end without radio hardware.
//
// The simulated stack grants a configured uplink address on connect, the
// transport walks the provisioning phases on a timer, and the NAT engine
// and I/O lines just keep state. Together they document the porting
// surface: a hardware platform replaces this package and nothing else.
package sim

import (
	"net"
	"net/netip"
	"sync"

	"github.com/lukasfriedrichsen/naptrouter/internal/platform"
	"github.com/lukasfriedrichsen/naptrouter/internal/sched"
)

// Stack is an in-memory platform.NetworkStack. Events are posted onto the
// loop, per the platform delivery contract.
type Stack struct {
	loop *sched.Loop

	// UplinkAddress is granted on StationConnect. Set before use.
	UplinkAddress netip.Addr

	// UplinkGateway is reported alongside the granted address.
	UplinkGateway netip.Addr

	mu          sync.Mutex
	mode        platform.OpMode
	handler     platform.StackEventHandler
	creds       platform.StationCredentials
	associated  bool
	apSettings  platform.AccessPointSettings
	ipConfigs   map[platform.Interface]platform.IPConfig
	leaseRange  platform.LeaseRange
	dhcpRunning bool
	dnsServer   netip.Addr
	natAnchor   netip.Addr
	macs        map[platform.Interface]net.HardwareAddr
}

// NewStack creates a simulated stack bound to the loop.
func NewStack(loop *sched.Loop) *Stack {
	return &Stack{
		loop:          loop,
		UplinkAddress: netip.MustParseAddr("10.0.0.42"),
		UplinkGateway: netip.MustParseAddr("10.0.0.1"),
		ipConfigs:     make(map[platform.Interface]platform.IPConfig),
		macs: map[platform.Interface]net.HardwareAddr{
			platform.StationInterface:     {0x5c, 0xcf, 0x7f, 0x00, 0x00, 0x01},
			platform.AccessPointInterface: {0x5e, 0xcf, 0x7f, 0x00, 0x00, 0x01},
		},
	}
}

// SetMode switches the simulated radio role.
func (s *Stack) SetMode(mode platform.OpMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	return nil
}

// Mode returns the current role.
func (s *Stack) Mode() platform.OpMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetEventHandler registers the event sink.
func (s *Stack) SetEventHandler(handler platform.StackEventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// ApplyStationConfig stores uplink credentials.
func (s *Stack) ApplyStationConfig(creds platform.StationCredentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	return nil
}

// StationConnect simulates a successful association: the connected and
// got-IP events are posted in order.
func (s *Stack) StationConnect() error {
	s.mu.Lock()
	s.associated = true
	ssid := s.creds.SSID
	addr := s.UplinkAddress
	gw := s.UplinkGateway
	s.mu.Unlock()

	s.emit(platform.StackEvent{StationConnected: &platform.StationConnectedEvent{
		SSID:    ssid,
		Channel: 6,
	}})
	s.emit(platform.StackEvent{StationGotIP: &platform.StationGotIPEvent{
		Address: addr,
		Netmask: netip.MustParseAddr("255.255.255.0"),
		Gateway: gw,
	}})
	return nil
}

// StationDisconnect drops the association silently, as an intentional
// disconnect does on hardware.
func (s *Stack) StationDisconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.associated = false
	return nil
}

// DropUplink simulates an unexpected uplink loss, posting the disconnect
// event. Test and demo hook.
func (s *Stack) DropUplink(reason string) {
	s.mu.Lock()
	s.associated = false
	ssid := s.creds.SSID
	s.mu.Unlock()

	s.emit(platform.StackEvent{StationDisconnected: &platform.StationDisconnectedEvent{
		SSID:   ssid,
		Reason: reason,
	}})
}

// AssociatePeer simulates a downstream client joining. Test and demo hook.
func (s *Stack) AssociatePeer(mac net.HardwareAddr, aid int) {
	s.emit(platform.StackEvent{PeerAssociated: &platform.PeerEvent{MAC: mac, AID: aid}})
}

// ApplyAccessPointConfig stores the hosted network settings.
func (s *Stack) ApplyAccessPointConfig(settings platform.AccessPointSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apSettings = settings
	return nil
}

// AccessPointSettings returns the applied hosted network settings.
func (s *Stack) AccessPointSettings() platform.AccessPointSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apSettings
}

// SetIPConfig assigns the interface's addressing.
func (s *Stack) SetIPConfig(iface platform.Interface, cfg platform.IPConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ipConfigs[iface] = cfg
	return nil
}

// StopDHCPServer halts simulated lease handling.
func (s *Stack) StopDHCPServer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dhcpRunning = false
	return nil
}

// StartDHCPServer resumes simulated lease handling.
func (s *Stack) StartDHCPServer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dhcpRunning = true
	return nil
}

// DHCPRunning reports whether the simulated lease handler is up.
func (s *Stack) DHCPRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dhcpRunning
}

// SetDHCPLeaseRange stores the assignable window.
func (s *Stack) SetDHCPLeaseRange(r platform.LeaseRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaseRange = r
	return nil
}

// SetDNSServer stores the advertised resolver.
func (s *Stack) SetDNSServer(addr netip.Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dnsServer = addr
	return nil
}

// EnableTranslation anchors simulated translation at addr.
func (s *Stack) EnableTranslation(addr netip.Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.natAnchor = addr
	return nil
}

// SetBroadcastInterfaces accepts any role selection.
func (s *Stack) SetBroadcastInterfaces(platform.OpMode) error {
	return nil
}

// HardwareAddr returns the interface's simulated MAC.
func (s *Stack) HardwareAddr(iface platform.Interface) (net.HardwareAddr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.macs[iface], nil
}

// IPInfo returns the interface's addressing. The station side reports the
// uplink grant once associated.
func (s *Stack) IPInfo(iface platform.Interface) (platform.IPConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if iface == platform.StationInterface && s.associated {
		return platform.IPConfig{
			Address: s.UplinkAddress,
			Netmask: netip.MustParseAddr("255.255.255.0"),
			Gateway: s.UplinkGateway,
		}, nil
	}
	return s.ipConfigs[iface], nil
}

// emit posts ev to the registered handler on the loop.
func (s *Stack) emit(ev platform.StackEvent) {
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()
	if handler == nil {
		return
	}
	s.loop.Post(func() {
		// Re-read so a handler cleared during teardown drops the event.
		s.mu.Lock()
		current := s.handler
		s.mu.Unlock()
		if current != nil {
			current(ev)
		}
	})
}
