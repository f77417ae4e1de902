package router

import (
	"fmt"
	"net/netip"
	"sync"

	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/config"
	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/logging"
	"github.com/lukasfriedrichsen/naptrouter/internal/platform"
)

// defaultDNSServer is advertised to subnet clients when no override is
// configured.
var defaultDNSServer = netip.AddrFrom4([4]byte{8, 8, 8, 8})

// Controller turns the device into a NAT router once the uplink address is
// acquired. It owns the port-map table and reacts to network stack events;
// all the heavy lifting happens in the got-IP handler.
//
// The controller reports health through Connected only. A configuration
// step that fails leaves Connected false and the chain aborted; recovery is
// the lifecycle watchdog's call, not ours.
type Controller struct {
	stack  platform.NetworkStack
	table  *Table
	cfg    *config.Config
	logger *logging.Logger

	// OnConnected, when non-nil, is invoked after the router side is fully
	// configured. Set before Init.
	OnConnected func()

	// OnDisconnected, when non-nil, is invoked when the uplink drops. Set
	// before Init.
	OnDisconnected func()

	mu        sync.Mutex
	connected bool
}

// New creates a router controller over the given stack and translation
// engine.
func New(stack platform.NetworkStack, nat platform.NATEngine, cfg *config.Config, logger *logging.Logger) *Controller {
	return &Controller{
		stack:  stack,
		table:  NewTable(nat, cfg.PortMap, logger),
		cfg:    cfg,
		logger: logger.With("component", "router"),
	}
}

// Init loads the port-map table into the translation engine and registers
// the stack event handler. Called when the lifecycle leaves Idle.
func (c *Controller) Init() {
	installed := c.table.Load()
	c.logger.Info("port-map table loaded", "installed", installed, "configured", c.table.Size())
	c.stack.SetEventHandler(c.handleEvent)
}

// Connected reports whether the router side is fully configured and the
// uplink association is alive.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Table exposes the port-map table, mainly for status reporting.
func (c *Controller) Table() *Table {
	return c.table
}

// handleEvent runs on the loop for every stack event.
func (c *Controller) handleEvent(ev platform.StackEvent) {
	switch {
	case ev.StationGotIP != nil:
		c.onStationGotIP(ev.StationGotIP)

	case ev.StationDisconnected != nil:
		c.logger.Warn("uplink disconnected",
			"ssid", ev.StationDisconnected.SSID,
			"reason", ev.StationDisconnected.Reason)
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		if c.OnDisconnected != nil {
			c.OnDisconnected()
		}

	case ev.StationConnected != nil:
		c.logger.Info("uplink associated",
			"ssid", ev.StationConnected.SSID,
			"channel", ev.StationConnected.Channel)

	case ev.PeerAssociated != nil:
		c.logger.Info("client joined", "mac", ev.PeerAssociated.MAC.String(), "aid", ev.PeerAssociated.AID)

	case ev.PeerDisassociated != nil:
		c.logger.Info("client left", "mac", ev.PeerDisassociated.MAC.String(), "aid", ev.PeerDisassociated.AID)
	}
}

// onStationGotIP configures the router side. The order matters: the
// port-map addresses are patched before translation can carry a packet,
// and the DHCP server is stopped across the subnet reconfiguration. Any
// failed step aborts the chain with connected left false.
func (c *Controller) onStationGotIP(ev *platform.StationGotIPEvent) {
	c.logger.Info("uplink address acquired",
		"address", ev.Address,
		"gateway", ev.Gateway)

	c.table.UpdateMappingAddress(ev.Address)

	if err := c.configureRouter(); err != nil {
		c.logger.Error("router configuration failed", "error", err)
		return
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	c.logger.Info("routing active")

	if c.OnConnected != nil {
		c.OnConnected()
	}
}

// configureRouter applies operating mode, access point, subnet and DNS.
func (c *Controller) configureRouter() error {
	if err := c.stack.SetMode(platform.ModeStationAP); err != nil {
		return fmt.Errorf("setting station+ap mode: %w", err)
	}
	if err := c.configureAccessPoint(); err != nil {
		return fmt.Errorf("configuring access point: %w", err)
	}
	if err := c.configureSubnet(); err != nil {
		return fmt.Errorf("configuring subnet: %w", err)
	}
	if err := c.configureDNS(); err != nil {
		return fmt.Errorf("configuring dns: %w", err)
	}
	return nil
}

// configureAccessPoint derives the SSID from the device's own hardware
// address and applies the hosted network settings.
func (c *Controller) configureAccessPoint() error {
	mac, err := c.stack.HardwareAddr(platform.AccessPointInterface)
	if err != nil {
		return fmt.Errorf("reading ap hardware address: %w", err)
	}

	ssid := c.cfg.AccessPoint.SSIDPrefix
	if n := len(mac); n >= 3 {
		ssid = fmt.Sprintf("%s_%02X%02X%02X", ssid, mac[n-3], mac[n-2], mac[n-1])
	}

	settings := platform.AccessPointSettings{
		SSID:       ssid,
		Password:   c.cfg.AccessPoint.Password,
		Open:       c.cfg.AccessPoint.Open,
		Hidden:     c.cfg.AccessPoint.Hidden,
		MaxClients: c.cfg.AccessPoint.MaxClients,
	}
	if err := c.stack.ApplyAccessPointConfig(settings); err != nil {
		return err
	}

	c.logger.Info("access point configured", "ssid", ssid, "open", settings.Open, "max_clients", settings.MaxClients)
	return nil
}

// configureSubnet reassigns the access-point side network. The DHCP server
// must be down while the address and lease range change.
func (c *Controller) configureSubnet() error {
	addr, err := netip.ParseAddr(c.cfg.Subnet.Address)
	if err != nil {
		return fmt.Errorf("parsing subnet address: %w", err)
	}
	mask, err := netip.ParseAddr(c.cfg.Subnet.Netmask)
	if err != nil {
		return fmt.Errorf("parsing subnet netmask: %w", err)
	}
	gw, err := netip.ParseAddr(c.cfg.Subnet.Gateway)
	if err != nil {
		return fmt.Errorf("parsing subnet gateway: %w", err)
	}
	rangeStart, err := netip.ParseAddr(c.cfg.DHCP.RangeStart)
	if err != nil {
		return fmt.Errorf("parsing dhcp range start: %w", err)
	}
	rangeEnd, err := netip.ParseAddr(c.cfg.DHCP.RangeEnd)
	if err != nil {
		return fmt.Errorf("parsing dhcp range end: %w", err)
	}
	for _, a := range []netip.Addr{addr, mask, gw, rangeStart, rangeEnd} {
		if !a.Is4() {
			return fmt.Errorf("subnet configuration requires IPv4, got %s", a)
		}
	}

	// The router is always host 1 of its own subnet, whatever the
	// configured address says.
	routerAddr := forceHostOne(addr, mask)

	if err := c.stack.StopDHCPServer(); err != nil {
		return fmt.Errorf("stopping dhcp server: %w", err)
	}
	if err := c.stack.SetIPConfig(platform.AccessPointInterface, platform.IPConfig{
		Address: routerAddr,
		Netmask: mask,
		Gateway: gw,
	}); err != nil {
		return fmt.Errorf("setting subnet ip config: %w", err)
	}
	if err := c.stack.SetDHCPLeaseRange(platform.LeaseRange{Start: rangeStart, End: rangeEnd}); err != nil {
		return fmt.Errorf("setting dhcp lease range: %w", err)
	}
	if err := c.stack.StartDHCPServer(); err != nil {
		return fmt.Errorf("starting dhcp server: %w", err)
	}
	if err := c.stack.EnableTranslation(routerAddr); err != nil {
		return fmt.Errorf("enabling translation: %w", err)
	}
	if err := c.stack.SetBroadcastInterfaces(platform.ModeStationAP); err != nil {
		return fmt.Errorf("setting broadcast interfaces: %w", err)
	}

	c.logger.Info("subnet configured",
		"address", routerAddr,
		"netmask", mask,
		"lease_start", rangeStart,
		"lease_end", rangeEnd)
	return nil
}

// configureDNS advertises the configured resolver, falling back to the
// default public one.
func (c *Controller) configureDNS() error {
	server := defaultDNSServer
	if c.cfg.DNS.Server != "" {
		parsed, err := netip.ParseAddr(c.cfg.DNS.Server)
		if err != nil {
			return fmt.Errorf("parsing dns server: %w", err)
		}
		server = parsed
	}
	if err := c.stack.SetDNSServer(server); err != nil {
		return err
	}
	c.logger.Info("dns server set", "server", server)
	return nil
}

// forceHostOne returns addr with its host part replaced by 1 under mask.
func forceHostOne(addr, mask netip.Addr) netip.Addr {
	a := addr.As4()
	m := mask.As4()
	var out [4]byte
	for i := range a {
		out[i] = a[i] & m[i]
	}
	out[3] |= 1
	return netip.AddrFrom4(out)
}
