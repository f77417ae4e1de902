package router

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"testing"

	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/config"
	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/logging"
	"github.com/lukasfriedrichsen/naptrouter/internal/platform"
)

// fakeNAT records installed rules and address patches.
type fakeNAT struct {
	mu         sync.Mutex
	rules      map[string]platform.PortMapRule
	installErr map[uint16]error
	patches    int
}

func newFakeNAT() *fakeNAT {
	return &fakeNAT{
		rules:      make(map[string]platform.PortMapRule),
		installErr: make(map[uint16]error),
	}
}

func key(proto platform.PortMapProtocol, port uint16) string {
	return fmt.Sprintf("%s:%d", proto, port)
}

func (f *fakeNAT) InstallPortMap(rule platform.PortMapRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.installErr[rule.ExternalPort]; err != nil {
		return err
	}
	f.rules[key(rule.Protocol, rule.ExternalPort)] = rule
	return nil
}

func (f *fakeNAT) UpdatePortMapAddress(proto platform.PortMapProtocol, externalPort uint16, addr netip.Addr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(proto, externalPort)
	rule, ok := f.rules[k]
	if !ok {
		return errors.New("no such rule")
	}
	rule.MappingAddress = addr
	f.rules[k] = rule
	f.patches++
	return nil
}

func (f *fakeNAT) rule(proto platform.PortMapProtocol, port uint16) (platform.PortMapRule, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[key(proto, port)]
	return r, ok
}

func slot(proto uint8, ext uint16, dest string, destPort uint16) config.PortMapSlot {
	return config.PortMapSlot{
		Enabled:            true,
		Protocol:           proto,
		ExternalPort:       ext,
		DestinationAddress: dest,
		DestinationPort:    destPort,
		Direction:          "inbound",
	}
}

func TestTableSkipsIncompleteSlots(t *testing.T) {
	nat := newFakeNAT()
	slots := []config.PortMapSlot{
		slot(6, 8080, "192.168.13.10", 80),
		{Enabled: true, Protocol: 6},                   // no ports, no destination
		{Enabled: false, Protocol: 17, ExternalPort: 1, DestinationAddress: "192.168.13.11", DestinationPort: 1},
		{},                                             // zero slot
		slot(17, 5000, "192.168.13.12", 5000),
	}

	table := NewTable(nat, slots, logging.Default())
	if got := table.Size(); got != 2 {
		t.Fatalf("expected 2 usable slots, got %d", got)
	}
	if got := table.Load(); got != 2 {
		t.Fatalf("expected 2 installed rules, got %d", got)
	}
}

func TestTableLoadContinuesPastFailure(t *testing.T) {
	nat := newFakeNAT()
	nat.installErr[8080] = errors.New("engine rejected rule")
	slots := []config.PortMapSlot{
		slot(6, 8080, "192.168.13.10", 80),
		slot(6, 2222, "192.168.13.11", 22),
		slot(17, 5000, "192.168.13.12", 5000),
	}

	table := NewTable(nat, slots, logging.Default())
	if got := table.Load(); got != 2 {
		t.Fatalf("expected load to continue past the failed rule, installed %d", got)
	}
	if _, ok := nat.rule(platform.ProtocolTCP, 2222); !ok {
		t.Fatal("expected rule after the failed one to be installed")
	}
}

func TestSingleSlotInstall(t *testing.T) {
	nat := newFakeNAT()
	slots := []config.PortMapSlot{
		slot(6, 8080, "192.168.13.10", 80),
	}

	table := NewTable(nat, slots, logging.Default())
	if got := table.Load(); got != 1 {
		t.Fatalf("expected exactly 1 rule installed, got %d", got)
	}
}

func TestUpdateMappingAddressPatchesOnlyAddress(t *testing.T) {
	nat := newFakeNAT()
	slots := []config.PortMapSlot{
		slot(6, 8080, "192.168.13.10", 80),
		slot(17, 5000, "192.168.13.12", 5000),
	}

	table := NewTable(nat, slots, logging.Default())
	table.Load()

	uplink := netip.MustParseAddr("10.0.0.42")
	table.UpdateMappingAddress(uplink)

	if nat.patches != 2 {
		t.Fatalf("expected 2 address patches, got %d", nat.patches)
	}
	rule, ok := nat.rule(platform.ProtocolTCP, 8080)
	if !ok {
		t.Fatal("rule missing")
	}
	if rule.MappingAddress != uplink {
		t.Fatalf("expected mapping address %v, got %v", uplink, rule.MappingAddress)
	}
	// Everything but the mapping address stays put.
	if rule.DestinationAddress != netip.MustParseAddr("192.168.13.10") || rule.DestinationPort != 80 || rule.ExternalPort != 8080 {
		t.Fatalf("patch touched non-address fields: %+v", rule)
	}
}

func TestUpdateMappingAddressSkipsUninstalledRules(t *testing.T) {
	nat := newFakeNAT()
	nat.installErr[8080] = errors.New("engine rejected rule")
	slots := []config.PortMapSlot{
		slot(6, 8080, "192.168.13.10", 80),
		slot(17, 5000, "192.168.13.12", 5000),
	}

	table := NewTable(nat, slots, logging.Default())
	table.Load()
	table.UpdateMappingAddress(netip.MustParseAddr("10.0.0.42"))

	if nat.patches != 1 {
		t.Fatalf("expected only the installed rule to be patched, got %d patches", nat.patches)
	}
}
