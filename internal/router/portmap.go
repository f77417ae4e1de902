package router

import (
	"net/netip"
	"sync"

	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/config"
	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/logging"
	"github.com/lukasfriedrichsen/naptrouter/internal/platform"
)

// tableEntry is one slot of the port-map table. Only installed entries are
// ever patched.
type tableEntry struct {
	rule      platform.PortMapRule
	installed bool
}

// Table is the fixed-capacity static port-map table. Slots come from
// configuration; the mapping address is never configured and is patched in
// at runtime from the acquired uplink address.
type Table struct {
	nat    platform.NATEngine
	logger *logging.Logger

	mu      sync.Mutex
	entries []tableEntry
}

// NewTable builds a table from the configured slots. Disabled slots and
// slots with a missing required field are dropped here, with a log line
// naming the slot, so Load only ever sees complete rules.
func NewTable(nat platform.NATEngine, slots []config.PortMapSlot, logger *logging.Logger) *Table {
	t := &Table{
		nat:    nat,
		logger: logger.With("component", "portmap"),
	}

	for i, slot := range slots {
		if !slot.Enabled {
			continue
		}
		rule, err := ruleFromSlot(slot)
		if err != nil {
			t.logger.Warn("skipping port-map slot", "slot", i, "error", err)
			continue
		}
		t.entries = append(t.entries, tableEntry{rule: rule})
	}

	return t
}

// ruleFromSlot converts one configured slot, rejecting slots with any
// required field left at its zero value.
func ruleFromSlot(slot config.PortMapSlot) (platform.PortMapRule, error) {
	if slot.Protocol == 0 || slot.ExternalPort == 0 || slot.DestinationPort == 0 || slot.DestinationAddress == "" {
		return platform.PortMapRule{}, ErrSlotIncomplete
	}
	dest, err := netip.ParseAddr(slot.DestinationAddress)
	if err != nil {
		return platform.PortMapRule{}, err
	}

	direction := platform.DirectionInbound
	if slot.Direction == "outbound" {
		direction = platform.DirectionOutbound
	}

	return platform.PortMapRule{
		Protocol:           platform.PortMapProtocol(slot.Protocol),
		ExternalPort:       slot.ExternalPort,
		DestinationAddress: dest,
		DestinationPort:    slot.DestinationPort,
		Direction:          direction,
	}, nil
}

// Load installs every rule into the translation engine. A rule the engine
// rejects is logged and skipped; the remaining rules still go in. Returns
// the number of rules installed.
func (t *Table) Load() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	installed := 0
	for i := range t.entries {
		e := &t.entries[i]
		if e.installed {
			installed++
			continue
		}
		if err := t.nat.InstallPortMap(e.rule); err != nil {
			t.logger.Error("port-map rule install failed",
				"protocol", e.rule.Protocol,
				"external_port", e.rule.ExternalPort,
				"error", err)
			continue
		}
		e.installed = true
		installed++
		t.logger.Info("port-map rule installed",
			"protocol", e.rule.Protocol,
			"external_port", e.rule.ExternalPort,
			"destination", e.rule.DestinationAddress,
			"destination_port", e.rule.DestinationPort,
			"direction", e.rule.Direction)
	}
	return installed
}

// UpdateMappingAddress rewrites the mapping address of every installed
// rule to addr, leaving all other fields untouched. Called once per
// uplink-address acquisition, before translation is reachable.
func (t *Table) UpdateMappingAddress(addr netip.Addr) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		e := &t.entries[i]
		if !e.installed {
			continue
		}
		if err := t.nat.UpdatePortMapAddress(e.rule.Protocol, e.rule.ExternalPort, addr); err != nil {
			t.logger.Error("port-map address patch failed",
				"protocol", e.rule.Protocol,
				"external_port", e.rule.ExternalPort,
				"error", err)
			continue
		}
		e.rule.MappingAddress = addr
	}
}

// Size returns the number of usable (complete, enabled) slots.
func (t *Table) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
