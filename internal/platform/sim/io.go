package sim

import (
	"net/netip"
	"sync"

	"github.com/lukasfriedrichsen/naptrouter/internal/platform"
)

// NAT is an in-memory platform.NATEngine keyed the same way real engines
// key rules.
type NAT struct {
	mu    sync.Mutex
	rules map[natKey]platform.PortMapRule
}

type natKey struct {
	proto platform.PortMapProtocol
	port  uint16
}

// NewNAT creates an empty simulated translation engine.
func NewNAT() *NAT {
	return &NAT{rules: make(map[natKey]platform.PortMapRule)}
}

// InstallPortMap adds a rule.
func (n *NAT) InstallPortMap(rule platform.PortMapRule) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rules[natKey{rule.Protocol, rule.ExternalPort}] = rule
	return nil
}

// UpdatePortMapAddress patches the mapping address of an installed rule.
func (n *NAT) UpdatePortMapAddress(proto platform.PortMapProtocol, externalPort uint16, addr netip.Addr) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	k := natKey{proto, externalPort}
	rule, ok := n.rules[k]
	if !ok {
		return nil
	}
	rule.MappingAddress = addr
	n.rules[k] = rule
	return nil
}

// Rules returns a snapshot of the installed rules.
func (n *NAT) Rules() []platform.PortMapRule {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]platform.PortMapRule, 0, len(n.rules))
	for _, r := range n.rules {
		out = append(out, r)
	}
	return out
}

// Indicator is an in-memory platform.IndicatorOutput.
type Indicator struct {
	mu  sync.Mutex
	lit bool
}

// On raises the output.
func (i *Indicator) On() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.lit = true
}

// Off lowers the output.
func (i *Indicator) Off() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.lit = false
}

// Lit reports the output level.
func (i *Indicator) Lit() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lit
}

// Button is an in-memory platform.ButtonLine. Enable/Disable/ClearLatch
// are pure bookkeeping; the dispatch guard lives in the lifecycle
// controller.
type Button struct {
	mu      sync.Mutex
	enabled bool
	latched bool
}

// Enable arms edge delivery.
func (b *Button) Enable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = true
}

// Disable masks edge delivery.
func (b *Button) Disable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = false
}

// ClearLatch drops a pending edge.
func (b *Button) ClearLatch() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latched = false
}

// Press latches an edge. Test and demo hook.
func (b *Button) Press() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latched = true
}

// Enabled reports whether edge delivery is armed.
func (b *Button) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// Latched reports whether an edge is pending.
func (b *Button) Latched() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latched
}
