package sim

import (
	"sync"
	"time"

	"github.com/lukasfriedrichsen/naptrouter/internal/platform"
	"github.com/lukasfriedrichsen/naptrouter/internal/sched"
)

// Transport is a simulated SmartConfig transport. Once started it walks
// the provisioning phases on a timer, delivering the configured
// credentials in the linking phase.
type Transport struct {
	loop *sched.Loop

	// Credentials are delivered with the linking phase. Set before use.
	Credentials platform.StationCredentials

	// PhaseDelay spaces the simulated phase events.
	PhaseDelay time.Duration

	// Stall, when set, stops the walk after the waiting phase so timeout
	// paths can be exercised.
	Stall bool

	mu      sync.Mutex
	handler platform.SmartConfigHandler
	timer   *sched.Timer
	phase   platform.SmartConfigPhase
}

// NewTransport creates a simulated transport bound to the loop.
func NewTransport(loop *sched.Loop) *Transport {
	return &Transport{
		loop: loop,
		Credentials: platform.StationCredentials{
			SSID:       "sim-uplink",
			Passphrase: "sim-passphrase",
		},
		PhaseDelay: 50 * time.Millisecond,
	}
}

// Start begins the simulated phase walk from the waiting phase.
func (t *Transport) Start(handler platform.SmartConfigHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.handler = handler
	t.phase = platform.PhaseWaiting
	if t.timer == nil {
		t.timer = t.loop.NewTimer()
	}
	if !t.Stall {
		t.timer.Arm(t.PhaseDelay, false, t.advance)
	}
	return nil
}

// Stop cancels the walk. No events are delivered afterwards.
func (t *Transport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer.Disarm()
	t.handler = nil
	return nil
}

// advance emits the next phase. Runs on the loop.
func (t *Transport) advance() {
	t.mu.Lock()
	handler := t.handler
	if handler == nil {
		t.mu.Unlock()
		return
	}

	t.phase++
	status := platform.SmartConfigStatus{Phase: t.phase}
	if t.phase == platform.PhaseLinking {
		creds := t.Credentials
		status.Credentials = &creds
	}
	if t.phase < platform.PhaseLinkEstablished {
		t.timer.Arm(t.PhaseDelay, false, t.advance)
	}
	t.mu.Unlock()

	handler(status)
}
