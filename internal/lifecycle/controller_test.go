package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lukasfriedrichsen/naptrouter/internal/indicator"
	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/config"
	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/logging"
	"github.com/lukasfriedrichsen/naptrouter/internal/platform"
	"github.com/lukasfriedrichsen/naptrouter/internal/platform/sim"
	"github.com/lukasfriedrichsen/naptrouter/internal/provisioning"
	"github.com/lukasfriedrichsen/naptrouter/internal/router"
	"github.com/lukasfriedrichsen/naptrouter/internal/sched"
)

// fakeReporter counts reported facts.
type fakeReporter struct {
	mu          sync.Mutex
	transitions []string
	checks      int
	attempts    []int
}

func (f *fakeReporter) ReportTransition(from, to, trigger string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, from+">"+to)
}

func (f *fakeReporter) ReportWatchdogCheck(bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
}

func (f *fakeReporter) ReportProvisioningAttempt(attempt, _ int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, attempt)
}

func (f *fakeReporter) countTransition(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.transitions {
		if t == key {
			n++
		}
	}
	return n
}

// fakeResponder tracks start/stop calls.
type fakeResponder struct {
	mu      sync.Mutex
	running bool
	starts  int
}

func (f *fakeResponder) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	f.starts++
	return nil
}

func (f *fakeResponder) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
}

func (f *fakeResponder) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// harness wires the controller to the simulated platform with short
// intervals.
type harness struct {
	loop      *sched.Loop
	cfg       *config.Config
	stack     *sim.Stack
	transport *sim.Transport
	nat       *sim.NAT
	out       *sim.Indicator
	button    *sim.Button
	reporter  *fakeReporter
	responder *fakeResponder
	ctrl      *Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	loop := sched.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-loop.Done()
	})

	cfg := config.Default()
	cfg.Provisioning.AttemptLimit = 2
	cfg.Provisioning.ConfigTimeout = 60 * time.Millisecond
	cfg.Provisioning.ReceiveTimeout = 60 * time.Millisecond
	cfg.Provisioning.LinkTimeout = 60 * time.Millisecond
	cfg.Provisioning.PollInterval = 5 * time.Millisecond
	cfg.Watchdog.Interval = 10 * time.Millisecond
	cfg.Indicator.BlinkInterval = 5 * time.Millisecond

	logger := logging.Default()
	h := &harness{
		loop:      loop,
		cfg:       cfg,
		stack:     sim.NewStack(loop),
		transport: sim.NewTransport(loop),
		nat:       sim.NewNAT(),
		out:       &sim.Indicator{},
		button:    &sim.Button{},
		reporter:  &fakeReporter{},
		responder: &fakeResponder{},
	}
	h.transport.PhaseDelay = 5 * time.Millisecond

	prov := provisioning.New(loop, h.transport, h.stack, cfg.Provisioning, logger)
	rtr := router.New(h.stack, h.nat, cfg, logger)
	ind := indicator.New(loop, h.out, cfg.Indicator.BlinkInterval, logger)

	h.ctrl = New(Deps{
		Loop:         loop,
		Config:       cfg,
		Stack:        h.stack,
		Button:       h.button,
		Indicator:    ind,
		Provisioning: prov,
		Router:       rtr,
		Responder:    h.responder,
		Reporter:     h.reporter,
		Logger:       logger,
	})
	return h
}

func (h *harness) waitState(t *testing.T, want State) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if h.ctrl.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %v, stuck in %v", want, h.ctrl.State())
}

func TestFullLifecycleSuccess(t *testing.T) {
	h := newHarness(t)

	if h.ctrl.State() != StateIdle || !h.ctrl.Accepting() {
		t.Fatal("expected idle and accepting at start")
	}
	if !h.button.Enabled() {
		t.Fatal("expected button line enabled at start")
	}

	h.ctrl.ButtonPressed()
	h.waitState(t, StateProvisioning)

	if h.ctrl.Accepting() {
		t.Fatal("expected trigger guard dropped while provisioning")
	}
	if h.button.Enabled() {
		t.Fatal("expected button line disabled while provisioning")
	}

	h.waitState(t, StateRouting)

	if h.stack.Mode() != platform.ModeStationAP {
		t.Fatalf("expected station+ap mode, got %v", h.stack.Mode())
	}
	if !h.stack.DHCPRunning() {
		t.Fatal("expected dhcp server running")
	}
	if !h.responder.Running() {
		t.Fatal("expected discovery responder started")
	}
	if !h.out.Lit() {
		t.Fatal("expected steady indicator while routing")
	}
	if got := h.reporter.countTransition("provisioning>routing"); got != 1 {
		t.Fatalf("expected one provisioning>routing transition, got %d", got)
	}
}

func TestRepeatedTriggersDoNotReenter(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 5; i++ {
		h.ctrl.ButtonPressed()
	}
	h.waitState(t, StateRouting)

	h.ctrl.ButtonPressed()
	h.ctrl.ButtonPressed()
	time.Sleep(30 * time.Millisecond)

	if got := h.reporter.countTransition("idle>provisioning"); got != 1 {
		t.Fatalf("expected exactly one entry into provisioning, got %d", got)
	}
	if h.ctrl.State() != StateRouting {
		t.Fatalf("expected to stay in routing, got %v", h.ctrl.State())
	}
}

func TestWatchdogTearsDownOnUplinkLoss(t *testing.T) {
	h := newHarness(t)

	h.ctrl.ButtonPressed()
	h.waitState(t, StateRouting)

	h.stack.DropUplink("beacon timeout")
	h.waitState(t, StateIdle)

	if !h.ctrl.Accepting() {
		t.Fatal("expected trigger guard re-armed after teardown")
	}
	if !h.button.Enabled() {
		t.Fatal("expected button line re-enabled after teardown")
	}
	if h.out.Lit() {
		t.Fatal("expected indicator off after teardown")
	}
	if h.responder.Running() {
		t.Fatal("expected discovery responder stopped")
	}
	if h.stack.Mode() != platform.ModeDisabled {
		t.Fatalf("expected radio disabled, got %v", h.stack.Mode())
	}
}

func TestProvisioningExhaustionReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	h.transport.Stall = true

	h.ctrl.ButtonPressed()
	h.waitState(t, StateProvisioning)
	h.waitState(t, StateIdle)

	if !h.ctrl.Accepting() {
		t.Fatal("expected trigger guard re-armed after failure")
	}
	h.reporter.mu.Lock()
	attempts := append([]int(nil), h.reporter.attempts...)
	h.reporter.mu.Unlock()
	if len(attempts) != h.cfg.Provisioning.AttemptLimit {
		t.Fatalf("expected %d attempts, got %v", h.cfg.Provisioning.AttemptLimit, attempts)
	}

	// The device must be re-triggerable after a failed session.
	h.transport.Stall = false
	h.ctrl.ButtonPressed()
	h.waitState(t, StateRouting)
}

func TestDoubleTeardownIsEquivalentToOne(t *testing.T) {
	h := newHarness(t)

	h.ctrl.ButtonPressed()
	h.waitState(t, StateRouting)

	h.ctrl.Shutdown()
	h.ctrl.Shutdown()

	if h.ctrl.State() != StateIdle || !h.ctrl.Accepting() {
		t.Fatal("expected idle and accepting after shutdown")
	}
}

func TestLatchedEdgeClearedOnTeardown(t *testing.T) {
	h := newHarness(t)

	h.ctrl.ButtonPressed()
	h.waitState(t, StateRouting)

	// An edge latched during the lifecycle must not survive teardown.
	h.button.Press()
	h.ctrl.Shutdown()

	if h.button.Latched() {
		t.Fatal("expected latched edge cleared by teardown")
	}
}
