package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/lukasfriedrichsen/naptrouter/internal/audit"
	"github.com/lukasfriedrichsen/naptrouter/internal/indicator"
	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/config"
	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/logging"
	"github.com/lukasfriedrichsen/naptrouter/internal/platform"
	"github.com/lukasfriedrichsen/naptrouter/internal/provisioning"
	"github.com/lukasfriedrichsen/naptrouter/internal/router"
	"github.com/lukasfriedrichsen/naptrouter/internal/sched"
)

// recordTimeout bounds journal writes so a stuck database cannot stall the
// control loop.
const recordTimeout = 2 * time.Second

// Recorder persists lifecycle events. Satisfied by *audit.SQLiteRepository.
type Recorder interface {
	Record(ctx context.Context, event *audit.Event) error
}

// Reporter announces lifecycle facts to external observers. Satisfied by
// *status.Reporter.
type Reporter interface {
	ReportTransition(from, to, trigger string)
	ReportWatchdogCheck(connected bool)
	ReportProvisioningAttempt(attempt, limit int)
}

// Responder is the discovery surface the lifecycle starts and stops.
// Satisfied by *discovery.Responder.
type Responder interface {
	Start() error
	Stop()
}

// Deps carries the lifecycle controller's collaborators. Recorder,
// Reporter and Responder are optional; nil disables that concern.
type Deps struct {
	Loop         *sched.Loop
	Config       *config.Config
	Stack        platform.NetworkStack
	Button       platform.ButtonLine
	Indicator    *indicator.Indicator
	Provisioning *provisioning.Controller
	Router       *router.Controller
	Responder    Responder
	Recorder     Recorder
	Reporter     Reporter
	Logger       *logging.Logger
}

// Controller sequences the device through Idle, Provisioning and Routing.
//
// Every decision runs on the owning loop: the button trigger is posted,
// the poll and watchdog timers fire there, and the collaborators deliver
// their events there. The accepting flag is the software rendition of a
// masked trigger interrupt; the hardware line is mirrored through
// platform.ButtonLine for ports that have one.
type Controller struct {
	deps   Deps
	logger *logging.Logger

	mu        sync.Mutex
	state     State
	accepting bool

	pollTimer     *sched.Timer
	watchdogTimer *sched.Timer
}

// New creates the lifecycle controller and hooks the provisioning
// notifications. The controller starts in Idle with the trigger armed.
func New(deps Deps) *Controller {
	c := &Controller{
		deps:      deps,
		logger:    deps.Logger.With("component", "lifecycle"),
		state:     StateIdle,
		accepting: true,
	}

	// Re-asserting the blink on every attempt makes the indicator,
	// like every other entry action, idempotent.
	deps.Provisioning.OnStarted = deps.Indicator.StartBlink
	deps.Provisioning.OnAttempt = func(attempt int) {
		c.record("provisioning_attempt", "", "", map[string]any{
			"attempt": attempt,
			"limit":   deps.Config.Provisioning.AttemptLimit,
		})
		if deps.Reporter != nil {
			deps.Reporter.ReportProvisioningAttempt(attempt, deps.Config.Provisioning.AttemptLimit)
		}
	}

	deps.Button.Enable()
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Accepting reports whether a button trigger would currently be acted on.
func (c *Controller) Accepting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accepting
}

// ButtonPressed delivers a trigger edge. Safe to call from any goroutine;
// the dispatch itself runs on the loop.
func (c *Controller) ButtonPressed() {
	c.deps.Loop.Post(func() { c.dispatch(TriggerButton) })
}

// Startup applies the configured startup mode. In auto mode the button
// trigger is fired once as if pressed at boot.
func (c *Controller) Startup() {
	if c.deps.Config.Startup.Mode == "auto" {
		c.logger.Info("auto startup, firing trigger")
		c.ButtonPressed()
		return
	}
	c.logger.Info("waiting for trigger")
}

// Shutdown tears the device down to Idle. Called on process exit; runs the
// teardown on the loop and waits for it.
func (c *Controller) Shutdown() {
	c.deps.Loop.Call(func() { c.teardown("shutdown") })
}

// dispatch is the single lifecycle entry point. Runs on the loop.
func (c *Controller) dispatch(trigger Trigger) {
	switch trigger {
	case TriggerButton:
		c.onButton()
	case TriggerPoll:
		c.onPoll()
	case TriggerWatchdog:
		c.onWatchdog()
	}
}

// onButton enters Provisioning from Idle. Triggers while not accepting are
// dropped, which covers both re-entry during an active lifecycle and
// bounce on the line.
func (c *Controller) onButton() {
	c.mu.Lock()
	if !c.accepting || c.state != StateIdle {
		c.mu.Unlock()
		c.logger.Debug("trigger ignored", "state", c.State().String())
		return
	}
	c.accepting = false
	c.mu.Unlock()

	c.deps.Button.Disable()
	c.deps.Indicator.StartBlink()
	c.deps.Router.Init()

	if c.pollTimer == nil {
		c.pollTimer = c.deps.Loop.NewTimer()
	}
	c.pollTimer.Arm(c.deps.Config.Provisioning.PollInterval, true, func() {
		c.dispatch(TriggerPoll)
	})

	c.deps.Provisioning.Start()

	c.transition(StateProvisioning, TriggerButton)
}

// onPoll checks the provisioning session for a terminal outcome.
func (c *Controller) onPoll() {
	if c.State() != StateProvisioning {
		return
	}
	if c.deps.Provisioning.IsRunning() {
		return
	}

	if !c.deps.Provisioning.WasSuccessful() {
		c.logger.Warn("provisioning failed, tearing down")
		c.teardown(TriggerPoll.String())
		return
	}

	c.enterRouting()
}

// enterRouting moves Provisioning to Routing after a successful session.
func (c *Controller) enterRouting() {
	c.pollTimer.Disarm()
	c.pollTimer = nil

	c.deps.Indicator.Steady()

	if c.watchdogTimer == nil {
		c.watchdogTimer = c.deps.Loop.NewTimer()
	}
	c.watchdogTimer.Arm(c.deps.Config.Watchdog.Interval, true, func() {
		c.dispatch(TriggerWatchdog)
	})

	if c.deps.Responder != nil {
		if err := c.deps.Responder.Start(); err != nil {
			c.logger.Error("starting discovery responder failed", "error", err)
		}
	}

	c.transition(StateRouting, TriggerPoll)
}

// onWatchdog confirms uplink connectivity while routing and forces a full
// teardown when it is gone.
func (c *Controller) onWatchdog() {
	if c.State() != StateRouting {
		return
	}

	connected := c.deps.Router.Connected()
	c.logger.Debug("watchdog check", "connected", connected)
	if c.deps.Reporter != nil {
		c.deps.Reporter.ReportWatchdogCheck(connected)
	}
	c.record("watchdog_check", "", "", map[string]any{"connected": connected})

	if !connected {
		c.logger.Warn("uplink lost, tearing down")
		c.teardown(TriggerWatchdog.String())
	}
}

// teardown returns the device to Idle from any state. Every step is safe
// against the corresponding resource already being released, so a second
// teardown is a no-op apart from the log line. The indicator output is the
// only thing intentionally left alone until the final Off.
func (c *Controller) teardown(cause string) {
	from := c.State()
	c.logger.Info("tearing down", "from", from.String(), "cause", cause)

	if c.deps.Responder != nil {
		c.deps.Responder.Stop()
	}

	c.watchdogTimer.Disarm()
	c.watchdogTimer = nil
	c.pollTimer.Disarm()
	c.pollTimer = nil

	c.deps.Provisioning.Stop()

	if err := c.deps.Stack.StationDisconnect(); err != nil {
		c.logger.Warn("station disconnect failed", "error", err)
	}
	if err := c.deps.Stack.SetMode(platform.ModeDisabled); err != nil {
		c.logger.Warn("disabling radio failed", "error", err)
	}
	c.deps.Stack.SetEventHandler(nil)

	c.deps.Indicator.Off()

	// A latched edge from during the lifecycle must not re-trigger entry.
	c.deps.Button.ClearLatch()
	c.deps.Button.Enable()

	c.mu.Lock()
	c.state = StateIdle
	c.accepting = true
	c.mu.Unlock()

	if from != StateIdle {
		c.record("lifecycle_transition", from.String(), StateIdle.String(), map[string]any{"trigger": cause})
		if c.deps.Reporter != nil {
			c.deps.Reporter.ReportTransition(from.String(), StateIdle.String(), cause)
		}
	}
}

// transition records and reports a state change. Runs on the loop.
func (c *Controller) transition(to State, trigger Trigger) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()

	c.logger.Info("state changed",
		"from", from.String(),
		"to", to.String(),
		"trigger", trigger.String())

	c.record("lifecycle_transition", from.String(), to.String(), map[string]any{"trigger": trigger.String()})
	if c.deps.Reporter != nil {
		c.deps.Reporter.ReportTransition(from.String(), to.String(), trigger.String())
	}
}

// record appends to the journal when one is attached.
func (c *Controller) record(event, from, to string, details map[string]any) {
	if c.deps.Recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	err := c.deps.Recorder.Record(ctx, &audit.Event{
		Event:     event,
		FromState: from,
		ToState:   to,
		Details:   details,
	})
	if err != nil {
		c.logger.Warn("journal write failed", "event", event, "error", err)
	}
}
