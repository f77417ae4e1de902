package provisioning

import (
	"sync"

	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/config"
	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/logging"
	"github.com/lukasfriedrichsen/naptrouter/internal/platform"
	"github.com/lukasfriedrichsen/naptrouter/internal/sched"
)

// Session tracks one provisioning run. At most one session is active per
// controller; the zero value means no session.
type Session struct {
	// Phase is the last transport phase observed.
	Phase platform.SmartConfigPhase

	// Attempt counts timed-out restarts, starting at 1. Bounded by the
	// configured attempt limit.
	Attempt int
}

// Controller runs SmartConfig provisioning sessions against the transport
// and applies decoded credentials to the network stack.
//
// The controller is passive toward its owner: it never forces a lifecycle
// transition. Terminal outcomes (success or exhausted attempts) are left
// for the owner to observe through IsRunning and WasSuccessful.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Transport status callbacks
//     are expected to arrive on the owning sched.Loop.
type Controller struct {
	cfg       config.ProvisioningConfig
	loop      *sched.Loop
	transport platform.SmartConfigTransport
	stack     platform.NetworkStack
	logger    *logging.Logger

	// OnStarted, when non-nil, is invoked once per attempt when the
	// transport reports it is actively scanning. Set before Start.
	OnStarted func()

	// OnAttempt, when non-nil, is invoked with the attempt number each
	// time an attempt begins. Set before Start.
	OnAttempt func(attempt int)

	mu         sync.Mutex
	session    Session
	running    bool
	successful bool
	recvTimer  *sched.Timer
	linkTimer  *sched.Timer
}

// New creates a provisioning controller.
func New(loop *sched.Loop, transport platform.SmartConfigTransport, stack platform.NetworkStack, cfg config.ProvisioningConfig, logger *logging.Logger) *Controller {
	return &Controller{
		cfg:       cfg,
		loop:      loop,
		transport: transport,
		stack:     stack,
		logger:    logger.With("component", "provisioning"),
	}
}

// Start begins a provisioning session. A session that cannot start, or one
// that is already running, is logged and otherwise swallowed: the caller's
// next poll simply observes not-running.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.logger.Warn("start ignored", "error", ErrAlreadyRunning)
		return
	}

	c.session = Session{Phase: platform.PhaseWaiting, Attempt: 1}
	c.successful = false
	c.running = true
	c.beginAttemptLocked()
}

// beginAttemptLocked starts the transport and arms the credential-receive
// timeout for the current attempt. Caller holds c.mu.
func (c *Controller) beginAttemptLocked() {
	c.logger.Info("provisioning attempt starting",
		"attempt", c.session.Attempt,
		"limit", c.cfg.AttemptLimit)

	if c.OnAttempt != nil {
		c.OnAttempt(c.session.Attempt)
	}

	if err := c.transport.Start(c.handleStatus); err != nil {
		c.logger.Error("transport start failed", "error", err)
		c.running = false
		return
	}

	// The initial window covers the wait for the first encoded packet;
	// once credentials start arriving it is re-armed with the (usually
	// tighter) receive timeout.
	if c.recvTimer == nil {
		c.recvTimer = c.loop.NewTimer()
	}
	c.recvTimer.Arm(c.cfg.ConfigTimeout, false, c.onReceiveTimeout)
}

// Stop aborts any active session. Idempotent; a stopped session is neither
// running nor successful unless it already completed.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	c.teardownLocked()
	c.running = false
	c.logger.Info("provisioning session stopped", "attempt", c.session.Attempt)
}

// teardownLocked disarms timers and stops the transport. Caller holds c.mu.
func (c *Controller) teardownLocked() {
	c.recvTimer.Disarm()
	c.linkTimer.Disarm()
	if err := c.transport.Stop(); err != nil {
		c.logger.Warn("transport stop failed", "error", err)
	}
}

// IsRunning reports whether a session is in progress.
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// WasSuccessful reports whether the most recent session established an
// uplink. Meaningful once IsRunning returns false.
func (c *Controller) WasSuccessful() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.successful
}

// Attempt returns the current (or final) attempt number.
func (c *Controller) Attempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Attempt
}

// handleStatus is the single entry point for transport phase changes. It
// runs on the loop.
func (c *Controller) handleStatus(status platform.SmartConfigStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		// Late status from a transport we already stopped.
		return
	}

	c.session.Phase = status.Phase

	switch status.Phase {
	case platform.PhaseWaiting:
		// Transport idle between packets. Nothing to do.

	case platform.PhaseFindingChannel:
		c.logger.Debug("transport scanning for provisioning channel")
		if c.OnStarted != nil {
			c.OnStarted()
		}

	case platform.PhaseReceivingCredentials:
		c.logger.Debug("receiving encoded credentials")
		c.recvTimer.Arm(c.cfg.ReceiveTimeout, false, c.onReceiveTimeout)

	case platform.PhaseLinking:
		c.recvTimer.Disarm()
		if status.Credentials == nil {
			c.logger.Error("linking phase without credentials, aborting attempt")
			c.abortAttemptLocked()
			return
		}
		c.logger.Info("credentials received, connecting to uplink", "ssid", status.Credentials.SSID)
		if err := c.stack.ApplyStationConfig(*status.Credentials); err != nil {
			c.logger.Error("applying station config failed", "error", err)
			c.abortAttemptLocked()
			return
		}
		if err := c.stack.StationConnect(); err != nil {
			c.logger.Error("station connect failed", "error", err)
			c.abortAttemptLocked()
			return
		}
		if c.linkTimer == nil {
			c.linkTimer = c.loop.NewTimer()
		}
		c.linkTimer.Arm(c.cfg.LinkTimeout, false, c.onLinkTimeout)

	case platform.PhaseLinkEstablished:
		c.teardownLocked()
		c.running = false
		c.successful = true
		c.logger.Info("uplink established", "attempt", c.session.Attempt)
	}
}

// onReceiveTimeout fires when no credentials arrived in time.
func (c *Controller) onReceiveTimeout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.logger.Warn("credential receive timed out", "attempt", c.session.Attempt)
	c.abortAttemptLocked()
}

// onLinkTimeout fires when the connection attempt did not complete in time.
func (c *Controller) onLinkTimeout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.logger.Warn("uplink connection timed out", "attempt", c.session.Attempt)
	if err := c.stack.StationDisconnect(); err != nil {
		c.logger.Warn("station disconnect failed", "error", err)
	}
	c.abortAttemptLocked()
}

// abortAttemptLocked ends the current attempt. Below the attempt limit the
// session restarts from scratch; at the limit it terminates with overall
// failure. Caller holds c.mu.
func (c *Controller) abortAttemptLocked() {
	c.teardownLocked()

	if c.session.Attempt < c.cfg.AttemptLimit {
		c.session.Attempt++
		c.session.Phase = platform.PhaseWaiting
		c.beginAttemptLocked()
		return
	}

	c.running = false
	c.successful = false
	c.logger.Error("provisioning failed", "error", ErrAttemptsExhausted, "attempts", c.session.Attempt)
}
