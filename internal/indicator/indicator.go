package indicator

import (
	"sync"
	"time"

	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/logging"
	"github.com/lukasfriedrichsen/naptrouter/internal/platform"
	"github.com/lukasfriedrichsen/naptrouter/internal/sched"
)

// Indicator drives the two-state status output. It owns the blink timer;
// the output itself only knows on and off.
//
// States: blinking (provisioning in progress), steady (routing), off
// (idle). All methods must be called from the owning loop.
type Indicator struct {
	out    platform.IndicatorOutput
	loop   *sched.Loop
	logger *logging.Logger

	interval time.Duration

	mu    sync.Mutex
	blink *sched.Timer
	lit   bool
}

// New creates an Indicator with the given toggle interval.
func New(loop *sched.Loop, out platform.IndicatorOutput, interval time.Duration, logger *logging.Logger) *Indicator {
	return &Indicator{
		out:      out,
		loop:     loop,
		logger:   logger.With("component", "indicator"),
		interval: interval,
	}
}

// StartBlink begins the periodic toggle. Idempotent: calling it while
// already blinking leaves the running timer untouched.
func (i *Indicator) StartBlink() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.blink.Armed() {
		return
	}
	if i.blink == nil {
		i.blink = i.loop.NewTimer()
	}
	i.logger.Debug("indicator blinking", "interval", i.interval)
	i.setOutput(true)
	i.blink.Arm(i.interval, true, i.toggle)
}

// toggle flips the output. Runs on the loop.
func (i *Indicator) toggle() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.setOutput(!i.lit)
}

// Steady stops any blinking and holds the output on.
func (i *Indicator) Steady() {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.blink.Disarm()
	i.logger.Debug("indicator steady")
	i.setOutput(true)
}

// Off stops any blinking, releases the blink timer and turns the output
// off. Safe to call when already off.
func (i *Indicator) Off() {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.blink.Disarm()
	i.blink = nil
	i.logger.Debug("indicator off")
	i.setOutput(false)
}

// Blinking reports whether the blink timer is armed.
func (i *Indicator) Blinking() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.blink.Armed()
}

// setOutput drives the physical output. Caller holds i.mu.
func (i *Indicator) setOutput(on bool) {
	i.lit = on
	if on {
		i.out.On()
	} else {
		i.out.Off()
	}
}
