package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteLifecycleTransition records a lifecycle state change.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - from: State the controller left
//   - to: State the controller entered
//   - trigger: What caused the transition (button, poll, watchdog)
func (c *Client) WriteLifecycleTransition(from, to, trigger string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"lifecycle_transition",
		map[string]string{
			"from":    from,
			"to":      to,
			"trigger": trigger,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteWatchdogCheck records one watchdog connectivity check.
//
// Parameters:
//   - connected: Whether the uplink was healthy at check time
func (c *Client) WriteWatchdogCheck(connected bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"watchdog_check",
		nil,
		map[string]interface{}{
			"connected": connected,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteProvisioningAttempt records the start of a provisioning attempt.
//
// Parameters:
//   - attempt: Attempt number within the session (1-based)
//   - limit: Configured attempt limit
func (c *Client) WriteProvisioningAttempt(attempt, limit int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"provisioning_attempt",
		nil,
		map[string]interface{}{
			"attempt": attempt,
			"limit":   limit,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
