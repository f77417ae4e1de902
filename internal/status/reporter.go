package status

import (
	"encoding/json"
	"time"

	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/logging"
	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/mqtt"
)

// Publisher is the broker surface the reporter publishes to. Satisfied by
// *mqtt.Client.
type Publisher interface {
	PublishRetained(topic string, payload []byte) error
	PublishEvent(topic string, payload []byte) error
}

// TelemetryWriter is the metrics surface the reporter writes to. Satisfied
// by *influxdb.Client.
type TelemetryWriter interface {
	WriteLifecycleTransition(from, to, trigger string)
	WriteWatchdogCheck(connected bool)
	WriteProvisioningAttempt(attempt, limit int)
}

// Reporter fans lifecycle facts out to the optional broker and telemetry
// sinks. Reporting is best-effort: a missing sink is skipped, a failing one
// is logged, and neither ever blocks a lifecycle decision.
type Reporter struct {
	logger    *logging.Logger
	publisher Publisher
	telemetry TelemetryWriter
	topics    mqtt.Topics
}

// New creates a reporter with no sinks attached.
func New(logger *logging.Logger) *Reporter {
	return &Reporter{
		logger: logger.With("component", "status"),
	}
}

// SetPublisher attaches the broker sink. Call before reporting starts.
func (r *Reporter) SetPublisher(p Publisher) {
	r.publisher = p
}

// SetTelemetry attaches the telemetry sink. Call before reporting starts.
func (r *Reporter) SetTelemetry(w TelemetryWriter) {
	r.telemetry = w
}

// statePayload is the retained lifecycle state message.
type statePayload struct {
	State     string `json:"state"`
	Trigger   string `json:"trigger,omitempty"`
	Timestamp string `json:"timestamp"`
}

// eventPayload is the unretained lifecycle event message.
type eventPayload struct {
	Event     string         `json:"event"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// ReportTransition publishes a lifecycle state change.
func (r *Reporter) ReportTransition(from, to, trigger string) {
	if r.telemetry != nil {
		r.telemetry.WriteLifecycleTransition(from, to, trigger)
	}
	if r.publisher == nil {
		return
	}

	payload, err := json.Marshal(statePayload{
		State:     to,
		Trigger:   trigger,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		r.logger.Warn("marshalling state payload failed", "error", err)
		return
	}
	if err := r.publisher.PublishRetained(r.topics.LifecycleState(), payload); err != nil {
		r.logger.Warn("publishing lifecycle state failed", "error", err)
	}
}

// ReportWatchdogCheck publishes one watchdog connectivity check.
func (r *Reporter) ReportWatchdogCheck(connected bool) {
	if r.telemetry != nil {
		r.telemetry.WriteWatchdogCheck(connected)
	}
	r.publishEvent("watchdog_check", map[string]any{"connected": connected})
}

// ReportProvisioningAttempt publishes the start of a provisioning attempt.
func (r *Reporter) ReportProvisioningAttempt(attempt, limit int) {
	if r.telemetry != nil {
		r.telemetry.WriteProvisioningAttempt(attempt, limit)
	}
	r.publishEvent("provisioning_attempt", map[string]any{"attempt": attempt, "limit": limit})
}

// ReportVitalSign publishes the periodic routing vital sign.
func (r *Reporter) ReportVitalSign(mac string) {
	if r.publisher == nil {
		return
	}

	payload, err := json.Marshal(eventPayload{
		Event:     "vital_sign",
		Details:   map[string]any{"mac": mac},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		r.logger.Warn("marshalling vital sign failed", "error", err)
		return
	}
	if err := r.publisher.PublishEvent(r.topics.VitalSign(), payload); err != nil {
		r.logger.Warn("publishing vital sign failed", "error", err)
	}
}

// publishEvent sends an unretained lifecycle event to the broker sink.
func (r *Reporter) publishEvent(kind string, details map[string]any) {
	if r.publisher == nil {
		return
	}

	payload, err := json.Marshal(eventPayload{
		Event:     kind,
		Details:   details,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		r.logger.Warn("marshalling event payload failed", "event", kind, "error", err)
		return
	}
	if err := r.publisher.PublishEvent(r.topics.LifecycleEvent(kind), payload); err != nil {
		r.logger.Warn("publishing lifecycle event failed", "event", kind, "error", err)
	}
}
