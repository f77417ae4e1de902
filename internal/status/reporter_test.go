package status

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/logging"
)

type fakePublisher struct {
	retained map[string][]byte
	events   map[string][]byte
	err      error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		retained: make(map[string][]byte),
		events:   make(map[string][]byte),
	}
}

func (f *fakePublisher) PublishRetained(topic string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.retained[topic] = payload
	return nil
}

func (f *fakePublisher) PublishEvent(topic string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.events[topic] = payload
	return nil
}

type fakeTelemetry struct {
	transitions int
	checks      int
	attempts    int
}

func (f *fakeTelemetry) WriteLifecycleTransition(string, string, string) { f.transitions++ }
func (f *fakeTelemetry) WriteWatchdogCheck(bool)                         { f.checks++ }
func (f *fakeTelemetry) WriteProvisioningAttempt(int, int)               { f.attempts++ }

func TestReportTransitionPublishesRetainedState(t *testing.T) {
	pub := newFakePublisher()
	tel := &fakeTelemetry{}
	r := New(logging.Default())
	r.SetPublisher(pub)
	r.SetTelemetry(tel)

	r.ReportTransition("idle", "provisioning", "button")

	payload, ok := pub.retained["naptrouter/lifecycle/state"]
	if !ok {
		t.Fatal("expected retained state publish")
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if decoded["state"] != "provisioning" || decoded["trigger"] != "button" {
		t.Fatalf("unexpected payload: %s", payload)
	}
	if tel.transitions != 1 {
		t.Fatalf("expected 1 telemetry transition, got %d", tel.transitions)
	}
}

func TestReportEventsGoUnretained(t *testing.T) {
	pub := newFakePublisher()
	r := New(logging.Default())
	r.SetPublisher(pub)

	r.ReportWatchdogCheck(true)
	r.ReportProvisioningAttempt(2, 3)
	r.ReportVitalSign("5c:cf:7f:aa:bb:cc")

	for _, topic := range []string{
		"naptrouter/lifecycle/event/watchdog_check",
		"naptrouter/lifecycle/event/provisioning_attempt",
		"naptrouter/system/vital_sign",
	} {
		if _, ok := pub.events[topic]; !ok {
			t.Errorf("expected event on %s", topic)
		}
	}
	if len(pub.retained) != 0 {
		t.Fatal("expected no retained publishes for events")
	}
}

func TestNilSinksAreSkipped(t *testing.T) {
	r := New(logging.Default())

	// Must not panic with no sinks attached.
	r.ReportTransition("idle", "provisioning", "button")
	r.ReportWatchdogCheck(false)
	r.ReportProvisioningAttempt(1, 3)
	r.ReportVitalSign("5c:cf:7f:aa:bb:cc")
}

func TestPublishFailuresAreSwallowed(t *testing.T) {
	pub := newFakePublisher()
	pub.err = errors.New("broker down")
	r := New(logging.Default())
	r.SetPublisher(pub)

	// Failures are logged, never returned.
	r.ReportTransition("provisioning", "routing", "poll")
	r.ReportWatchdogCheck(true)
}
