package mqtt

import "fmt"

// Topic prefixes for the router's published surface.
//
// Scheme: naptrouter/{area}/{subject}. The router never subscribes; every
// topic here is publish-only.
const (
	// TopicPrefix is the base for all router topics.
	TopicPrefix = "naptrouter"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "naptrouter/system"

	// TopicPrefixLifecycle is the base for lifecycle topics.
	TopicPrefixLifecycle = "naptrouter/lifecycle"
)

// Topics provides builders for router MQTT topics. Using these helpers
// keeps topic naming consistent across the codebase.
type Topics struct{}

// SystemStatus returns the online/offline status topic. Retained; also the
// LWT target.
//
// Example: naptrouter/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// LifecycleState returns the retained current-state topic.
//
// Example: naptrouter/lifecycle/state
func (Topics) LifecycleState() string {
	return TopicPrefixLifecycle + "/state"
}

// LifecycleEvent returns the unretained event topic for a given event kind.
//
// Example: naptrouter/lifecycle/event/provisioning_attempt
func (Topics) LifecycleEvent(kind string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixLifecycle, kind)
}

// VitalSign returns the unretained vital-sign topic.
//
// Example: naptrouter/system/vital_sign
func (Topics) VitalSign() string {
	return TopicPrefixSystem + "/vital_sign"
}
