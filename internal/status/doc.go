// Package status fans lifecycle facts out to external observers.
//
// Two optional sinks: the MQTT broker (retained state topic plus
// unretained events) and InfluxDB (lifecycle, watchdog and provisioning
// points). Both degrade gracefully; the lifecycle controller calls the
// reporter without caring whether anything is listening.
package status
