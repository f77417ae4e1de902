// Package influxdb provides the router's optional telemetry sink.
//
// Lifecycle transitions, watchdog checks and provisioning attempts are
// written as InfluxDB points through the non-blocking batched write API.
// Telemetry is never load-bearing: when the sink is disabled or down the
// rest of the system carries on without it.
package influxdb
