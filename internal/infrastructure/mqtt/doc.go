// Package mqtt provides the router's optional status-reporting broker
// connection.
//
// The router is strictly a publisher: retained lifecycle state and system
// status, unretained lifecycle events and vital signs. A Last Will on the
// system status topic lets watchers distinguish a crashed router from a
// gracefully stopped one.
//
// The connection is optional end to end. When MQTT is disabled in
// configuration the rest of the system runs with a nil client and skips
// reporting entirely.
package mqtt
