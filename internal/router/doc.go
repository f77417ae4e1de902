// Package router configures the device's NAT router side.
//
// It owns two pieces: the static port-map table (fixed capacity, loaded
// from configuration, mapping addresses patched in from the acquired
// uplink address) and the configurator that reacts to the uplink
// address-acquired event by bringing up the access point, subnet, DHCP
// lease range, translation and DNS in a fixed order.
//
// Health is reported through Connected only. The package never initiates
// teardown; the lifecycle watchdog reads Connected and decides.
package router
