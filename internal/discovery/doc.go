// Package discovery makes a routing device discoverable on its own subnet.
//
// Two tiny UDP surfaces, both CSV-over-datagram: a request/response
// meta-data endpoint ("who are you" answered with purpose, hardware
// address and uplink address) and a periodic vital-sign broadcast that
// lets clients notice a silently departed router.
//
// The responder only runs while the lifecycle is in its routing state; the
// lifecycle starts and stops it on the way in and out.
package discovery
