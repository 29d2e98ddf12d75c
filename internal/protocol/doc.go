// Package protocol implements the request/response engine of the Tello
// Talent serial adapter.
//
// The wire protocol is ASCII over a 115200 baud serial link:
//
//	!connect_<1|2>         -> !connected
//	takeoff, go 50 0 0 50  -> ok | error...
//	battery?, EXT tof?     -> 85 | tof 1234
//	EXT led ..., EXT mled  -> led ok | matrix ok
//
// A Session is created by a successful handshake and carries at most one
// command in flight. Every command class has a Policy that fixes its
// deadline, the number of attempts and whether failures are surfaced.
package protocol
