// Package device implements the actuator simulator.
//
// It listens for one controller connection, decodes the line protocol and
// drives a simulated two-line display and door motor. The motor runs on a
// deadline checked every tick, so the device never blocks while the door
// is open.
package device
