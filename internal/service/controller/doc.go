// Package controller implements the host-side access pipeline.
//
// It stabilizes per-frame recognition results, evaluates the access policy
// for stabilized identities, runs the password challenge for granted
// subjects and drives the door actuator over the line protocol.
package controller
