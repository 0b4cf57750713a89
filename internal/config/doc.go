// Package config defines the settings shared by the facegate binaries and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type holds the actuator transport address, the decision pipeline
// thresholds and timeouts, and the paths of the policy database and the
// credentials file. Validate fills defaults for everything optional so the
// services never see zero timeouts.
package config
