// Package evaluator implements the access policy decision: given a
// stabilized identity and the current day and time, it answers Grant or
// Deny with a reason, consulting the policy store on every call.
package evaluator
