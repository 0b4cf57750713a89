// Package recognizer defines the boundary to the external face recognizer:
// per-frame prediction samples, the Source that produces them, and the
// confidence Gate that coerces weak matches to the Unknown identity.
//
// The recognizer reports LBPH-style distances, so the gate polarity is
// inverted relative to a probability score: lower confidence means a better
// match, and values at or above the threshold are rejected.
package recognizer
