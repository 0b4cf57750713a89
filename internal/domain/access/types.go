package access

// Identity is the stable recognizer-assigned key for an enrolled subject.
type Identity int

// Unknown is the sentinel identity produced when the recognizer cannot match
// a face, or when a match is rejected by the confidence gate.
const Unknown Identity = -1

// Known reports whether the identity refers to an enrolled subject.
func (id Identity) Known() bool {
	return id != Unknown
}

// Sample is one recognizer prediction for one detected face in one frame.
// Samples are ephemeral: they exist only for the duration of the frame.
type Sample struct {
	// Identity is the predicted subject, or Unknown.
	Identity Identity
	// Confidence is the recognizer distance for the prediction.
	// Lower values are better matches.
	Confidence float64
}

// StableEvent is emitted by the stability filter when a candidate identity
// has repeated for the configured number of consecutive frames.
type StableEvent struct {
	// Identity is the stabilized candidate, possibly Unknown.
	Identity Identity
}

// PolicyResult is the outcome of one access policy evaluation.
// It is produced fresh per query and never mutated afterwards.
type PolicyResult struct {
	// Granted indicates whether access is allowed.
	Granted bool
	// SubjectName is the display name of the subject, when resolved.
	SubjectName string
	// Reason explains a denial. Empty on a grant.
	Reason string
}
