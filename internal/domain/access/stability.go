package access

// StabilityFilter debounces per-frame recognizer output into stable identity
// events. A candidate must repeat for threshold consecutive observations
// before it is reported; the event fires once per streak.
//
// The filter is owned by the recognition loop and is not safe for concurrent
// use. It holds no state across process restarts.
type StabilityFilter struct {
	// threshold is the run length required before a candidate is stable.
	threshold int
	// candidate is the identity currently being counted.
	candidate Identity
	// hasCandidate distinguishes "no observation yet" from a real candidate,
	// since Unknown is itself a valid candidate.
	hasCandidate bool
	// runLength is the number of consecutive observations of candidate.
	runLength int
	// emitted records that the current streak already produced its event.
	emitted bool
}

// NewStabilityFilter creates a filter requiring threshold consecutive
// identical observations. A threshold below one is coerced to one.
func NewStabilityFilter(threshold int) *StabilityFilter {
	if threshold < 1 {
		threshold = 1
	}

	return &StabilityFilter{
		threshold: threshold,
	}
}

// Observe feeds one per-face prediction into the filter. It returns a
// StableEvent the first time the current candidate reaches the threshold,
// and nil on every other observation.
func (f *StabilityFilter) Observe(candidate Identity) *StableEvent {
	if f.hasCandidate && candidate == f.candidate {
		f.runLength++
	} else {
		f.candidate = candidate
		f.hasCandidate = true
		f.runLength = 1
		f.emitted = false
	}

	if f.runLength >= f.threshold && !f.emitted {
		f.emitted = true

		return &StableEvent{Identity: f.candidate}
	}

	return nil
}

// Reset clears the streak. Called when a frame contains no faces.
func (f *StabilityFilter) Reset() {
	f.candidate = Unknown
	f.hasCandidate = false
	f.runLength = 0
	f.emitted = false
}

// Stable returns the currently stabilized identity, if the streak has
// reached the threshold.
func (f *StabilityFilter) Stable() (Identity, bool) {
	if f.hasCandidate && f.runLength >= f.threshold {
		return f.candidate, true
	}

	return Unknown, false
}

// RunLength returns the current streak length.
func (f *StabilityFilter) RunLength() int {
	return f.runLength
}
