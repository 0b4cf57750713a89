package recognizer

import (
	"context"

	"github.com/facegate/facegate/internal/domain/access"
)

// Frame carries the recognizer output for one captured camera frame:
// one sample per detected face. An empty sample list means no face was
// present in the frame.
type Frame struct {
	// Samples holds one prediction per detected face.
	Samples []access.Sample
}

// Empty reports whether the frame contained no faces.
func (f Frame) Empty() bool {
	return len(f.Samples) == 0
}

// Source produces recognition frames. The camera capture and detection
// pipeline lives outside this repository; a Source is its boundary.
type Source interface {
	// Next blocks until the next frame is available. It returns io.EOF
	// when the feed is exhausted.
	Next(ctx context.Context) (Frame, error)
}

// Gate applies the confidence threshold to raw predictions. The recognizer
// reports a distance, so lower confidence values are better matches; a
// prediction at or above the threshold is coerced to Unknown.
type Gate struct {
	// Threshold is the distance cutoff.
	Threshold float64
}

// Resolve returns the identity the pipeline should act on for the sample.
func (g Gate) Resolve(sample access.Sample) access.Identity {
	if !sample.Identity.Known() || sample.Confidence >= g.Threshold {
		return access.Unknown
	}

	return sample.Identity
}
