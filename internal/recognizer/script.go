package recognizer

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/facegate/facegate/internal/domain/access"
	"github.com/facegate/facegate/internal/logger"
)

// ScriptSource replays a recognition feed from a reader, one line per frame.
//
// Line format: whitespace-separated `label:confidence` tokens, one per
// detected face. A blank line is a frame with no faces. Lines starting with
// '#' are comments. Example:
//
//	# subject 7 walks in
//	7:31.2
//	7:30.8 -1:85.0
//
// This is the simulation counterpart of a live camera pipeline and the
// format used by the mock-hardware mode.
type ScriptSource struct {
	scanner *bufio.Scanner
}

// NewScriptSource reads frames from r until EOF.
func NewScriptSource(r io.Reader) *ScriptSource {
	return &ScriptSource{
		scanner: bufio.NewScanner(r),
	}
}

// Next returns the next scripted frame, or io.EOF when the feed ends.
func (s *ScriptSource) Next(ctx context.Context) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return Frame{}, err
			}

			return Frame{}, io.EOF
		}

		line := strings.TrimSpace(s.scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}

		return parseFrame(ctx, line), nil
	}
}

// parseFrame converts one feed line into a frame, skipping malformed tokens.
func parseFrame(ctx context.Context, line string) Frame {
	if line == "" {
		return Frame{}
	}

	var frame Frame

	for _, token := range strings.Fields(line) {
		rawLabel, rawConfidence, ok := strings.Cut(token, ":")
		if !ok {
			logger.WarnKV(ctx, "Skipping malformed feed token", "token", token)

			continue
		}

		label, err := strconv.Atoi(rawLabel)
		if err != nil {
			logger.WarnKV(ctx, "Skipping malformed feed label", "token", token, "error", err)

			continue
		}

		confidence, err := strconv.ParseFloat(rawConfidence, 64)
		if err != nil {
			logger.WarnKV(ctx, "Skipping malformed feed confidence", "token", token, "error", err)

			continue
		}

		frame.Samples = append(frame.Samples, access.Sample{
			Identity:   access.Identity(label),
			Confidence: confidence,
		})
	}

	return frame
}
