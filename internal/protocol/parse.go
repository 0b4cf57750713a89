package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrEmptyLine is returned for blank input lines.
	ErrEmptyLine = errors.New("empty command line")
	// ErrUnknownCommand is returned for lines with an unrecognized prefix.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidDuration is returned when the duration field of DOOR:OPEN
	// is not a valid decimal. Parse still returns an OpenDoor command with
	// zero duration so callers can substitute their default.
	ErrInvalidDuration = errors.New("invalid door duration")
)

// maxLineBytes caps the decoder buffer so a link that never sends a newline
// cannot grow it without bound.
const maxLineBytes = 512

// Parse interprets one complete wire line (without the trailing newline).
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, ErrEmptyLine
	}

	switch {
	case strings.HasPrefix(line, "INIT:"):
		return InitDisplay{Text: strings.TrimSpace(line[len("INIT:"):])}, nil

	case strings.HasPrefix(line, "LCD:"):
		rest := strings.TrimSpace(line[len("LCD:"):])
		if rest == "CLEAR" {
			return ClearDisplay{}, nil
		}

		line1, line2, _ := strings.Cut(rest, "|")

		return ShowLines{Line1: line1, Line2: line2}, nil

	case strings.HasPrefix(line, "DOOR:"):
		rest := strings.TrimSpace(line[len("DOOR:"):])
		if rest == "CLOSE" {
			return CloseDoor{}, nil
		}

		if raw, ok := strings.CutPrefix(rest, "OPEN:"); ok {
			seconds, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil || seconds < 0 {
				return OpenDoor{}, fmt.Errorf("%w: %q", ErrInvalidDuration, raw)
			}

			return OpenDoor{Duration: time.Duration(seconds * float64(time.Second))}, nil
		}

		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, line)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, line)
	}
}

// Decoder accumulates raw transport bytes and splits them into complete
// lines, tolerating partial and interleaved arrivals.
type Decoder struct {
	// buf holds bytes received after the last complete line.
	buf []byte
}

// Feed appends received bytes and returns every complete line they finish,
// without terminators. Bytes after the last newline stay buffered for the
// next call.
func (d *Decoder) Feed(p []byte) []string {
	d.buf = append(d.buf, p...)

	var lines []string

	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}

		line := strings.TrimRight(string(d.buf[:i]), "\r")
		d.buf = d.buf[i+1:]
		lines = append(lines, line)
	}

	// A line that never terminates is discarded rather than buffered forever.
	if len(d.buf) > maxLineBytes {
		d.buf = d.buf[:0]
	}

	return lines
}
