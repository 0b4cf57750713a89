package protocol

import (
	"strconv"
	"strings"
	"time"
)

// Command is one actuator instruction. Commands are immutable one-shot
// values; the set of implementations is closed.
type Command interface {
	isCommand()
}

// InitDisplay initializes the display with a greeting text.
type InitDisplay struct {
	// Text is shown on the first display line.
	Text string
}

// ShowLines displays two lines of text.
type ShowLines struct {
	// Line1 is the top display line.
	Line1 string
	// Line2 is the bottom display line. May be empty.
	Line2 string
}

// ClearDisplay blanks the display.
type ClearDisplay struct{}

// OpenDoor starts a timed motor run.
type OpenDoor struct {
	// Duration is how long the motor runs. Zero means the receiver
	// substitutes its configured default.
	Duration time.Duration
}

// CloseDoor stops the motor immediately.
type CloseDoor struct{}

func (InitDisplay) isCommand()  {}
func (ShowLines) isCommand()    {}
func (ClearDisplay) isCommand() {}
func (OpenDoor) isCommand()     {}
func (CloseDoor) isCommand()    {}

// Encode renders the command as a complete wire line, including the
// terminating newline. Text fields are sanitized so they cannot break the
// line or field framing.
func Encode(cmd Command) string {
	switch c := cmd.(type) {
	case InitDisplay:
		return "INIT:" + sanitize(c.Text) + "\n"
	case ShowLines:
		return "LCD:" + sanitize(c.Line1) + "|" + sanitize(c.Line2) + "\n"
	case ClearDisplay:
		return "LCD:CLEAR\n"
	case OpenDoor:
		return "DOOR:OPEN:" + formatSeconds(c.Duration) + "\n"
	case CloseDoor:
		return "DOOR:CLOSE\n"
	default:
		// The command set is closed; an unknown implementation is a
		// programming error.
		panic("protocol: unknown command type")
	}
}

// formatSeconds renders a duration as decimal seconds without trailing
// zeros, e.g. 3.5s -> "3.5", 5s -> "5".
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// sanitize strips framing characters from display text.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", " ")

	return strings.TrimSpace(s)
}
