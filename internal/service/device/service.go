package device

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/logger"
	"github.com/facegate/facegate/internal/protocol"
)

// displayWidth is the character capacity of one display line.
const displayWidth = 16

// readChunkBytes sizes the transport read buffer.
const readChunkBytes = 256

// display models the two-line character display. Lines are clipped to the
// display width when set.
type display struct {
	// Line1 and Line2 hold the currently shown text.
	Line1, Line2 string
}

func (d *display) show(line1, line2 string) {
	d.Line1 = clip(line1)
	d.Line2 = clip(line2)
}

func (d *display) clear() {
	d.Line1 = ""
	d.Line2 = ""
}

// clip bounds a line to the display width.
func clip(s string) string {
	if len(s) <= displayWidth {
		return s
	}

	return s[:displayWidth]
}

// motor models the door motor. It runs for a fixed duration from the moment
// it starts; nothing blocks while it runs.
type motor struct {
	// Running reports whether the motor is currently turning.
	Running bool
	// startedAt is when the current run began.
	startedAt time.Time
	// duration is how long the current run should last.
	duration time.Duration
}

func (m *motor) start(now time.Time, duration time.Duration) {
	m.Running = true
	m.startedAt = now
	m.duration = duration
}

func (m *motor) stop() {
	m.Running = false
}

// due reports whether a running motor has served its full duration.
func (m *motor) due(now time.Time) bool {
	return m.Running && now.Sub(m.startedAt) >= m.duration
}

// service is the actuator device: a state machine fed complete command
// lines and periodic ticks. Both always come from the same connection
// goroutine, so the state needs no lock.
type service struct {
	// cfg holds the validated settings.
	cfg *config.Config
	// display is the simulated character display.
	display display
	// motor is the simulated door motor.
	motor motor
	// now is the clock, injectable in tests.
	now func() time.Time
}

// newService builds an idle device.
func newService(cfg *config.Config) *service {
	return &service{
		cfg: cfg,
		now: time.Now,
	}
}

// apply dispatches one received line. Malformed input never disturbs the
// device state: unknown commands are logged and dropped, and an unreadable
// door duration falls back to the configured default.
func (s *service) apply(ctx context.Context, line string) {
	cmd, err := protocol.Parse(line)

	switch {
	case err == nil:
	case errors.Is(err, protocol.ErrEmptyLine):
		return
	case errors.Is(err, protocol.ErrInvalidDuration):
		logger.WarnKV(ctx, "Unreadable door duration, using default",
			"line", line, "default", s.cfg.DoorOpenDuration)
	default:
		logger.WarnKV(ctx, "Ignoring unknown command", "line", line)

		return
	}

	switch c := cmd.(type) {
	case protocol.InitDisplay:
		s.display.show(c.Text, "")
		logger.InfoKV(ctx, "Display initialized", "text", c.Text)
	case protocol.ShowLines:
		s.display.show(c.Line1, c.Line2)
		logger.InfoKV(ctx, "Display updated", "line1", s.display.Line1, "line2", s.display.Line2)
	case protocol.ClearDisplay:
		s.display.clear()
		logger.Info(ctx, "Display cleared")
	case protocol.OpenDoor:
		duration := c.Duration
		if duration <= 0 {
			duration = s.cfg.DoorOpenDuration
		}

		s.motor.start(s.now(), duration)
		logger.InfoKV(ctx, "Door opening", "duration", duration)
	case protocol.CloseDoor:
		if s.motor.Running {
			logger.Info(ctx, "Door closing early")
		}

		s.motor.stop()
	}
}

// tick advances the motor: a run that has served its duration stops. Called
// between transport reads, never from a timer callback.
func (s *service) tick(ctx context.Context, now time.Time) {
	if s.motor.due(now) {
		s.motor.stop()
		logger.Info(ctx, "Door closed")
	}
}

// serveConn feeds one controller connection through the state machine.
// Reads carry a deadline of one tick so the motor keeps advancing while the
// line is quiet.
func (s *service) serveConn(ctx context.Context, conn net.Conn) {
	decoder := new(protocol.Decoder)
	chunk := make([]byte, readChunkBytes)

	for {
		if ctx.Err() != nil {
			return
		}

		if err := conn.SetReadDeadline(s.now().Add(s.cfg.TickInterval)); err != nil {
			logger.WarnKV(ctx, "Failed to arm read deadline", "error", err)

			return
		}

		n, err := conn.Read(chunk)
		if n > 0 {
			for _, line := range decoder.Feed(chunk[:n]) {
				s.apply(ctx, line)
			}
		}

		s.tick(ctx, s.now())

		if err == nil {
			continue
		}

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			// Quiet line; the deadline doubles as the tick.
			continue
		}

		if !errors.Is(err, io.EOF) {
			logger.WarnKV(ctx, "Connection read failed", "error", err)
		}

		return
	}
}
