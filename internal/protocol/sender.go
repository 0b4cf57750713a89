package protocol

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/facegate/facegate/internal/logger"
)

// deadlineWriter is the subset of net.Conn the sender can use to bound a
// write. Plain writers work too, just without the timeout.
type deadlineWriter interface {
	SetWriteDeadline(t time.Time) error
}

// Sender writes actuator commands to the transport. Each command is one
// atomic write; failures are logged and swallowed so a broken link degrades
// the actuator instead of the decision pipeline. The sender never waits for
// a response.
type Sender struct {
	// mu serializes writes so concurrent callers cannot interleave lines.
	mu sync.Mutex
	// conn is the underlying transport.
	conn io.Writer
	// timeout bounds a single write when the transport supports deadlines.
	timeout time.Duration
}

// NewSender wraps the transport. A non-positive timeout disables write
// deadlines.
func NewSender(conn io.Writer, timeout time.Duration) *Sender {
	return &Sender{
		conn:    conn,
		timeout: timeout,
	}
}

// Send encodes and writes one command. Write errors are logged, never
// returned: the caller keeps operating with an unconfirmed actuator state.
func (s *Sender) Send(ctx context.Context, cmd Command) {
	line := Encode(cmd)

	s.mu.Lock()
	defer s.mu.Unlock()

	if dw, ok := s.conn.(deadlineWriter); ok && s.timeout > 0 {
		if err := dw.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
			logger.WarnKV(ctx, "Failed to set write deadline", "error", err)
		}
	}

	if _, err := s.conn.Write([]byte(line)); err != nil {
		logger.WarnKV(ctx, "Failed to send actuator command",
			"command", line[:len(line)-1], "error", err)

		return
	}

	logger.DebugKV(ctx, "Actuator command sent", "command", line[:len(line)-1])
}
