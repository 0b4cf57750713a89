package controller

import (
	"sync"
	"time"

	"github.com/facegate/facegate/internal/domain/access"
)

// ChallengeState enumerates the authenticator states.
type ChallengeState int

// Challenge lifecycle: Idle -> Pending -> {Succeeded | Cancelled | TimedOut}
// -> Idle. The terminal states are observable until the next challenge
// begins.
const (
	ChallengeIdle ChallengeState = iota
	ChallengePending
	ChallengeSucceeded
	ChallengeCancelled
	ChallengeTimedOut
)

// String returns the state name for logs.
func (s ChallengeState) String() string {
	switch s {
	case ChallengeIdle:
		return "idle"
	case ChallengePending:
		return "pending"
	case ChallengeSucceeded:
		return "succeeded"
	case ChallengeCancelled:
		return "cancelled"
	case ChallengeTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// cancelSentinel is the input that aborts a pending challenge.
const cancelSentinel = "q"

// submitOutcome is the result of feeding one collected secret into the
// state machine.
type submitOutcome int

const (
	// submitIgnored means no challenge was pending; the input is discarded.
	submitIgnored submitOutcome = iota
	// submitSucceeded means the secret matched and the challenge completed.
	submitSucceeded
	// submitWrong means the secret did not match; the challenge stays
	// pending with a restarted countdown.
	submitWrong
	// submitCancelled means the cancel sentinel was received.
	submitCancelled
)

// challenge is the single shared record between the recognition loop and
// the secret collector. All fields are guarded by mu; neither task may
// observe a torn record. At most one challenge is pending system-wide.
type challenge struct {
	mu sync.Mutex

	// state is the current lifecycle phase.
	state ChallengeState
	// identity is the subject being challenged.
	identity access.Identity
	// subject is the display name used for prompts and verification.
	subject string
	// startedAt is when the countdown (re)started.
	startedAt time.Time
	// timeout is the allowed entry window.
	timeout time.Duration
}

// begin transitions Idle (or any terminal state) to Pending for the given
// subject. It returns false while another challenge is pending, including
// a re-trigger for the same subject.
func (c *challenge) begin(identity access.Identity, subject string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == ChallengePending {
		return false
	}

	c.state = ChallengePending
	c.identity = identity
	c.subject = subject
	c.startedAt = now

	return true
}

// submit feeds one collected secret into the machine. verify is called
// under the lock with the pending subject; it must not block.
func (c *challenge) submit(secret string, now time.Time, verify func(subject, secret string) bool) (submitOutcome, access.Identity, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != ChallengePending {
		return submitIgnored, access.Unknown, ""
	}

	if secret == cancelSentinel {
		c.state = ChallengeCancelled

		return submitCancelled, c.identity, c.subject
	}

	if verify(c.subject, secret) {
		c.state = ChallengeSucceeded

		return submitSucceeded, c.identity, c.subject
	}

	// Wrong secret: stay pending, restart the countdown for the same
	// subject. Retries are unlimited.
	c.startedAt = now

	return submitWrong, c.identity, c.subject
}

// expire forces Pending to TimedOut once the countdown has elapsed. It
// fires at most once per pending challenge.
func (c *challenge) expire(now time.Time) (access.Identity, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != ChallengePending || now.Sub(c.startedAt) <= c.timeout {
		return access.Unknown, "", false
	}

	c.state = ChallengeTimedOut

	return c.identity, c.subject, true
}

// cancel aborts a pending challenge from the recognition loop side.
func (c *challenge) cancel() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != ChallengePending {
		return "", false
	}

	c.state = ChallengeCancelled

	return c.subject, true
}

// pending returns the subject currently awaiting a secret.
func (c *challenge) pending() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != ChallengePending {
		return "", false
	}

	return c.subject, true
}

// current returns the state for logs and tests.
func (c *challenge) current() ChallengeState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}
