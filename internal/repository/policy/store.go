package policy

import (
	"context"
	"errors"
	"time"

	"github.com/facegate/facegate/internal/domain/access"
)

// Subject is an enrolled person the recognizer can identify.
type Subject struct {
	// ID is the recognizer label assigned at enrollment.
	ID access.Identity
	// Name is the display name shown on the actuator.
	Name string
	// Position is an optional free-form role description.
	Position string
	// CreatedAt is when the subject was enrolled.
	CreatedAt time.Time
}

// Rule is one weekly time window during which a subject may enter.
// Days run 0=Monday through 6=Sunday; the window is inclusive on both ends.
type Rule struct {
	// SubjectID is the subject the rule belongs to.
	SubjectID access.Identity
	// DayOfWeek is the day the rule applies to (0=Monday .. 6=Sunday).
	DayOfWeek int
	// StartMinute is the window start, in minutes since midnight.
	StartMinute int
	// EndMinute is the window end, in minutes since midnight, inclusive.
	EndMinute int
}

// Event is one audit record of an access decision.
type Event struct {
	// ID is a unique event identifier.
	ID string
	// SubjectID is the stabilized identity, or Unknown.
	SubjectID access.Identity
	// SubjectName is the resolved display name, when available.
	SubjectName string
	// Granted reports the decision outcome.
	Granted bool
	// Reason explains a denial. Empty on a grant.
	Reason string
	// OccurredAt is when the decision was made.
	OccurredAt time.Time
}

// ErrNotFound is returned when a subject does not exist in the store.
var ErrNotFound = errors.New("subject not found")

// Store answers subject and rule lookups for the evaluator and records
// audit events for every decision.
type Store interface {
	// SubjectByID resolves a subject, returning ErrNotFound when absent.
	SubjectByID(ctx context.Context, id access.Identity) (*Subject, error)
	// RulesFor returns the subject's time windows for one day of week.
	RulesFor(ctx context.Context, id access.Identity, dayOfWeek int) ([]Rule, error)
	// RecordEvent appends one audit record.
	RecordEvent(ctx context.Context, event Event) error
}
