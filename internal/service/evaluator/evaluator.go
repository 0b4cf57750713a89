package evaluator

import (
	"context"
	"errors"
	"time"

	"github.com/facegate/facegate/internal/domain/access"
	"github.com/facegate/facegate/internal/logger"
	"github.com/facegate/facegate/internal/repository/policy"
)

// Denial reasons. The wording is shared with the enrollment tooling's audit
// views, so it stays stable.
const (
	ReasonNotRecognized   = "not recognized"
	ReasonSubjectNotFound = "subject not found"
	ReasonNoRuleForDay    = "no rule for this day"
	ReasonOutsideHours    = "outside scheduled hours"
	ReasonLookupFailed    = "policy lookup failed"
)

// Evaluator maps a stabilized identity and the current wall clock to an
// access decision. It is a pure function of the policy store state at call
// time and performs no caching of its own.
type Evaluator struct {
	// store answers subject and rule lookups.
	store policy.Store
}

// New creates an evaluator over the given policy store.
func New(store policy.Store) *Evaluator {
	return &Evaluator{
		store: store,
	}
}

// Evaluate decides whether the identity may enter at the given instant.
// Lookup failures degrade to a denial with an explicit reason; the
// evaluator never grants on error.
func (e *Evaluator) Evaluate(ctx context.Context, id access.Identity, now time.Time) access.PolicyResult {
	// The unknown sentinel short-circuits without touching the store.
	if !id.Known() {
		return access.PolicyResult{Reason: ReasonNotRecognized}
	}

	subject, err := e.store.SubjectByID(ctx, id)
	if err != nil {
		if errors.Is(err, policy.ErrNotFound) {
			return access.PolicyResult{Reason: ReasonSubjectNotFound}
		}

		logger.ErrorKV(ctx, "Subject lookup failed", "identity", int(id), "error", err)

		return access.PolicyResult{Reason: ReasonLookupFailed}
	}

	rules, err := e.store.RulesFor(ctx, id, dayOfWeek(now))
	if err != nil {
		logger.ErrorKV(ctx, "Rule lookup failed", "identity", int(id), "error", err)

		return access.PolicyResult{SubjectName: subject.Name, Reason: ReasonLookupFailed}
	}

	if len(rules) == 0 {
		return access.PolicyResult{SubjectName: subject.Name, Reason: ReasonNoRuleForDay}
	}

	minute := now.Hour()*60 + now.Minute()
	for _, rule := range rules {
		// Windows are inclusive on both ends.
		if minute >= rule.StartMinute && minute <= rule.EndMinute {
			return access.PolicyResult{Granted: true, SubjectName: subject.Name}
		}
	}

	return access.PolicyResult{SubjectName: subject.Name, Reason: ReasonOutsideHours}
}

// dayOfWeek converts Go's Sunday-based weekday to the stored convention,
// 0=Monday through 6=Sunday.
func dayOfWeek(now time.Time) int {
	return (int(now.Weekday()) + 6) % 7
}
