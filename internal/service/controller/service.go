package controller

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/domain/access"
	"github.com/facegate/facegate/internal/logger"
	"github.com/facegate/facegate/internal/protocol"
	"github.com/facegate/facegate/internal/recognizer"
	"github.com/facegate/facegate/internal/repository/credentials"
	"github.com/facegate/facegate/internal/repository/policy"
	"github.com/facegate/facegate/internal/service/evaluator"
)

// Display texts. The actuator is a 16x2 character display; the wording is
// shared with the deployed firmware and must stay byte-identical.
const (
	displayWidth    = 16
	promptNameWidth = 12

	textReady     = "Systeme Pret"
	textWelcome   = "Bienvenue"
	textDenied    = "Acces refuse"
	textPrompt    = "Mot de passe"
	textWrong     = "Incorrect"
	textCancelled = "Annule"
	textTimeout   = "Timeout"
	textShutdown  = "Arret"
)

// Audit reasons for challenge terminations.
const (
	reasonChallengeTimeout   = "challenge timeout"
	reasonChallengeCancelled = "challenge cancelled"
)

// frameRetryDelay paces the loop after a transient feed read failure.
const frameRetryDelay = 100 * time.Millisecond

// idleTickInterval paces timeout checks once the feed is drained.
const idleTickInterval = 100 * time.Millisecond

// service runs the host-side decision pipeline: stabilization, policy
// evaluation, the challenge gate and actuator control.
//
// Concurrency model: the frame loop owns the filter, the cache and the
// deny rate limiter exclusively. The secret collector runs on its own
// goroutine; the only state shared between the two is the challenge
// record, which guards itself.
type service struct {
	// cfg holds the validated settings.
	cfg *config.Config
	// filter debounces per-frame predictions.
	filter *access.StabilityFilter
	// cache deduplicates policy queries per stabilization streak.
	cache access.DecisionCache
	// gate applies the confidence threshold.
	gate recognizer.Gate
	// evaluator answers Grant/Deny for a stabilized identity.
	evaluator *evaluator.Evaluator
	// store records audit events.
	store policy.Store
	// creds verifies challenge secrets.
	creds *credentials.Store
	// sender writes actuator commands.
	sender *protocol.Sender
	// challenge is the record shared with the collector goroutine.
	challenge challenge
	// lastTriggered is the identity whose grant last started a challenge.
	// It keeps one sustained streak from re-prompting every frame.
	lastTriggered access.Identity
	// lastDeniedAt backs the deny notification cooldown.
	lastDeniedAt time.Time
	// now is the clock, injectable in tests.
	now func() time.Time
}

// newService wires the pipeline from its collaborators.
func newService(
	cfg *config.Config,
	store policy.Store,
	creds *credentials.Store,
	sender *protocol.Sender,
) *service {
	s := &service{
		cfg:           cfg,
		filter:        access.NewStabilityFilter(cfg.StabilityFrames),
		gate:          recognizer.Gate{Threshold: cfg.ConfidenceThreshold},
		evaluator:     evaluator.New(store),
		store:         store,
		creds:         creds,
		sender:        sender,
		lastTriggered: access.Unknown,
		now:           time.Now,
	}

	s.challenge.timeout = cfg.PasswordTimeout

	return s
}

// Run drives the pipeline until the context is cancelled or the feed is
// drained. A nil secrets reader disables the collector (challenges can then
// only cancel or time out).
func (s *service) Run(ctx context.Context, source recognizer.Source, secrets io.Reader) error {
	s.sender.Send(ctx, protocol.InitDisplay{Text: textReady})

	if secrets != nil {
		go s.collectSecrets(ctx, secrets)
	}

	for {
		frame, err := source.Next(ctx)

		switch {
		case err == nil:
			s.ProcessFrame(ctx, frame)

			continue
		case errors.Is(err, io.EOF):
			// Feed drained; fall through to serve any pending challenge.
		case ctx.Err() != nil:
			s.shutdown(ctx)

			return nil
		default:
			// Transient feed failure: back off and keep going.
			logger.WarnKV(ctx, "Frame read failed", "error", err)

			select {
			case <-ctx.Done():
				s.shutdown(ctx)

				return nil
			case <-time.After(frameRetryDelay):
			}

			continue
		}

		break
	}

	s.drainChallenge(ctx)
	s.shutdown(ctx)

	return nil
}

// ProcessFrame feeds one recognition frame through the pipeline.
func (s *service) ProcessFrame(ctx context.Context, frame recognizer.Frame) {
	if frame.Empty() {
		// Nobody in view: the streak, the cached decision and the
		// last-trigger marker are all void.
		s.filter.Reset()
		s.cache.Invalidate()
		s.lastTriggered = access.Unknown
		s.checkChallengeTimeout(ctx)

		return
	}

	for _, sample := range frame.Samples {
		s.observe(ctx, sample)
	}

	s.checkChallengeTimeout(ctx)
}

// observe runs one face sample through stabilization and, when a streak is
// established, through the decision path.
func (s *service) observe(ctx context.Context, sample access.Sample) {
	candidate := s.gate.Resolve(sample)

	if event := s.filter.Observe(candidate); event != nil {
		logger.InfoKV(ctx, "Identity stabilized",
			"identity", int(event.Identity), "known", event.Identity.Known())
	}

	stable, ok := s.filter.Stable()
	if !ok {
		return
	}

	if !stable.Known() {
		s.handleUnknown(ctx)
		s.lastTriggered = access.Unknown

		return
	}

	result := s.cache.GetOrQuery(stable, func(id access.Identity) access.PolicyResult {
		return s.evaluate(ctx, id)
	})

	if !result.Granted {
		s.handleDenied(ctx, stable, result)

		return
	}

	if stable == s.lastTriggered {
		return
	}

	if s.challenge.begin(stable, result.SubjectName, s.now()) {
		s.lastTriggered = stable
		s.sender.Send(ctx, protocol.ShowLines{
			Line1: textPrompt,
			Line2: truncate(result.SubjectName, promptNameWidth),
		})
		logger.InfoKV(ctx, "Challenge started", "subject", result.SubjectName)
	}
}

// evaluate queries the policy store once per stabilization streak and
// audits denials immediately. Grants are audited after the challenge.
func (s *service) evaluate(ctx context.Context, id access.Identity) access.PolicyResult {
	result := s.evaluator.Evaluate(ctx, id, s.now())

	logger.InfoKV(ctx, "Policy evaluated",
		"identity", int(id), "granted", result.Granted,
		"subject", result.SubjectName, "reason", result.Reason)

	if !result.Granted {
		s.recordEvent(ctx, id, result.SubjectName, false, result.Reason)
	}

	return result
}

// handleUnknown notifies the actuator of an unrecognized face, rate-limited
// by the configured cooldown.
func (s *service) handleUnknown(ctx context.Context) {
	if !s.denyAllowed() {
		return
	}

	logger.Info(ctx, "Unknown face - access denied")
	s.sender.Send(ctx, protocol.ShowLines{Line1: textDenied})
	s.sender.Send(ctx, protocol.CloseDoor{})
	s.recordEvent(ctx, access.Unknown, "", false, evaluator.ReasonNotRecognized)
}

// handleDenied notifies the actuator of a policy denial for a recognized
// subject, under the same cooldown as unknown faces.
func (s *service) handleDenied(ctx context.Context, id access.Identity, result access.PolicyResult) {
	if !s.denyAllowed() {
		return
	}

	logger.InfoKV(ctx, "Access denied",
		"identity", int(id), "subject", result.SubjectName, "reason", result.Reason)
	s.sender.Send(ctx, protocol.ShowLines{Line1: textDenied, Line2: truncate(result.SubjectName, displayWidth)})
	s.sender.Send(ctx, protocol.CloseDoor{})
}

// denyAllowed enforces the deny notification cooldown.
func (s *service) denyAllowed() bool {
	now := s.now()
	if now.Sub(s.lastDeniedAt) <= s.cfg.UnknownCooldown {
		return false
	}

	s.lastDeniedAt = now

	return true
}

// collectSecrets is the challenge input collector. Reading a credential
// blocks indefinitely, so it runs on its own goroutine and talks to the
// frame loop only through the challenge record.
func (s *service) collectSecrets(ctx context.Context, r io.Reader) {
	ctx = logger.WithName(ctx, "collector")
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		secret := strings.TrimSpace(scanner.Text())
		if secret == "" {
			continue
		}

		s.SubmitSecret(ctx, secret)
	}

	if err := scanner.Err(); err != nil {
		logger.WarnKV(ctx, "Secret input closed", "error", err)
	}
}

// SubmitSecret feeds one collected secret into the challenge gate.
func (s *service) SubmitSecret(ctx context.Context, secret string) {
	outcome, id, subject := s.challenge.submit(secret, s.now(), s.creds.Verify)

	switch outcome {
	case submitIgnored:
		// No pending challenge; the input belongs to nobody.
		logger.Debug(ctx, "Discarding input without a pending challenge")
	case submitSucceeded:
		s.grantAccess(ctx, id, subject)
	case submitWrong:
		logger.InfoKV(ctx, "Wrong credential", "subject", subject)
		s.sender.Send(ctx, protocol.ShowLines{Line1: textPrompt, Line2: textWrong})
	case submitCancelled:
		logger.InfoKV(ctx, "Challenge cancelled", "subject", subject)
		s.sender.Send(ctx, protocol.ShowLines{Line1: textCancelled})
		s.sender.Send(ctx, protocol.ShowLines{Line1: textReady})
		s.recordEvent(ctx, id, subject, false, reasonChallengeCancelled)
	}
}

// grantAccess runs the grant actuation sequence after a verified challenge.
func (s *service) grantAccess(ctx context.Context, id access.Identity, subject string) {
	logger.InfoKV(ctx, "Access granted", "subject", subject)
	s.sender.Send(ctx, protocol.ShowLines{Line1: textWelcome, Line2: truncate(subject, displayWidth)})
	s.sender.Send(ctx, protocol.OpenDoor{Duration: s.cfg.DoorOpenDuration})
	s.recordEvent(ctx, id, subject, true, "")
}

// checkChallengeTimeout expires an overdue challenge. The transition fires
// exactly once; the display returns to ready.
func (s *service) checkChallengeTimeout(ctx context.Context) {
	id, subject, expired := s.challenge.expire(s.now())
	if !expired {
		return
	}

	logger.InfoKV(ctx, "Challenge timed out", "subject", subject)
	s.sender.Send(ctx, protocol.ShowLines{Line1: textTimeout, Line2: textDenied})
	s.sender.Send(ctx, protocol.ShowLines{Line1: textReady})
	s.recordEvent(ctx, id, subject, false, reasonChallengeTimeout)
}

// drainChallenge keeps servicing a pending challenge after the feed ends,
// so a typed secret or the timeout still lands.
func (s *service) drainChallenge(ctx context.Context) {
	ticker := time.NewTicker(idleTickInterval)
	defer ticker.Stop()

	for {
		if _, pending := s.challenge.pending(); !pending {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkChallengeTimeout(ctx)
		}
	}
}

// shutdown sends the courtesy shutdown sequence. Failures are already
// swallowed by the sender.
func (s *service) shutdown(ctx context.Context) {
	if subject, cancelled := s.challenge.cancel(); cancelled {
		logger.InfoKV(ctx, "Cancelling pending challenge on shutdown", "subject", subject)
	}

	s.sender.Send(ctx, protocol.ShowLines{Line1: textShutdown})
	s.sender.Send(ctx, protocol.ClearDisplay{})
}

// recordEvent appends an audit record. A failed audit write never changes
// or blocks the decision.
func (s *service) recordEvent(ctx context.Context, id access.Identity, subject string, granted bool, reason string) {
	err := s.store.RecordEvent(ctx, policy.Event{
		SubjectID:   id,
		SubjectName: subject,
		Granted:     granted,
		Reason:      reason,
		OccurredAt:  s.now(),
	})
	if err != nil {
		logger.ErrorKV(ctx, "Failed to record access event", "error", err)
	}
}

// truncate clips a string to the display width.
func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}

	return s[:width]
}
