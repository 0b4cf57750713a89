package controller

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/domain/access"
	"github.com/facegate/facegate/internal/protocol"
	"github.com/facegate/facegate/internal/recognizer"
	"github.com/facegate/facegate/internal/repository/credentials"
	"github.com/facegate/facegate/internal/repository/policy"
)

// stubStore is an in-memory policy.Store for pipeline tests.
type stubStore struct {
	// subjects maps identities to enrolled subjects.
	subjects map[access.Identity]*policy.Subject
	// rules maps identities to their weekly windows.
	rules map[access.Identity][]policy.Rule
	// queries counts SubjectByID calls to observe decision caching.
	queries int
	// events collects recorded audit events.
	events []policy.Event
	// eventErr is the error to return from RecordEvent.
	eventErr error
}

func (s *stubStore) SubjectByID(_ context.Context, id access.Identity) (*policy.Subject, error) {
	s.queries++

	subject, ok := s.subjects[id]
	if !ok {
		return nil, policy.ErrNotFound
	}

	return subject, nil
}

func (s *stubStore) RulesFor(_ context.Context, id access.Identity, dayOfWeek int) ([]policy.Rule, error) {
	var out []policy.Rule

	for _, rule := range s.rules[id] {
		if rule.DayOfWeek == dayOfWeek {
			out = append(out, rule)
		}
	}

	return out, nil
}

func (s *stubStore) RecordEvent(_ context.Context, event policy.Event) error {
	if s.eventErr != nil {
		return s.eventErr
	}

	s.events = append(s.events, event)

	return nil
}

// newStubStore enrolls subject 3 ("hassen", weekdays 09:00-17:00) and
// subject 4 ("zied", no rules).
func newStubStore() *stubStore {
	store := &stubStore{
		subjects: map[access.Identity]*policy.Subject{
			3: {ID: 3, Name: "hassen"},
			4: {ID: 4, Name: "zied"},
		},
		rules: map[access.Identity][]policy.Rule{},
	}

	for day := range 5 {
		store.rules[3] = append(store.rules[3], policy.Rule{
			SubjectID:   3,
			DayOfWeek:   day,
			StartMinute: 9 * 60,
			EndMinute:   17 * 60,
		})
	}

	return store
}

// newTestService builds a pipeline around a stub store, a manual clock and
// a buffered actuator. The clock starts on a Wednesday at 10:00.
func newTestService(t *testing.T, store policy.Store) (*service, *bytes.Buffer, *time.Time) {
	t.Helper()

	cfg := &config.Config{
		StabilityFrames:     3,
		ConfidenceThreshold: 70.0,
		DoorOpenDuration:    5 * time.Second,
		UnknownCooldown:     5 * time.Second,
		PasswordTimeout:     10 * time.Second,
		WriteTimeout:        time.Second,
	}

	creds, err := credentials.Load(filepath.Join(t.TempDir(), "passwords.json"))
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	svc := newService(cfg, store, creds, protocol.NewSender(buf, cfg.WriteTimeout))

	now := time.Date(2024, time.January, 3, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return svc, buf, &now
}

// frame wraps one sample into a recognition frame.
func frame(id access.Identity, confidence float64) recognizer.Frame {
	return recognizer.Frame{Samples: []access.Sample{{Identity: id, Confidence: confidence}}}
}

// sentLines returns the commands written so far and clears the buffer.
func sentLines(buf *bytes.Buffer) []string {
	out := strings.TrimRight(buf.String(), "\n")
	buf.Reset()

	if out == "" {
		return nil
	}

	return strings.Split(out, "\n")
}

// TestService_GrantFlow walks a subject through stabilization, the
// challenge prompt and a successful credential.
func TestService_GrantFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStubStore()
	svc, buf, _ := newTestService(t, store)

	// Two matching frames are not enough to stabilize.
	svc.ProcessFrame(ctx, frame(3, 30.0))
	svc.ProcessFrame(ctx, frame(3, 30.0))
	require.Empty(t, sentLines(buf))

	// The third frame stabilizes the identity and starts the challenge.
	svc.ProcessFrame(ctx, frame(3, 30.0))
	require.Equal(t, []string{"LCD:Mot de passe|hassen"}, sentLines(buf))

	// Sustained presence does not re-prompt or re-query the policy.
	svc.ProcessFrame(ctx, frame(3, 30.0))
	svc.ProcessFrame(ctx, frame(3, 30.0))
	require.Empty(t, sentLines(buf))
	require.Equal(t, 1, store.queries)

	// The correct credential opens the door and audits the grant.
	svc.SubmitSecret(ctx, "1234")
	require.Equal(t, []string{"LCD:Bienvenue|hassen", "DOOR:OPEN:5"}, sentLines(buf))

	require.Len(t, store.events, 1)
	require.True(t, store.events[0].Granted)
	require.Equal(t, access.Identity(3), store.events[0].SubjectID)
	require.Equal(t, "hassen", store.events[0].SubjectName)
}

// TestService_WrongThenCorrectSecret verifies a wrong credential re-prompts
// and a later correct one still opens the door.
func TestService_WrongThenCorrectSecret(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, buf, _ := newTestService(t, newStubStore())

	for range 3 {
		svc.ProcessFrame(ctx, frame(3, 30.0))
	}

	buf.Reset()

	svc.SubmitSecret(ctx, "0000")
	require.Equal(t, []string{"LCD:Mot de passe|Incorrect"}, sentLines(buf))

	svc.SubmitSecret(ctx, "1234")
	require.Equal(t, []string{"LCD:Bienvenue|hassen", "DOOR:OPEN:5"}, sentLines(buf))
}

// TestService_ChallengeCancel verifies the cancel sentinel aborts the
// challenge, audits a denial and returns the display to ready.
func TestService_ChallengeCancel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStubStore()
	svc, buf, _ := newTestService(t, store)

	for range 3 {
		svc.ProcessFrame(ctx, frame(3, 30.0))
	}

	buf.Reset()

	svc.SubmitSecret(ctx, "q")
	require.Equal(t, []string{"LCD:Annule|", "LCD:Systeme Pret|"}, sentLines(buf))

	require.Len(t, store.events, 1)
	require.False(t, store.events[0].Granted)
	require.Equal(t, "challenge cancelled", store.events[0].Reason)
}

// TestService_ChallengeTimeout verifies an unanswered challenge expires
// exactly once after the configured window.
func TestService_ChallengeTimeout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStubStore()
	svc, buf, now := newTestService(t, store)

	for range 3 {
		svc.ProcessFrame(ctx, frame(3, 30.0))
	}

	buf.Reset()

	// Still within the window.
	*now = now.Add(9 * time.Second)
	svc.ProcessFrame(ctx, recognizer.Frame{})
	require.Empty(t, sentLines(buf))

	// Past the window.
	*now = now.Add(2 * time.Second)
	svc.ProcessFrame(ctx, recognizer.Frame{})
	require.Equal(t, []string{"LCD:Timeout|Acces refuse", "LCD:Systeme Pret|"}, sentLines(buf))

	require.Len(t, store.events, 1)
	require.Equal(t, "challenge timeout", store.events[0].Reason)

	// The transition never fires a second time.
	*now = now.Add(time.Minute)
	svc.ProcessFrame(ctx, recognizer.Frame{})
	require.Empty(t, sentLines(buf))
	require.Len(t, store.events, 1)

	// A late credential is ignored.
	svc.SubmitSecret(ctx, "1234")
	require.Empty(t, sentLines(buf))
}

// TestService_UnknownCooldown verifies unknown faces trigger one denial
// notification per cooldown window.
func TestService_UnknownCooldown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStubStore()
	svc, buf, now := newTestService(t, store)

	// Confidence at the threshold resolves to the unknown sentinel.
	for range 3 {
		svc.ProcessFrame(ctx, frame(9, 95.0))
	}

	require.Equal(t, []string{"LCD:Acces refuse|", "DOOR:CLOSE"}, sentLines(buf))
	require.Len(t, store.events, 1)
	require.Equal(t, access.Unknown, store.events[0].SubjectID)
	require.Equal(t, "not recognized", store.events[0].Reason)

	// Within the cooldown nothing more is sent.
	svc.ProcessFrame(ctx, frame(9, 95.0))
	require.Empty(t, sentLines(buf))

	// After the cooldown the notification repeats.
	*now = now.Add(6 * time.Second)
	svc.ProcessFrame(ctx, frame(9, 95.0))
	require.Equal(t, []string{"LCD:Acces refuse|", "DOOR:CLOSE"}, sentLines(buf))
	require.Len(t, store.events, 2)
}

// TestService_PolicyDenied verifies a recognized subject without a rule is
// denied, audited once per streak, and rate-limited like unknown faces.
func TestService_PolicyDenied(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStubStore()
	svc, buf, _ := newTestService(t, store)

	for range 3 {
		svc.ProcessFrame(ctx, frame(4, 30.0))
	}

	require.Equal(t, []string{"LCD:Acces refuse|zied", "DOOR:CLOSE"}, sentLines(buf))

	require.Len(t, store.events, 1)
	require.False(t, store.events[0].Granted)
	require.Equal(t, "no rule for this day", store.events[0].Reason)

	// Sustained presence queries the policy only once and stays quiet
	// inside the cooldown.
	svc.ProcessFrame(ctx, frame(4, 30.0))
	svc.ProcessFrame(ctx, frame(4, 30.0))
	require.Equal(t, 1, store.queries)
	require.Len(t, store.events, 1)
	require.Empty(t, sentLines(buf))
}

// TestService_EmptyFrameResetsStreak verifies an empty frame voids a partial
// stabilization streak.
func TestService_EmptyFrameResetsStreak(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, buf, _ := newTestService(t, newStubStore())

	svc.ProcessFrame(ctx, frame(3, 30.0))
	svc.ProcessFrame(ctx, frame(3, 30.0))
	svc.ProcessFrame(ctx, recognizer.Frame{})
	svc.ProcessFrame(ctx, frame(3, 30.0))
	svc.ProcessFrame(ctx, frame(3, 30.0))
	require.Empty(t, sentLines(buf))

	svc.ProcessFrame(ctx, frame(3, 30.0))
	require.Equal(t, []string{"LCD:Mot de passe|hassen"}, sentLines(buf))
}

// TestService_NameTruncation verifies long names are clipped to the display
// widths on the prompt and the welcome lines.
func TestService_NameTruncation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStubStore()
	store.subjects[5] = &policy.Subject{ID: 5, Name: "maximilienne de la tour"}
	store.rules[5] = []policy.Rule{{SubjectID: 5, DayOfWeek: 2, StartMinute: 0, EndMinute: 24*60 - 1}}

	svc, buf, _ := newTestService(t, store)

	for range 3 {
		svc.ProcessFrame(ctx, frame(5, 30.0))
	}

	require.Equal(t, []string{"LCD:Mot de passe|maximilienne"}, sentLines(buf))

	// The welcome line allows the full display width.
	svc.grantAccess(ctx, 5, "maximilienne de la tour")
	require.Equal(t, []string{"LCD:Bienvenue|maximilienne de ", "DOOR:OPEN:5"}, sentLines(buf))
}

// TestService_AuditFailureDoesNotBlock verifies a failing audit store never
// changes the actuation outcome.
func TestService_AuditFailureDoesNotBlock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStubStore()
	store.eventErr = errors.New("disk full")

	svc, buf, _ := newTestService(t, store)

	for range 3 {
		svc.ProcessFrame(ctx, frame(3, 30.0))
	}

	buf.Reset()

	svc.SubmitSecret(ctx, "1234")
	require.Equal(t, []string{"LCD:Bienvenue|hassen", "DOOR:OPEN:5"}, sentLines(buf))
}

// TestService_RunDrainsScriptedFeed runs the whole pipeline over a scripted
// feed and checks the startup and shutdown sequences around the decisions.
func TestService_RunDrainsScriptedFeed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStubStore()
	svc, buf, _ := newTestService(t, store)

	feed := strings.NewReader("9:95\n9:95\n9:95\n")

	require.NoError(t, svc.Run(ctx, recognizer.NewScriptSource(feed), nil))

	require.Equal(t, []string{
		"INIT:Systeme Pret",
		"LCD:Acces refuse|",
		"DOOR:CLOSE",
		"LCD:Arret|",
		"LCD:CLEAR",
	}, sentLines(buf))
}
