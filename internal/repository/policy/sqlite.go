package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	// Pure-Go SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/facegate/facegate/internal/domain/access"
)

// schema is applied at open. Timestamps are stored as milliseconds since
// the Unix epoch, booleans as 0/1.
const schema = `
CREATE TABLE IF NOT EXISTS subjects (
  id            INTEGER PRIMARY KEY,
  name          TEXT NOT NULL,
  position      TEXT NOT NULL DEFAULT '',
  created_at_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS access_rules (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  subject_id   INTEGER NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  day_of_week  INTEGER NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
  start_minute INTEGER NOT NULL,
  end_minute   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_access_rules_subject_day
  ON access_rules(subject_id, day_of_week);

CREATE TABLE IF NOT EXISTS access_events (
  event_id       TEXT PRIMARY KEY,
  subject_id     INTEGER,
  subject_name   TEXT NOT NULL DEFAULT '',
  granted        INTEGER NOT NULL,
  reason         TEXT NOT NULL DEFAULT '',
  occurred_at_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_access_events_occurred
  ON access_events(occurred_at_ms);
`

// SQLiteStore is the Store implementation backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the policy database at path and
// ensures the schema exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open policy database: %w", err)
	}

	// SQLite handles one writer at a time; keep the pool at a single
	// connection so busy errors cannot occur between our own queries.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ensure policy schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SubjectByID resolves a subject, returning ErrNotFound when absent.
func (s *SQLiteStore) SubjectByID(ctx context.Context, id access.Identity) (*Subject, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, position, created_at_ms FROM subjects WHERE id = ?;
`, int64(id))

	var (
		subject   Subject
		rawID     int64
		createdMs int64
	)

	if err := row.Scan(&rawID, &subject.Name, &subject.Position, &createdMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("query subject %d: %w", id, err)
	}

	subject.ID = access.Identity(rawID)
	subject.CreatedAt = time.UnixMilli(createdMs).UTC()

	return &subject, nil
}

// RulesFor returns the subject's time windows for one day of week.
func (s *SQLiteStore) RulesFor(ctx context.Context, id access.Identity, dayOfWeek int) ([]Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT subject_id, day_of_week, start_minute, end_minute
FROM access_rules
WHERE subject_id = ? AND day_of_week = ?
ORDER BY start_minute;
`, int64(id), dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("query rules for %d: %w", id, err)
	}
	defer rows.Close()

	var rules []Rule

	for rows.Next() {
		var (
			rule  Rule
			rawID int64
		)

		if err := rows.Scan(&rawID, &rule.DayOfWeek, &rule.StartMinute, &rule.EndMinute); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}

		rule.SubjectID = access.Identity(rawID)
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}

	return rules, nil
}

// RecordEvent appends one audit record. A missing event id is filled with a
// fresh UUID.
func (s *SQLiteStore) RecordEvent(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	var subjectID any
	if event.SubjectID.Known() {
		subjectID = int64(event.SubjectID)
	}

	granted := 0
	if event.Granted {
		granted = 1
	}

	if _, err := s.db.ExecContext(ctx, `
INSERT INTO access_events(event_id, subject_id, subject_name, granted, reason, occurred_at_ms)
VALUES (?, ?, ?, ?, ?, ?);
`,
		event.ID, subjectID, event.SubjectName, granted, event.Reason,
		event.OccurredAt.UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("record access event: %w", err)
	}

	return nil
}

// UpsertSubject creates or updates a subject row.
func (s *SQLiteStore) UpsertSubject(ctx context.Context, subject Subject) error {
	createdAt := subject.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := s.db.ExecContext(ctx, `
INSERT INTO subjects(id, name, position, created_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, position = excluded.position;
`,
		int64(subject.ID), subject.Name, subject.Position, createdAt.UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("upsert subject %d: %w", subject.ID, err)
	}

	return nil
}

// AddRule appends one weekly time window for a subject.
func (s *SQLiteStore) AddRule(ctx context.Context, rule Rule) error {
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO access_rules(subject_id, day_of_week, start_minute, end_minute)
VALUES (?, ?, ?, ?);
`,
		int64(rule.SubjectID), rule.DayOfWeek, rule.StartMinute, rule.EndMinute,
	); err != nil {
		return fmt.Errorf("add rule for %d: %w", rule.SubjectID, err)
	}

	return nil
}
