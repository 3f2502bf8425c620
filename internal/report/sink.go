// Package report persists per-survey outcomes: one row per question plus one
// summary row per session. Consumers are the `report` CLI command and
// whatever panel accounting wants the numbers later.
package report

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"surveynerd/internal/survey"
)

// Sink writes session summaries to SQLite.
type Sink struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// Open opens (or creates) the report database at path.
func Open(path string, logger *zap.Logger) (*Sink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open report db: %w", err)
	}
	s := &Sink{db: db, logger: logger}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		automated_count INTEGER NOT NULL,
		manual_count INTEGER NOT NULL,
		failed_count INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		points INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		element_type TEXT NOT NULL,
		confidence REAL NOT NULL,
		automated INTEGER NOT NULL,
		answered_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_outcomes_session ON outcomes(session_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("ensure report schema: %w", err)
	}
	return nil
}

// Save writes a completed session summary and its outcomes in one
// transaction.
func (s *Sink) Save(summary survey.SessionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin report tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR REPLACE INTO sessions
		(session_id, automated_count, manual_count, failed_count, duration_ms, points, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.SessionID,
		summary.AutomatedCount,
		summary.ManualCount,
		summary.FailedCount,
		summary.Duration.Milliseconds(),
		summary.Points,
		summary.StartedAt,
		summary.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session row: %w", err)
	}

	for _, o := range summary.Outcomes {
		_, err = tx.Exec(`INSERT INTO outcomes
			(session_id, question, answer, element_type, confidence, automated, answered_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			summary.SessionID, o.Question, o.Answer, string(o.Type), o.Confidence, o.Automated, o.Time,
		)
		if err != nil {
			return fmt.Errorf("insert outcome row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report tx: %w", err)
	}
	s.logger.Info("Session summary persisted",
		zap.String("session", summary.SessionID),
		zap.Int("outcomes", len(summary.Outcomes)))
	return nil
}

// Sessions lists stored summaries, newest first, without their outcomes.
func (s *Sink) Sessions(limit int) ([]survey.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT session_id, automated_count, manual_count, failed_count, duration_ms, points, started_at, completed_at
		FROM sessions ORDER BY completed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []survey.SessionSummary
	for rows.Next() {
		var sum survey.SessionSummary
		var durationMs int64
		if err := rows.Scan(&sum.SessionID, &sum.AutomatedCount, &sum.ManualCount, &sum.FailedCount,
			&durationMs, &sum.Points, &sum.StartedAt, &sum.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sum.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Outcomes lists the per-question records for one session.
func (s *Sink) Outcomes(sessionID string) ([]survey.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT question, answer, element_type, confidence, automated, answered_at
		FROM outcomes WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []survey.Outcome
	for rows.Next() {
		var o survey.Outcome
		var family string
		if err := rows.Scan(&o.Question, &o.Answer, &family, &o.Confidence, &o.Automated, &o.Time); err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}
		o.Type = survey.ElementFamily(family)
		out = append(out, o)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Sink) Close() error {
	return s.db.Close()
}
