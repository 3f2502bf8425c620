package learn

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"surveynerd/internal/survey"
)

// candidateThreshold is how many times the same manual answer must recur in
// one session before it is flagged as a pattern-rule candidate.
const candidateThreshold = 3

// ManualEntry is one human-supplied answer captured mid-traversal.
type ManualEntry struct {
	Question string               `json:"question"`
	Answer   string               `json:"answer"`
	Family   survey.ElementFamily `json:"element_type"`
	At       time.Time            `json:"at"`
}

// FailureEntry is one question that neither automation nor the human path
// could settle.
type FailureEntry struct {
	Question string    `json:"question"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

// SessionLog accumulates per-session outcomes. Owned by the active traversal
// and handed to the store on each manual capture and at finalization. All
// three lists are append-only.
type SessionLog struct {
	SessionID string           `json:"session_id"`
	StartedAt time.Time        `json:"started_at"`
	Automated []survey.Outcome `json:"automated"`
	Manual    []ManualEntry    `json:"manual"`
	Failed    []FailureEntry   `json:"failed"`
}

// NewSessionLog starts a fresh log for one survey traversal.
func NewSessionLog(sessionID string) *SessionLog {
	return &SessionLog{SessionID: sessionID, StartedAt: time.Now().UTC()}
}

// AppendAutomated records a successfully automated outcome.
func (l *SessionLog) AppendAutomated(o survey.Outcome) {
	l.Automated = append(l.Automated, o)
}

// AppendFailed records a question that ended in the failed list.
func (l *SessionLog) AppendFailed(question, reason string) {
	l.Failed = append(l.Failed, FailureEntry{Question: question, Reason: reason, At: time.Now().UTC()})
}

// RecordManual appends a human-supplied answer to the session log and flushes
// the log to disk immediately. Manual answers are never dropped and never
// promoted directly into the exact-match store; they are only mined into
// pattern-rule candidates at finalization.
func (s *Store) RecordManual(log *SessionLog, question, answer string, family survey.ElementFamily) error {
	log.Manual = append(log.Manual, ManualEntry{
		Question: question,
		Answer:   answer,
		Family:   family,
		At:       time.Now().UTC(),
	})
	s.logger.Info("Manual answer captured",
		zap.String("session", log.SessionID),
		zap.String("question", question))
	return s.flushSession(log)
}

// FinalizeSession flushes the log, mines repeated manual answers into
// pattern-rule candidates, and returns a reset log for the next traversal.
func (s *Store) FinalizeSession(log *SessionLog) (*SessionLog, error) {
	if err := s.flushSession(log); err != nil {
		return nil, err
	}

	mined := mineCandidates(log)
	if len(mined) > 0 {
		s.mu.Lock()
		s.candidates = append(s.candidates, mined...)
		err := s.persistPatternsLocked()
		s.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("persist mined candidates: %w", err)
		}
		s.logger.Info("Mined pattern candidates",
			zap.String("session", log.SessionID),
			zap.Int("count", len(mined)))
	}
	return NewSessionLog(log.SessionID), nil
}

// flushSession writes the session log document whole.
func (s *Store) flushSession(log *SessionLog) error {
	dir := filepath.Join(s.dir, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sessions dir: %w", err)
	}
	return writeDocument(filepath.Join(dir, log.SessionID+".json"), log)
}

// mineCandidates flags manual answers repeated at least candidateThreshold
// times within one session. Each distinct answer yields at most one
// candidate; the human promotes it into a PatternRule by hand.
func mineCandidates(log *SessionLog) []Candidate {
	type bucket struct {
		entry ManualEntry
		count int
	}
	counts := make(map[string]*bucket)
	order := make([]string, 0)
	for _, m := range log.Manual {
		key := survey.NormalizeKey(m.Answer)
		if key == "" {
			continue
		}
		if b, ok := counts[key]; ok {
			b.count++
		} else {
			counts[key] = &bucket{entry: m, count: 1}
			order = append(order, key)
		}
	}

	now := time.Now().UTC()
	var out []Candidate
	for _, key := range order {
		b := counts[key]
		if b.count < candidateThreshold {
			continue
		}
		out = append(out, Candidate{
			Question:  b.entry.Question,
			Answer:    b.entry.Answer,
			Family:    b.entry.Family,
			Count:     b.count,
			SessionID: log.SessionID,
			MinedAt:   now,
		})
	}
	return out
}
