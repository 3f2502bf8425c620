// Package learn implements the durable learning layer: memorized exact
// answers, categorized pattern rules, and per-session manual-answer logs.
// The store is the single writer of its backing documents; every mutation
// persists the whole document immediately so a crash mid-session loses at
// most the in-flight question.
package learn

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"surveynerd/internal/survey"
)

const (
	// reinforceStep is the bounded confidence increment applied on each
	// successful exact-match reuse.
	reinforceStep = 0.05

	// confidenceCap keeps reinforced confidence strictly below certainty.
	confidenceCap = 0.99

	// exactMatchThreshold is the minimum stored confidence an entry needs
	// before the cascade will trust it.
	exactMatchThreshold = 0.80
)

// Entry is one memorized exact answer, keyed by normalized question text.
type Entry struct {
	Answer       string               `json:"answer"`
	Family       survey.ElementFamily `json:"element_type"`
	Confidence   float64              `json:"confidence"`
	SuccessCount int                  `json:"success_count"`
	FirstSeen    time.Time            `json:"first_seen"`
	LastUsed     time.Time            `json:"last_used"`
}

// responsesDoc is the on-disk shape of the learned-responses document.
type responsesDoc struct {
	Responses map[string]Entry  `json:"responses"`
	Metadata  map[string]string `json:"metadata"`
}

// patternsDoc is the on-disk shape of the learned-patterns document.
// Candidates mined from manual logs live in the same document but are never
// consulted by the matcher until promoted by hand.
type patternsDoc struct {
	Patterns      map[string][]PatternRule `json:"patterns"`
	CategoryOrder []string                 `json:"category_order,omitempty"`
	Candidates    []Candidate              `json:"candidates,omitempty"`
	Metadata      map[string]string        `json:"metadata"`
}

// Candidate is a repeated manual answer flagged for possible promotion into a
// PatternRule. Promotion is a human decision, never automatic.
type Candidate struct {
	Question  string               `json:"question"`
	Answer    string               `json:"answer"`
	Family    survey.ElementFamily `json:"element_type"`
	Count     int                  `json:"count"`
	SessionID string               `json:"session_id"`
	MinedAt   time.Time            `json:"mined_at"`
}

// Store owns the learned-responses and learned-patterns documents.
type Store struct {
	mu            sync.Mutex
	dir           string
	responses     map[string]Entry
	patterns      map[string][]PatternRule
	categoryOrder []string
	candidates    []Candidate
	logger        *zap.Logger
}

// Open loads (or initializes) the backing documents under dir.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create learning dir: %w", err)
	}

	s := &Store{
		dir:       dir,
		responses: make(map[string]Entry),
		patterns:  make(map[string][]PatternRule),
		logger:    logger,
	}
	if err := s.loadResponses(); err != nil {
		return nil, err
	}
	if err := s.loadPatterns(); err != nil {
		return nil, err
	}
	if len(s.patterns) == 0 {
		s.patterns, s.categoryOrder = defaultPatterns()
		if err := s.persistPatternsLocked(); err != nil {
			return nil, err
		}
	}
	logger.Info("Learning store opened",
		zap.Int("responses", len(s.responses)),
		zap.Int("pattern_categories", len(s.patterns)))
	return s, nil
}

func (s *Store) responsesPath() string { return filepath.Join(s.dir, "learned_responses.json") }
func (s *Store) patternsPath() string  { return filepath.Join(s.dir, "learned_patterns.json") }

func (s *Store) loadResponses() error {
	data, err := os.ReadFile(s.responsesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read responses document: %w", err)
	}
	var doc responsesDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse responses document: %w", err)
	}
	if doc.Responses != nil {
		s.responses = doc.Responses
	}
	return nil
}

func (s *Store) loadPatterns() error {
	data, err := os.ReadFile(s.patternsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read patterns document: %w", err)
	}
	var doc patternsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse patterns document: %w", err)
	}
	if doc.Patterns != nil {
		s.patterns = doc.Patterns
		s.categoryOrder = restoreCategoryOrder(doc.CategoryOrder, doc.Patterns)
	}
	s.candidates = doc.Candidates
	return nil
}

// persistResponsesLocked writes the whole responses document. Caller holds mu.
func (s *Store) persistResponsesLocked() error {
	doc := responsesDoc{
		Responses: s.responses,
		Metadata: map[string]string{
			"updated_at": time.Now().UTC().Format(time.RFC3339),
			"version":    "1",
		},
	}
	return writeDocument(s.responsesPath(), doc)
}

// persistPatternsLocked writes the whole patterns document. Caller holds mu.
func (s *Store) persistPatternsLocked() error {
	doc := patternsDoc{
		Patterns:      s.patterns,
		CategoryOrder: s.categoryOrder,
		Candidates:    s.candidates,
		Metadata: map[string]string{
			"updated_at": time.Now().UTC().Format(time.RFC3339),
			"version":    "1",
		},
	}
	return writeDocument(s.patternsPath(), doc)
}

func writeDocument(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// GetExact looks up a memorized answer. The entry must be long enough to be a
// trustworthy key, carry confidence at or above the exact-match threshold, and
// be family-compatible with the question.
func (s *Store) GetExact(key string, family survey.ElementFamily) (Entry, bool) {
	if !survey.KeyEligible(key) {
		return Entry{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.responses[key]
	if !ok {
		return Entry{}, false
	}
	if entry.Confidence < exactMatchThreshold {
		return Entry{}, false
	}
	if !entry.Family.Compatible(family) {
		return Entry{}, false
	}
	return entry, true
}

// Reinforce bumps an entry's confidence by a bounded step, capped below 1.0,
// increments its success count, and persists. Confidence is monotonically
// non-decreasing under reinforcement.
func (s *Store) Reinforce(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.responses[key]
	if !ok {
		return fmt.Errorf("reinforce unknown key %q", key)
	}
	entry.Confidence = min(entry.Confidence+reinforceStep, confidenceCap)
	entry.SuccessCount++
	entry.LastUsed = time.Now().UTC()
	s.responses[key] = entry
	return s.persistResponsesLocked()
}

// genericDefaults are answers that only make sense in the context they were
// given in. Memorizing them against one phrasing and replaying them against a
// merely similar question produces nonsense, so recordSuccess drops them.
var genericDefaults = map[string]struct{}{
	"none of the above":    {},
	"prefer not to say":    {},
	"prefer not to answer": {},
	"other":                {},
	"not applicable":       {},
	"don't know":           {},
}

// RecordSuccess memorizes a successful automated answer. A no-op for keys
// shorter than the minimum and for known-bad generic defaults.
func (s *Store) RecordSuccess(question, answer string, family survey.ElementFamily, confidence float64) error {
	key := survey.NormalizeKey(question)
	if !survey.KeyEligible(key) {
		return nil
	}
	if _, generic := genericDefaults[survey.NormalizeKey(answer)]; generic {
		s.logger.Debug("Skipping generic default", zap.String("answer", answer))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	entry, ok := s.responses[key]
	if !ok {
		entry = Entry{
			Answer:     answer,
			Family:     family,
			Confidence: confidence,
			FirstSeen:  now,
		}
	} else {
		entry.Answer = answer
		entry.Family = family
		entry.Confidence = min(max(entry.Confidence, confidence), confidenceCap)
	}
	entry.SuccessCount++
	entry.LastUsed = now
	s.responses[key] = entry
	return s.persistResponsesLocked()
}

// Candidates returns the mined pattern-rule candidates awaiting promotion.
func (s *Store) Candidates() []Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Candidate, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// ResponseCount returns the number of memorized entries.
func (s *Store) ResponseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.responses)
}

// Responses returns a copy of the memorized entries keyed by normalized text.
func (s *Store) Responses() map[string]Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Entry, len(s.responses))
	for k, v := range s.responses {
		out[k] = v
	}
	return out
}
