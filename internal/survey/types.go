// Package survey defines the domain types shared by the resolution and
// automation pipeline: question observations, page classifications, resolved
// values, and the error taxonomy the traversal controller routes on.
package survey

import (
	"strings"
	"time"
)

// ElementFamily identifies the widget family a question is rendered with.
// Strategies in the apply package register against these values.
type ElementFamily string

const (
	FamilyRadio    ElementFamily = "radio"
	FamilyCheckbox ElementFamily = "checkbox"
	FamilyDropdown ElementFamily = "dropdown"
	FamilyText     ElementFamily = "text"
	FamilySlider   ElementFamily = "slider"
	FamilyStar     ElementFamily = "star"
	FamilyGrid     ElementFamily = "grid"
	FamilyCarousel ElementFamily = "carousel"
	FamilyCard     ElementFamily = "card"
	FamilyUnknown  ElementFamily = "unknown"
)

// ParseFamily maps a transcription oracle element_type string onto a family.
// Unrecognized values collapse to FamilyUnknown, the wildcard family.
func ParseFamily(s string) ElementFamily {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "radio", "single_choice", "single-choice":
		return FamilyRadio
	case "checkbox", "multi_choice", "multi-choice":
		return FamilyCheckbox
	case "dropdown", "select":
		return FamilyDropdown
	case "text", "number", "textarea", "input":
		return FamilyText
	case "slider", "range":
		return FamilySlider
	case "star", "star_rating", "rating":
		return FamilyStar
	case "grid", "matrix":
		return FamilyGrid
	case "carousel":
		return FamilyCarousel
	case "card", "brand_card", "image_card":
		return FamilyCard
	default:
		return FamilyUnknown
	}
}

// Compatible reports whether a stored entry family may serve a question of
// family other. FamilyUnknown matches anything on either side.
func (f ElementFamily) Compatible(other ElementFamily) bool {
	return f == other || f == FamilyUnknown || other == FamilyUnknown
}

// QuestionContext is one observed question. Immutable per observation; the
// pipeline never mutates it after classification.
type QuestionContext struct {
	Text           string        `json:"text"`
	Subheading     string        `json:"subheading,omitempty"`
	Family         ElementFamily `json:"element_type"`
	Options        []string      `json:"options,omitempty"`
	SelectionLimit int           `json:"selection_limit,omitempty"`
	GridRows       []string      `json:"grid_rows,omitempty"`
}

// NormalizedKey returns the lowercased, trimmed question text used for
// exact-match lookup. Keys shorter than MinKeyLength are ineligible.
func (q QuestionContext) NormalizedKey() string {
	return NormalizeKey(q.Text)
}

// MinKeyLength is the minimum normalized key length eligible for the
// exact-match store. Short texts ("Age?", "Gender") collide too easily.
const MinKeyLength = 20

// NormalizeKey lowercases and trims question text into a lookup key.
func NormalizeKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// KeyEligible reports whether a normalized key is long enough to memorize.
func KeyEligible(key string) bool {
	return len(key) >= MinKeyLength
}

// PageType is the classifier's verdict for one observed page.
type PageType string

const (
	PageSingleQuestion PageType = "single_question"
	PageMultiQuestion  PageType = "multi_question"
	PageTransition     PageType = "transition"
	PageCompletion     PageType = "completion"
	PageMatrix         PageType = "matrix"
)

// PageClassification is the classifier output for one page observation.
type PageClassification struct {
	Type       PageType          `json:"type"`
	Questions  []QuestionContext `json:"questions"`
	Confidence float64           `json:"confidence"`
}

// Degraded is the safe classification substituted when the transcription
// oracle fails or returns malformed output. The controller falls back to
// per-question handling instead of erroring.
func Degraded() PageClassification {
	return PageClassification{Type: PageSingleQuestion, Confidence: 0}
}

// Source records which cascade stage produced a resolution.
type Source string

const (
	SourceExactMatch     Source = "exact_match"
	SourcePatternMatch   Source = "pattern_match"
	SourceModelInference Source = "model_inference"
	SourceUIPattern      Source = "ui_pattern"
	SourceManual         Source = "manual"
	SourceFailed         Source = "failed"
)

// ValueKind discriminates the three resolved value shapes.
type ValueKind int

const (
	KindScalar ValueKind = iota
	KindList
	KindRows
)

// Value is a resolved answer: a scalar string, a list of option labels, or a
// map keyed by grid-row label.
type Value struct {
	Kind   ValueKind         `json:"kind"`
	Scalar string            `json:"scalar,omitempty"`
	List   []string          `json:"list,omitempty"`
	Rows   map[string]string `json:"rows,omitempty"`
}

// ScalarValue wraps a single string answer.
func ScalarValue(s string) Value { return Value{Kind: KindScalar, Scalar: s} }

// ListValue wraps a multi-select answer.
func ListValue(items ...string) Value { return Value{Kind: KindList, List: items} }

// RowsValue wraps a grid answer keyed by row label.
func RowsValue(rows map[string]string) Value { return Value{Kind: KindRows, Rows: rows} }

// String flattens the value for logging and free-text entry.
func (v Value) String() string {
	switch v.Kind {
	case KindList:
		return strings.Join(v.List, ", ")
	case KindRows:
		parts := make([]string, 0, len(v.Rows))
		for row, col := range v.Rows {
			parts = append(parts, row+"="+col)
		}
		return strings.Join(parts, ", ")
	default:
		return v.Scalar
	}
}

// IsEmpty reports whether the value carries no answer at all.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindList:
		return len(v.List) == 0
	case KindRows:
		return len(v.Rows) == 0
	default:
		return strings.TrimSpace(v.Scalar) == ""
	}
}

// ResolutionResult is the cascade output for one question. Always populated:
// a failed resolution is a valid result with Source == SourceFailed, never a
// nil or an error.
type ResolutionResult struct {
	Value      Value   `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
	Reason     string  `json:"reason,omitempty"`
}

// Failed builds the canonical failure result.
func Failed(reason string) ResolutionResult {
	return ResolutionResult{Source: SourceFailed, Reason: reason}
}

// Resolved reports whether the result carries a usable value.
func (r ResolutionResult) Resolved() bool {
	return r.Source != SourceFailed && !r.Value.IsEmpty()
}

// Outcome is one per-question record emitted to the report sink.
type Outcome struct {
	Question   string        `json:"question"`
	Answer     string        `json:"answer"`
	Type       ElementFamily `json:"type"`
	Confidence float64       `json:"confidence"`
	Automated  bool          `json:"automated"`
	Time       time.Time     `json:"time"`
}

// SessionSummary is the per-survey record handed to the report sink at
// completion or abort.
type SessionSummary struct {
	SessionID      string        `json:"session_id"`
	Outcomes       []Outcome     `json:"outcomes"`
	AutomatedCount int           `json:"automated_count"`
	ManualCount    int           `json:"manual_count"`
	FailedCount    int           `json:"failed_count"`
	Duration       time.Duration `json:"duration"`
	Points         int           `json:"points"`
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    time.Time     `json:"completed_at"`
}
