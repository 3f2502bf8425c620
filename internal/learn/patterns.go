package learn

import (
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"surveynerd/internal/persona"
	"surveynerd/internal/survey"
)

// PatternRule maps trigger phrases to either a fixed response or a named
// response-logic identifier evaluated against the question's options and the
// persona's facts. Within a category, rules are tried in order and the first
// whose trigger appears in the normalized question wins.
type PatternRule struct {
	Patterns      []string `json:"patterns"`
	Response      string   `json:"response,omitempty"`
	ResponseLogic string   `json:"response_logic,omitempty"`
	Confidence    float64  `json:"confidence"`
}

// Matcher matches questions against the store's pattern-rule categories.
type Matcher struct {
	store   *Store
	persona *persona.Store
	logger  *zap.Logger
}

// NewMatcher builds a pattern matcher over a learning store and persona.
func NewMatcher(store *Store, p *persona.Store, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{store: store, persona: p, logger: logger}
}

// Match scans pattern categories in order for a trigger phrase contained in
// the normalized question text. A rule whose response logic cannot produce a
// value for this question (for example an age range list that does not
// enclose the persona's age) does not match; scanning continues.
func (m *Matcher) Match(q survey.QuestionContext) (survey.ResolutionResult, bool) {
	key := q.NormalizedKey()
	if key == "" {
		return survey.ResolutionResult{}, false
	}

	m.store.mu.Lock()
	categories := m.store.categoryOrder
	patterns := m.store.patterns
	m.store.mu.Unlock()

	for _, category := range categories {
		for _, rule := range patterns[category] {
			trigger, hit := firstTrigger(key, rule.Patterns)
			if !hit {
				continue
			}
			value, ok := m.evaluate(rule, q)
			if !ok {
				continue
			}
			m.logger.Debug("Pattern rule matched",
				zap.String("category", category),
				zap.String("trigger", trigger),
				zap.String("answer", value.String()))
			return survey.ResolutionResult{
				Value:      value,
				Confidence: rule.Confidence,
				Source:     survey.SourcePatternMatch,
			}, true
		}
	}
	return survey.ResolutionResult{}, false
}

func firstTrigger(key string, triggers []string) (string, bool) {
	for _, t := range triggers {
		if t != "" && strings.Contains(key, strings.ToLower(t)) {
			return t, true
		}
	}
	return "", false
}

// evaluate produces the rule's value for this question, or false when the
// logic is inapplicable here.
func (m *Matcher) evaluate(rule PatternRule, q survey.QuestionContext) (survey.Value, bool) {
	if rule.Response != "" {
		if v, ok := coerceToOptions(rule.Response, q.Options); ok {
			return v, true
		}
		if len(q.Options) == 0 {
			return survey.ScalarValue(rule.Response), true
		}
		return survey.Value{}, false
	}

	logic := rule.ResponseLogic
	switch {
	case logic == "age_range":
		return m.ageRange(q.Options)
	case logic == "industry_screen":
		return m.industryScreen(q.Options)
	case strings.HasPrefix(logic, "fact:"):
		name := strings.TrimPrefix(logic, "fact:")
		fact, ok := m.persona.Fact(name)
		if !ok {
			return survey.Value{}, false
		}
		if v, hit := coerceToOptions(fact, q.Options); hit {
			return v, true
		}
		if len(q.Options) == 0 {
			return survey.ScalarValue(fact), true
		}
		return survey.Value{}, false
	default:
		m.logger.Warn("Unknown response logic", zap.String("logic", logic))
		return survey.Value{}, false
	}
}

// ageRange selects the first enumerated range that encloses the persona's
// fixed age, honoring the listed option order. Open-ended forms ("65+",
// "Under 18") are understood. No qualifying range means no match.
func (m *Matcher) ageRange(options []string) (survey.Value, bool) {
	age := m.persona.Age()
	if age <= 0 {
		return survey.Value{}, false
	}
	for _, opt := range options {
		lo, hi, ok := parseAgeRange(opt)
		if !ok {
			continue
		}
		if age >= lo && age <= hi {
			return survey.ScalarValue(opt), true
		}
	}
	return survey.Value{}, false
}

// parseAgeRange extracts [lo,hi] from option labels like "18-24", "65+",
// "Under 18", or "18 to 24".
func parseAgeRange(label string) (lo, hi int, ok bool) {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.ReplaceAll(s, "–", "-")
	s = strings.ReplaceAll(s, " to ", "-")

	switch {
	case strings.HasSuffix(s, "+"):
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(s, "+")))
		if err != nil {
			return 0, 0, false
		}
		return n, 200, true
	case strings.HasPrefix(s, "under "):
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(s, "under ")))
		if err != nil {
			return 0, 0, false
		}
		return 0, n - 1, true
	case strings.HasPrefix(s, "over "):
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(s, "over ")))
		if err != nil {
			return 0, 0, false
		}
		return n + 1, 200, true
	}

	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	a, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	b, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return a, b, true
}

// industryScreen selects the persona's own industry when listed, otherwise
// the explicit none-option. Screening questions use the none-option to screen
// respondents out of conflicted panels, so it is the honest default.
func (m *Matcher) industryScreen(options []string) (survey.Value, bool) {
	industry := strings.ToLower(m.persona.Industry())
	var noneOpt string
	for _, opt := range options {
		lowered := strings.ToLower(opt)
		if industry != "" && strings.Contains(lowered, industry) {
			return survey.ScalarValue(opt), true
		}
		if noneOpt == "" && isNoneOption(lowered) {
			noneOpt = opt
		}
	}
	if noneOpt != "" {
		return survey.ScalarValue(noneOpt), true
	}
	return survey.Value{}, false
}

func isNoneOption(lowered string) bool {
	return strings.Contains(lowered, "none of the above") ||
		strings.Contains(lowered, "none of these") ||
		lowered == "none"
}

// coerceToOptions maps a raw answer onto the option vocabulary: exact match
// first, then case-insensitive containment in either direction.
func coerceToOptions(answer string, options []string) (survey.Value, bool) {
	if len(options) == 0 {
		return survey.Value{}, false
	}
	for _, opt := range options {
		if opt == answer {
			return survey.ScalarValue(opt), true
		}
	}
	lowered := strings.ToLower(strings.TrimSpace(answer))
	if lowered == "" {
		return survey.Value{}, false
	}
	for _, opt := range options {
		lopt := strings.ToLower(opt)
		if lopt == lowered || strings.Contains(lopt, lowered) || strings.Contains(lowered, lopt) {
			return survey.ScalarValue(opt), true
		}
	}
	return survey.Value{}, false
}

// CoerceToOptions is the exported form used by the resolution cascade when
// post-processing generative answers.
func CoerceToOptions(answer string, options []string) (survey.Value, bool) {
	return coerceToOptions(answer, options)
}

// restoreCategoryOrder rebuilds the scan order from the persisted document.
// Categories missing from the saved order are appended; a document with no
// saved order falls back to a sorted scan.
func restoreCategoryOrder(saved []string, patterns map[string][]PatternRule) []string {
	if len(saved) == 0 {
		return sortedCategories(patterns)
	}
	out := make([]string, 0, len(patterns))
	seen := make(map[string]bool, len(saved))
	for _, c := range saved {
		if _, ok := patterns[c]; ok && !seen[c] {
			out = append(out, c)
			seen[c] = true
		}
	}
	for _, c := range sortedCategories(patterns) {
		if !seen[c] {
			out = append(out, c)
		}
	}
	return out
}

func sortedCategories(patterns map[string][]PatternRule) []string {
	out := make([]string, 0, len(patterns))
	for c := range patterns {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// defaultPatterns seeds a fresh store with the demographic categories every
// panel asks about. Category order is the scan order.
func defaultPatterns() (map[string][]PatternRule, []string) {
	patterns := map[string][]PatternRule{
		"age": {
			{Patterns: []string{"how old are you", "your age", "age group", "age range", "which age"}, ResponseLogic: "age_range", Confidence: 0.95},
			{Patterns: []string{"year were you born", "date of birth"}, ResponseLogic: "fact:age", Confidence: 0.7},
		},
		"gender": {
			{Patterns: []string{"your gender", "gender do you", "gender identity", "are you male or female"}, ResponseLogic: "fact:gender", Confidence: 0.95},
		},
		"location": {
			{Patterns: []string{"postcode", "postal code", "zip code"}, ResponseLogic: "fact:postcode", Confidence: 0.95},
			{Patterns: []string{"country do you live", "country of residence"}, ResponseLogic: "fact:country", Confidence: 0.9},
		},
		"industry": {
			{Patterns: []string{"industries do you", "industry do you work", "work in any of the following", "employed in any of"}, ResponseLogic: "industry_screen", Confidence: 0.9},
		},
		"employment": {
			{Patterns: []string{"employment status", "currently employed", "working status"}, ResponseLogic: "fact:employment", Confidence: 0.9},
		},
		"education": {
			{Patterns: []string{"highest level of education", "highest qualification"}, ResponseLogic: "fact:education", Confidence: 0.9},
		},
		"income": {
			{Patterns: []string{"household income", "annual income", "personal income"}, ResponseLogic: "fact:income", Confidence: 0.85},
		},
		"household": {
			{Patterns: []string{"people live in your household", "household size"}, ResponseLogic: "fact:household_size", Confidence: 0.85},
		},
	}
	order := []string{"age", "gender", "location", "industry", "employment", "education", "income", "household"}
	return patterns, order
}
