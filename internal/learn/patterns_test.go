package learn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"surveynerd/internal/persona"
	"surveynerd/internal/survey"
)

func testPersona() *persona.Store {
	return persona.New(persona.Profile{
		Name:       "Alex Reed",
		Age:        45,
		Gender:     "Male",
		Postcode:   "2217",
		Country:    "Australia",
		Industry:   "Construction",
		Employment: "Employed full-time",
		Education:  "Bachelor degree",
		Income:     "$80,000 to $99,999",
		Household:  3,
	})
}

func testMatcher(t *testing.T) *Matcher {
	t.Helper()
	return NewMatcher(newTestStore(t), testPersona(), zap.NewNop())
}

func TestParseAgeRange(t *testing.T) {
	tests := []struct {
		label  string
		lo, hi int
		ok     bool
	}{
		{"18-24", 18, 24, true},
		{"25 - 34", 25, 34, true},
		{"35–44", 35, 44, true}, // en-dash
		{"45 to 54", 45, 54, true},
		{"65+", 65, 200, true},
		{"Under 18", 0, 17, true},
		{"Over 65", 66, 200, true},
		{"Prefer not to say", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			lo, hi, ok := parseAgeRange(tt.label)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.lo, lo)
				assert.Equal(t, tt.hi, hi)
			}
		})
	}
}

func TestMatch_AgeRange(t *testing.T) {
	m := testMatcher(t)

	t.Run("selects the range enclosing the persona age", func(t *testing.T) {
		res, ok := m.Match(survey.QuestionContext{
			Text:    "Which of the following age groups do you belong to?",
			Family:  survey.FamilyRadio,
			Options: []string{"18-24", "25-34", "35-44", "45-54", "55-64", "65+"},
		})
		require.True(t, ok)
		assert.Equal(t, "45-54", res.Value.Scalar)
		assert.Equal(t, survey.SourcePatternMatch, res.Source)
	})

	t.Run("no enclosing range means no match", func(t *testing.T) {
		_, ok := m.Match(survey.QuestionContext{
			Text:    "Which of the following age groups do you belong to?",
			Family:  survey.FamilyRadio,
			Options: []string{"18-24", "25-34"},
		})
		assert.False(t, ok)
	})
}

func TestMatch_IndustryScreen(t *testing.T) {
	m := testMatcher(t)

	t.Run("selects the persona industry when listed", func(t *testing.T) {
		res, ok := m.Match(survey.QuestionContext{
			Text:    "Do you or anyone in your household work in any of the following industries?",
			Family:  survey.FamilyCheckbox,
			Options: []string{"Advertising", "Market research", "Construction", "None of the above"},
		})
		require.True(t, ok)
		assert.Equal(t, "Construction", res.Value.Scalar)
	})

	t.Run("falls back to the none-option", func(t *testing.T) {
		res, ok := m.Match(survey.QuestionContext{
			Text:    "Do you or anyone in your household work in any of the following industries?",
			Family:  survey.FamilyCheckbox,
			Options: []string{"Advertising", "Market research", "Journalism", "None of the above"},
		})
		require.True(t, ok)
		assert.Equal(t, "None of the above", res.Value.Scalar)
	})

	t.Run("no industry and no none-option means no match", func(t *testing.T) {
		_, ok := m.Match(survey.QuestionContext{
			Text:    "Do you or anyone in your household work in any of the following industries?",
			Family:  survey.FamilyCheckbox,
			Options: []string{"Advertising", "Journalism"},
		})
		assert.False(t, ok)
	})
}

func TestMatch_PersonaFacts(t *testing.T) {
	m := testMatcher(t)

	t.Run("gender coerced onto options", func(t *testing.T) {
		res, ok := m.Match(survey.QuestionContext{
			Text:    "Which gender do you identify as?",
			Family:  survey.FamilyRadio,
			Options: []string{"Male", "Female", "Non-binary", "Prefer not to say"},
		})
		require.True(t, ok)
		assert.Equal(t, "Male", res.Value.Scalar)
	})

	t.Run("postcode as free text", func(t *testing.T) {
		res, ok := m.Match(survey.QuestionContext{
			Text:   "What is the postcode where you currently live?",
			Family: survey.FamilyText,
		})
		require.True(t, ok)
		assert.Equal(t, "2217", res.Value.Scalar)
	})

	t.Run("fact present but uncoercible does not match", func(t *testing.T) {
		_, ok := m.Match(survey.QuestionContext{
			Text:    "Which gender do you identify as?",
			Family:  survey.FamilyRadio,
			Options: []string{"Woman", "Agender"},
		})
		assert.False(t, ok)
	})
}

func TestCoerceToOptions(t *testing.T) {
	options := []string{"Employed full-time", "Employed part-time", "Self-employed", "Retired"}

	tests := []struct {
		name   string
		answer string
		want   string
		ok     bool
	}{
		{"exact", "Retired", "Retired", true},
		{"case-insensitive", "retired", "Retired", true},
		{"answer contained in option", "full-time", "Employed full-time", true},
		{"option contained in answer", "Currently Self-employed as a contractor", "Self-employed", true},
		{"no relation", "Astronaut", "", false},
		{"empty answer", "  ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := CoerceToOptions(tt.answer, options)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, v.Scalar)
			}
		})
	}

	t.Run("no options never coerces", func(t *testing.T) {
		_, ok := CoerceToOptions("anything", nil)
		assert.False(t, ok)
	})
}
