package resolve

import (
	"math/rand"
	"strconv"
	"strings"

	"surveynerd/internal/survey"
)

// Stage four: family-specific value heuristics for exotic widgets no earlier
// stage could answer. Rating targets are keyed by the question's semantic
// category and jittered inside a small sub-range so repeated sessions do not
// produce uniform, detectably-robotic answers.

// ratingCategory is the semantic flavor of a rating question.
type ratingCategory string

const (
	categorySatisfaction ratingCategory = "satisfaction"
	categoryLikelihood   ratingCategory = "likelihood"
	categoryFrequency    ratingCategory = "frequency"
	categoryAgreement    ratingCategory = "agreement"
	categoryNeutral      ratingCategory = "neutral"
)

// ratingBand is an inclusive fraction-of-scale range for one category.
type ratingBand struct {
	lo, hi float64
}

// Bands express a mildly positive respondent: satisfied but not gushing,
// likely but not certain.
var ratingBands = map[ratingCategory]ratingBand{
	categorySatisfaction: {0.70, 0.90},
	categoryLikelihood:   {0.60, 0.80},
	categoryFrequency:    {0.40, 0.70},
	categoryAgreement:    {0.60, 0.80},
	categoryNeutral:      {0.50, 0.70},
}

func categorize(text string) ratingCategory {
	lowered := strings.ToLower(text)
	switch {
	case strings.Contains(lowered, "satisf") || strings.Contains(lowered, "happy with"):
		return categorySatisfaction
	case strings.Contains(lowered, "how likely") || strings.Contains(lowered, "recommend"):
		return categoryLikelihood
	case strings.Contains(lowered, "how often") || strings.Contains(lowered, "frequen"):
		return categoryFrequency
	case strings.Contains(lowered, "agree") || strings.Contains(lowered, "disagree"):
		return categoryAgreement
	default:
		return categoryNeutral
	}
}

// ratingTarget picks a one-indexed position on a scale of n points for the
// given category, with randomized jitter inside the category band.
func ratingTarget(category ratingCategory, scale int) int {
	if scale <= 1 {
		return 1
	}
	band := ratingBands[category]
	frac := band.lo + rand.Float64()*(band.hi-band.lo)
	target := int(frac*float64(scale-1)+0.5) + 1
	if target < 1 {
		target = 1
	}
	if target > scale {
		target = scale
	}
	return target
}

// scaleOf infers the point count of a rating widget from its options, falling
// back to conventional sizes per family.
func scaleOf(q survey.QuestionContext) int {
	if n := len(q.Options); n > 1 {
		return n
	}
	switch q.Family {
	case survey.FamilyStar:
		return 5
	case survey.FamilySlider:
		return 100
	default:
		return 10
	}
}

// HeuristicValue produces a fallback value for exotic widget families. It
// reports false for families where guessing would do more harm than skipping
// to manual intervention.
func HeuristicValue(q survey.QuestionContext) (survey.ResolutionResult, bool) {
	switch q.Family {
	case survey.FamilySlider, survey.FamilyStar:
		target := ratingTarget(categorize(q.Text), scaleOf(q))
		return survey.ResolutionResult{
			Value:      survey.ScalarValue(strconv.Itoa(target)),
			Confidence: 0.3,
			Source:     survey.SourceUIPattern,
		}, true

	case survey.FamilyCarousel, survey.FamilyCard:
		// Without options there is nothing to point the widget at.
		if len(q.Options) == 0 {
			return survey.ResolutionResult{}, false
		}
		idx := len(q.Options) / 2
		return survey.ResolutionResult{
			Value:      survey.ScalarValue(q.Options[idx]),
			Confidence: 0.25,
			Source:     survey.SourceUIPattern,
		}, true

	case survey.FamilyGrid:
		if len(q.GridRows) == 0 || len(q.Options) == 0 {
			return survey.ResolutionResult{}, false
		}
		category := categorize(q.Text)
		rows := make(map[string]string, len(q.GridRows))
		for _, row := range q.GridRows {
			rows[row] = q.Options[ratingTarget(category, len(q.Options))-1]
		}
		return survey.ResolutionResult{
			Value:      survey.RowsValue(rows),
			Confidence: 0.25,
			Source:     survey.SourceUIPattern,
		}, true

	default:
		return survey.ResolutionResult{}, false
	}
}
