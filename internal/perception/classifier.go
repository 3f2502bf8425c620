package perception

import (
	"strings"

	"go.uber.org/zap"

	"surveynerd/internal/survey"
)

// completionPhrases strongly signal a finished survey. One hit is enough.
var completionPhrases = []string{
	"thank you for completing",
	"thank you for taking",
	"survey is now complete",
	"you have completed",
	"your responses have been recorded",
	"points have been credited",
	"reward has been added",
	"survey complete",
}

// transitionPhrases signal an interstitial page with nothing to fill in.
var transitionPhrases = []string{
	"please wait",
	"loading next",
	"click next to continue",
	"click continue to proceed",
	"we are now going to show you",
	"the next section",
	"in this section",
	"redirecting you",
}

// Classifier turns a transcript into a PageClassification by fixed heuristic
// order: completion, transition, multi-question, matrix, single question.
type Classifier struct {
	logger *zap.Logger
}

// NewClassifier creates a page classifier.
func NewClassifier(logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{logger: logger}
}

// Classify maps a transcript onto a page classification. A nil or unusable
// transcript degrades to {single_question, no questions, confidence 0} so the
// controller can fall back to per-question handling.
func (c *Classifier) Classify(t *Transcript) survey.PageClassification {
	if t == nil {
		c.logger.Warn("Classifying nil transcript, degrading")
		return survey.Degraded()
	}

	questions := make([]survey.QuestionContext, 0, len(t.Questions))
	for _, q := range t.Questions {
		if strings.TrimSpace(q.Text) == "" {
			continue
		}
		questions = append(questions, q.QuestionContext())
	}

	confidence := t.Confidence
	if confidence <= 0 {
		confidence = 0.5
	}

	if t.IsComplete || containsAny(t.TextBlocks, completionPhrases) {
		return survey.PageClassification{Type: survey.PageCompletion, Confidence: confidence}
	}

	// A question phrased like a transition still has a fillable input; only a
	// page with nothing to fill may classify as a transition.
	if t.FillableInputs == 0 && len(questions) == 0 &&
		(t.IsTransition || containsAny(t.TextBlocks, transitionPhrases)) {
		return survey.PageClassification{Type: survey.PageTransition, Confidence: confidence}
	}

	if len(questions) == 0 {
		c.logger.Debug("Transcript has no question blocks, degrading")
		return survey.Degraded()
	}

	if len(questions) > 1 {
		return survey.PageClassification{
			Type:       survey.PageMultiQuestion,
			Questions:  questions,
			Confidence: confidence,
		}
	}

	if isMatrix(questions[0]) {
		return survey.PageClassification{
			Type:       survey.PageMatrix,
			Questions:  questions,
			Confidence: confidence,
		}
	}

	return survey.PageClassification{
		Type:       survey.PageSingleQuestion,
		Questions:  questions,
		Confidence: confidence,
	}
}

// isMatrix detects the repeated-row, uniform-column structural signal.
func isMatrix(q survey.QuestionContext) bool {
	if q.Family == survey.FamilyGrid {
		return true
	}
	return len(q.GridRows) >= 2 && len(q.Options) >= 2
}

func containsAny(blocks []string, phrases []string) bool {
	for _, block := range blocks {
		lowered := strings.ToLower(block)
		for _, p := range phrases {
			if strings.Contains(lowered, p) {
				return true
			}
		}
	}
	return false
}
