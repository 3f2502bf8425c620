package perception

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"surveynerd/internal/survey"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(zap.NewNop())

	question := TranscribedQuestion{
		Text:        "How satisfied are you with your current provider?",
		ElementType: "radio",
		Options:     []string{"Very satisfied", "Satisfied", "Dissatisfied"},
	}

	tests := []struct {
		name       string
		transcript *Transcript
		wantType   survey.PageType
		wantCount  int
	}{
		{
			name:       "nil transcript degrades",
			transcript: nil,
			wantType:   survey.PageSingleQuestion,
		},
		{
			name: "completion flag",
			transcript: &Transcript{
				IsComplete: true,
				Confidence: 0.9,
			},
			wantType: survey.PageCompletion,
		},
		{
			name: "completion phrase in text blocks",
			transcript: &Transcript{
				TextBlocks: []string{"Thank you for completing this survey. 120 points have been credited."},
				Confidence: 0.9,
			},
			wantType: survey.PageCompletion,
		},
		{
			name: "completion wins over a present question",
			transcript: &Transcript{
				IsComplete: true,
				Questions:  []TranscribedQuestion{question},
				Confidence: 0.9,
			},
			wantType: survey.PageCompletion,
		},
		{
			name: "transition with nothing fillable",
			transcript: &Transcript{
				IsTransition: true,
				TextBlocks:   []string{"We are now going to show you some products."},
				Confidence:   0.8,
			},
			wantType: survey.PageTransition,
		},
		{
			name: "transition phrasing with a fillable input is not a transition",
			transcript: &Transcript{
				TextBlocks:     []string{"Click next to continue"},
				FillableInputs: 1,
				Confidence:     0.8,
			},
			wantType: survey.PageSingleQuestion, // degraded: no question blocks either
		},
		{
			name: "single question",
			transcript: &Transcript{
				Questions:  []TranscribedQuestion{question},
				Confidence: 0.9,
			},
			wantType:  survey.PageSingleQuestion,
			wantCount: 1,
		},
		{
			name: "multiple questions",
			transcript: &Transcript{
				Questions: []TranscribedQuestion{
					question,
					{Text: "What is your postcode where you currently live?", ElementType: "text"},
				},
				Confidence: 0.9,
			},
			wantType:  survey.PageMultiQuestion,
			wantCount: 2,
		},
		{
			name: "matrix by grid structure",
			transcript: &Transcript{
				Questions: []TranscribedQuestion{{
					Text:        "Rate each of the following brands",
					ElementType: "radio",
					Options:     []string{"Poor", "Average", "Good"},
					GridRows:    []string{"Brand A", "Brand B", "Brand C"},
				}},
				Confidence: 0.9,
			},
			wantType:  survey.PageMatrix,
			wantCount: 1,
		},
		{
			name: "blank question texts are dropped",
			transcript: &Transcript{
				Questions:  []TranscribedQuestion{{Text: "   ", ElementType: "radio"}, question},
				Confidence: 0.9,
			},
			wantType:  survey.PageSingleQuestion,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.transcript)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Len(t, got.Questions, tt.wantCount)
		})
	}
}

func TestClassify_Confidence(t *testing.T) {
	c := NewClassifier(zap.NewNop())

	t.Run("nil transcript carries zero confidence", func(t *testing.T) {
		got := c.Classify(nil)
		assert.Zero(t, got.Confidence)
	})

	t.Run("missing confidence defaults to a half", func(t *testing.T) {
		got := c.Classify(&Transcript{IsComplete: true})
		assert.Equal(t, 0.5, got.Confidence)
	})

	t.Run("oracle confidence is preserved", func(t *testing.T) {
		got := c.Classify(&Transcript{IsComplete: true, Confidence: 0.93})
		assert.Equal(t, 0.93, got.Confidence)
	})
}

func TestTranscribedQuestion_QuestionContext(t *testing.T) {
	q := TranscribedQuestion{
		Text:           "Which of these have you purchased in the last month?",
		ElementType:    "multi_choice",
		Options:        []string{"Milk", "Bread"},
		SelectionLimit: 2,
	}
	ctx := q.QuestionContext()
	require.Equal(t, survey.FamilyCheckbox, ctx.Family)
	assert.Equal(t, 2, ctx.SelectionLimit)
	assert.Equal(t, q.Options, ctx.Options)
}
