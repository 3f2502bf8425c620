// Package perception wraps the two external oracles the engine depends on:
// the transcription oracle that turns a page snapshot into a structured
// description, and the generative-answer oracle that proposes answers when no
// cheaper stage can. Both are opaque services; malformed output degrades into
// safe defaults instead of propagating as errors.
package perception

import (
	"context"

	"surveynerd/internal/survey"
)

// TranscribedQuestion is one question block in a page transcription.
type TranscribedQuestion struct {
	Text           string   `json:"text"`
	Subheading     string   `json:"subheading,omitempty"`
	ElementType    string   `json:"element_type"`
	ID             string   `json:"id,omitempty"`
	Options        []string `json:"options,omitempty"`
	SelectionLimit int      `json:"selection_limit,omitempty"`
	GridRows       []string `json:"grid_rows,omitempty"`
}

// Transcript is the structured description of one page snapshot.
type Transcript struct {
	PageType       string                `json:"page_type"`
	IsTransition   bool                  `json:"is_transition"`
	IsComplete     bool                  `json:"is_complete"`
	Questions      []TranscribedQuestion `json:"questions"`
	TextBlocks     []string              `json:"text_blocks,omitempty"`
	FillableInputs int                   `json:"fillable_inputs"`
	Confidence     float64               `json:"confidence"`
}

// TranscriptionOracle converts a page snapshot into a Transcript.
type TranscriptionOracle interface {
	Transcribe(ctx context.Context, snapshot []byte) (*Transcript, error)
}

// AnswerRequest carries one question to the generative-answer oracle.
type AnswerRequest struct {
	Question       string               `json:"question"`
	Subheading     string               `json:"subheading,omitempty"`
	Family         survey.ElementFamily `json:"element_type"`
	Options        []string             `json:"options,omitempty"`
	SelectionLimit int                  `json:"selection_limit,omitempty"`
	GridRows       []string             `json:"grid_rows,omitempty"`
}

// AnswerResponse is the oracle's raw proposal before post-processing.
type AnswerResponse struct {
	Answer     string            `json:"answer"`
	Answers    []string          `json:"answers,omitempty"`
	Rows       map[string]string `json:"rows,omitempty"`
	Confidence float64           `json:"confidence"`
	Reasoning  string            `json:"reasoning,omitempty"`
}

// AnswerOracle proposes an answer for one question.
type AnswerOracle interface {
	Answer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error)
}

// QuestionContext converts a transcribed question into the immutable
// observation the cascade works on.
func (q TranscribedQuestion) QuestionContext() survey.QuestionContext {
	return survey.QuestionContext{
		Text:           q.Text,
		Subheading:     q.Subheading,
		Family:         survey.ParseFamily(q.ElementType),
		Options:        q.Options,
		SelectionLimit: q.SelectionLimit,
		GridRows:       q.GridRows,
	}
}
