package perception

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"surveynerd/internal/survey"
)

// GeminiConfig holds settings for the Gemini-backed oracles.
type GeminiConfig struct {
	APIKey          string        `json:"api_key"`
	TranscribeModel string        `json:"transcribe_model"`
	AnswerModel     string        `json:"answer_model"`
	Timeout         time.Duration `json:"timeout"`
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:          apiKey,
		TranscribeModel: "gemini-2.5-flash",
		AnswerModel:     "gemini-2.5-flash",
		Timeout:         45 * time.Second,
	}
}

// GeminiOracle implements both TranscriptionOracle and AnswerOracle over the
// Gemini API. One client serves both roles; the engine never has more than
// one call in flight per session.
type GeminiOracle struct {
	client *genai.Client
	cfg    GeminiConfig
	logger *zap.Logger
}

// NewGeminiOracle creates the oracle client.
func NewGeminiOracle(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiOracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = "gemini-2.5-flash"
	}
	if cfg.AnswerModel == "" {
		cfg.AnswerModel = cfg.TranscribeModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &GeminiOracle{client: client, cfg: cfg, logger: logger}, nil
}

const transcribePrompt = `You are transcribing a screenshot of one online survey page.
Return ONLY a JSON object with this shape:
{
  "page_type": "question|transition|completion",
  "is_transition": bool,
  "is_complete": bool,
  "questions": [{"text": "...", "subheading": "...", "element_type": "radio|checkbox|dropdown|text|slider|star|grid|carousel|card", "id": "...", "options": ["..."], "selection_limit": 0, "grid_rows": ["..."]}],
  "text_blocks": ["every visible text block, verbatim"],
  "fillable_inputs": <number of inputs a respondent could fill>,
  "confidence": 0.0
}
Transcribe every question block separately. Do not invent options that are not visible.`

// Transcribe sends a page snapshot to the vision model and parses the
// structured description out of its reply.
func (o *GeminiOracle) Transcribe(ctx context.Context, snapshot []byte) (*Transcript, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	parts := []*genai.Part{
		genai.NewPartFromText(transcribePrompt),
		genai.NewPartFromBytes(snapshot, "image/png"),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	start := time.Now()
	resp, err := o.client.Models.GenerateContent(ctx, o.cfg.TranscribeModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("transcription call: %w", err)
	}
	o.logger.Debug("Transcription call finished", zap.Duration("took", time.Since(start)))

	var t Transcript
	if err := json.Unmarshal([]byte(extractJSON(resp.Text())), &t); err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	return &t, nil
}

const answerPromptHeader = `You are answering one survey question as a fixed respondent.
Answer naturally and consistently. Return ONLY a JSON object:
{"answer": "...", "answers": ["..."], "rows": {"row label": "column value"}, "confidence": 0.0, "reasoning": "..."}
Use "answer" for a single value, "answers" when several options must be picked,
"rows" for grid questions. When options are listed, answer with an option verbatim.`

// Answer asks the generative model for one answer proposal.
func (o *GeminiOracle) Answer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	var sb strings.Builder
	sb.WriteString(answerPromptHeader)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(req.Question)
	if req.Subheading != "" {
		sb.WriteString("\nSubheading: ")
		sb.WriteString(req.Subheading)
	}
	sb.WriteString("\nElement type: ")
	sb.WriteString(string(req.Family))
	if len(req.Options) > 0 {
		sb.WriteString("\nOptions:\n")
		for _, opt := range req.Options {
			sb.WriteString("- ")
			sb.WriteString(opt)
			sb.WriteString("\n")
		}
	}
	if req.SelectionLimit > 0 {
		fmt.Fprintf(&sb, "Select at most %d options.\n", req.SelectionLimit)
	}
	if len(req.GridRows) > 0 {
		sb.WriteString("Grid rows:\n")
		for _, row := range req.GridRows {
			sb.WriteString("- ")
			sb.WriteString(row)
			sb.WriteString("\n")
		}
	}

	start := time.Now()
	resp, err := o.client.Models.GenerateContent(ctx, o.cfg.AnswerModel,
		genai.Text(sb.String()),
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		return nil, fmt.Errorf("answer call: %w", err)
	}
	o.logger.Debug("Answer call finished",
		zap.String("family", string(req.Family)),
		zap.Duration("took", time.Since(start)))

	var a AnswerResponse
	if err := json.Unmarshal([]byte(extractJSON(resp.Text())), &a); err != nil {
		// Some models ignore the JSON instruction under pressure. Treat the
		// raw text as the answer rather than failing the whole stage.
		a = AnswerResponse{Answer: strings.TrimSpace(resp.Text()), Confidence: 0.4}
	}
	return &a, nil
}

// extractJSON strips code fences and surrounding prose from a model reply.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

// Value converts the oracle response shapes into a resolution value.
func (a *AnswerResponse) Value() survey.Value {
	switch {
	case len(a.Rows) > 0:
		return survey.RowsValue(a.Rows)
	case len(a.Answers) > 0:
		return survey.ListValue(a.Answers...)
	default:
		return survey.ScalarValue(strings.TrimSpace(a.Answer))
	}
}
