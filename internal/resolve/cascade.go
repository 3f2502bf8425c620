// Package resolve implements the layered answer cascade: memorized exact
// answer, learned pattern rule, generative-model inference, then a
// widget-specific heuristic. Each stage is cheaper and more certain than the
// next; the cascade always returns a result, never an error.
package resolve

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"surveynerd/internal/learn"
	"surveynerd/internal/perception"
	"surveynerd/internal/survey"
)

// Cascade resolves one question at a time. Resolution is strictly serial; the
// cascade holds no per-question state between calls.
type Cascade struct {
	store   *learn.Store
	matcher *learn.Matcher
	oracle  perception.AnswerOracle
	logger  *zap.Logger
}

// New builds a cascade. The oracle may be nil, in which case stage three is
// skipped and exotic widgets fall straight through to the heuristic stage.
func New(store *learn.Store, matcher *learn.Matcher, oracle perception.AnswerOracle, logger *zap.Logger) *Cascade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cascade{store: store, matcher: matcher, oracle: oracle, logger: logger}
}

// Resolve tries each stage in order and returns the first usable result. A
// failed result is a valid outcome that routes to manual intervention; the
// cascade never panics or returns an error.
func (c *Cascade) Resolve(ctx context.Context, q survey.QuestionContext) survey.ResolutionResult {
	if r, ok := c.exactMatch(q); ok {
		return r
	}
	if r, ok := c.matcher.Match(q); ok {
		return r
	}
	if r, ok := c.infer(ctx, q); ok {
		return r
	}
	if r, ok := HeuristicValue(q); ok {
		return r
	}
	return survey.Failed("no cascade stage produced a usable value")
}

// exactMatch is stage one: a normalized-key lookup against the learned store.
// A hit reinforces the entry before returning it.
func (c *Cascade) exactMatch(q survey.QuestionContext) (survey.ResolutionResult, bool) {
	key := q.NormalizedKey()
	entry, ok := c.store.GetExact(key, q.Family)
	if !ok {
		return survey.ResolutionResult{}, false
	}
	if err := c.store.Reinforce(key); err != nil {
		c.logger.Warn("Reinforce failed", zap.String("key", key), zap.Error(err))
	}
	c.logger.Debug("Exact match hit",
		zap.String("key", key),
		zap.Float64("confidence", entry.Confidence))
	return survey.ResolutionResult{
		Value:      survey.ScalarValue(entry.Answer),
		Confidence: entry.Confidence,
		Source:     survey.SourceExactMatch,
	}, true
}

// refusalPhrases mark a generative reply that declines to answer. A refusal
// is a stage failure, never an answer.
var refusalPhrases = []string{
	"i cannot",
	"i can't",
	"i am unable",
	"i'm unable",
	"as an ai",
	"i don't feel comfortable",
	"i won't answer",
	"cannot provide",
}

// fillerPrefixes are conversational lead-ins stripped off scalar answers.
var fillerPrefixes = []string{
	"answer:",
	"my answer is",
	"i would say",
	"i would choose",
	"i'd say",
	"the answer is",
	"sure,",
	"certainly,",
}

// infer is stage three: delegate to the generative oracle, then post-process
// the reply deterministically.
func (c *Cascade) infer(ctx context.Context, q survey.QuestionContext) (survey.ResolutionResult, bool) {
	if c.oracle == nil {
		return survey.ResolutionResult{}, false
	}

	resp, err := c.oracle.Answer(ctx, perception.AnswerRequest{
		Question:       q.Text,
		Subheading:     q.Subheading,
		Family:         q.Family,
		Options:        q.Options,
		SelectionLimit: q.SelectionLimit,
		GridRows:       q.GridRows,
	})
	if err != nil {
		c.logger.Warn("Answer oracle call failed", zap.Error(err))
		return survey.ResolutionResult{}, false
	}

	value, reason := postprocess(resp, q)
	if reason != "" {
		c.logger.Debug("Generative answer unusable",
			zap.String("question", q.Text),
			zap.String("reason", reason))
		return survey.ResolutionResult{}, false
	}

	confidence := resp.Confidence
	if confidence <= 0 {
		confidence = 0.5
	}
	return survey.ResolutionResult{
		Value:      value,
		Confidence: confidence,
		Source:     survey.SourceModelInference,
	}, true
}

// postprocess cleans a raw oracle reply and coerces it onto the question's
// option vocabulary. A non-empty reason means the reply is unusable.
func postprocess(resp *perception.AnswerResponse, q survey.QuestionContext) (survey.Value, string) {
	value := resp.Value()
	if value.IsEmpty() {
		return survey.Value{}, "empty answer"
	}

	if isRefusal(value.String()) {
		return survey.Value{}, "oracle refused to answer"
	}

	switch value.Kind {
	case survey.KindScalar:
		cleaned := stripFiller(value.Scalar)
		if cleaned == "" {
			return survey.Value{}, "answer was all filler"
		}
		if len(q.Options) > 0 {
			coerced, ok := learn.CoerceToOptions(cleaned, q.Options)
			if !ok {
				return survey.Value{}, "answer matched no option"
			}
			return coerced, ""
		}
		return survey.ScalarValue(cleaned), ""

	case survey.KindList:
		if len(q.Options) == 0 {
			return value, ""
		}
		out := make([]string, 0, len(value.List))
		matched := 0
		for _, item := range value.List {
			coerced, ok := learn.CoerceToOptions(stripFiller(item), q.Options)
			if !ok {
				// Unmatched tokens are substituted at apply time with the
				// designated none-option; keep the raw token for that.
				out = append(out, stripFiller(item))
				continue
			}
			matched++
			out = append(out, coerced.Scalar)
		}
		if matched == 0 {
			return survey.Value{}, "no list item matched an option"
		}
		if q.SelectionLimit > 0 && len(out) > q.SelectionLimit {
			out = out[:q.SelectionLimit]
		}
		return survey.ListValue(out...), ""

	case survey.KindRows:
		return value, ""
	}
	return survey.Value{}, "unrecognized value shape"
}

func isRefusal(answer string) bool {
	lowered := strings.ToLower(answer)
	for _, p := range refusalPhrases {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}

// stripFiller removes conversational prefixes and surrounding quotes.
func stripFiller(answer string) string {
	s := strings.TrimSpace(answer)
	lowered := strings.ToLower(s)
	// Stripping one prefix can expose another, so rescan until nothing strips.
	for stripped := true; stripped; {
		stripped = false
		for _, p := range fillerPrefixes {
			if strings.HasPrefix(lowered, p) {
				s = strings.TrimSpace(s[len(p):])
				lowered = strings.ToLower(s)
				stripped = true
			}
		}
	}
	s = strings.Trim(s, `"'`)
	s = strings.TrimSuffix(s, ".")
	return strings.TrimSpace(s)
}
