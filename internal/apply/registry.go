// Package apply mechanically enters resolved values into the live page. Each
// widget family registers a strategy: an ordered list of independent attempt
// heuristics tried until one succeeds. No attempt succeeding is a clean
// failure routed to manual intervention, not an exception. Every attempt
// confines its side effects to the widget it targets.
package apply

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"go.uber.org/zap"

	"surveynerd/internal/survey"
)

// Target bundles what an attempt heuristic may touch: the live page and the
// question observation it is answering.
type Target struct {
	Page     *rod.Page
	Question survey.QuestionContext
}

// Attempt is one independent heuristic. It reports whether it entered the
// value; an error is diagnostic only and does not abort the chain.
type Attempt struct {
	Name string
	Fn   func(ctx context.Context, t *Target, v survey.Value) (bool, error)
}

// Strategy is the ordered attempt list for one widget family.
type Strategy struct {
	Family   survey.ElementFamily
	Attempts []Attempt
}

// Registry dispatches a resolved value to the strategy for its widget family.
type Registry struct {
	strategies map[survey.ElementFamily]*Strategy
	logger     *zap.Logger
}

// NewRegistry builds a registry with every built-in family strategy
// registered.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		strategies: make(map[survey.ElementFamily]*Strategy),
		logger:     logger,
	}
	r.Register(singleChoiceStrategy())
	r.Register(multiChoiceStrategy())
	r.Register(dropdownStrategy())
	r.Register(textStrategy())
	r.Register(sliderStrategy())
	r.Register(starStrategy())
	r.Register(gridStrategy())
	r.Register(carouselStrategy())
	r.Register(cardStrategy())
	return r
}

// Register adds or replaces the strategy for a family.
func (r *Registry) Register(s *Strategy) {
	r.strategies[s.Family] = s
}

// Apply runs the family's attempts in order, first success wins. An unknown
// or wildcard family falls back to the single-choice strategy for option
// questions and the free-text strategy otherwise.
func (r *Registry) Apply(ctx context.Context, page *rod.Page, q survey.QuestionContext, result survey.ResolutionResult) error {
	strategy := r.strategyFor(q)
	if strategy == nil {
		return &survey.ApplyError{Family: q.Family, Question: q.Text}
	}

	target := &Target{Page: page, Question: q}
	tried := make([]string, 0, len(strategy.Attempts))
	for _, attempt := range strategy.Attempts {
		tried = append(tried, attempt.Name)
		ok, err := attempt.Fn(ctx, target, result.Value)
		if err != nil {
			r.logger.Debug("Attempt errored",
				zap.String("family", string(strategy.Family)),
				zap.String("attempt", attempt.Name),
				zap.Error(err))
			continue
		}
		if ok {
			r.logger.Debug("Attempt succeeded",
				zap.String("family", string(strategy.Family)),
				zap.String("attempt", attempt.Name))
			return nil
		}
	}
	return &survey.ApplyError{Family: strategy.Family, Question: q.Text, Attempts: tried}
}

func (r *Registry) strategyFor(q survey.QuestionContext) *Strategy {
	if s, ok := r.strategies[q.Family]; ok {
		return s
	}
	if q.Family == survey.FamilyUnknown {
		if len(q.Options) > 0 {
			return r.strategies[survey.FamilyRadio]
		}
		return r.strategies[survey.FamilyText]
	}
	return nil
}

// scalarOnly guards attempts that only make sense for scalar values.
func scalarOnly(v survey.Value) (string, error) {
	if v.Kind != survey.KindScalar || v.Scalar == "" {
		return "", fmt.Errorf("need scalar value, got kind %d", v.Kind)
	}
	return v.Scalar, nil
}
