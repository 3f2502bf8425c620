package apply

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"surveynerd/internal/survey"
)

func TestRegistry_CoversEveryFamily(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	families := []survey.ElementFamily{
		survey.FamilyRadio, survey.FamilyCheckbox, survey.FamilyDropdown,
		survey.FamilyText, survey.FamilySlider, survey.FamilyStar,
		survey.FamilyGrid, survey.FamilyCarousel, survey.FamilyCard,
	}
	for _, f := range families {
		s := r.strategyFor(survey.QuestionContext{Family: f})
		require.NotNil(t, s, "family %s has no strategy", f)
		assert.NotEmpty(t, s.Attempts, "family %s has no attempts", f)
	}
}

func TestRegistry_UnknownFamilyFallback(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	t.Run("options route to single-choice", func(t *testing.T) {
		s := r.strategyFor(survey.QuestionContext{
			Family:  survey.FamilyUnknown,
			Options: []string{"Yes", "No"},
		})
		require.NotNil(t, s)
		assert.Equal(t, survey.FamilyRadio, s.Family)
	})

	t.Run("no options route to free text", func(t *testing.T) {
		s := r.strategyFor(survey.QuestionContext{Family: survey.FamilyUnknown})
		require.NotNil(t, s)
		assert.Equal(t, survey.FamilyText, s.Family)
	})
}

func TestRegistry_FirstSuccessWins(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	var ran []string
	r.Register(&Strategy{
		Family: survey.FamilyRadio,
		Attempts: []Attempt{
			{Name: "errors_out", Fn: func(ctx context.Context, tg *Target, v survey.Value) (bool, error) {
				ran = append(ran, "errors_out")
				return false, errors.New("boom")
			}},
			{Name: "succeeds", Fn: func(ctx context.Context, tg *Target, v survey.Value) (bool, error) {
				ran = append(ran, "succeeds")
				return true, nil
			}},
			{Name: "never_reached", Fn: func(ctx context.Context, tg *Target, v survey.Value) (bool, error) {
				ran = append(ran, "never_reached")
				return true, nil
			}},
		},
	})

	q := survey.QuestionContext{Text: "Pick one", Family: survey.FamilyRadio, Options: []string{"A"}}
	err := r.Apply(context.Background(), nil, q, survey.ResolutionResult{Value: survey.ScalarValue("A")})
	require.NoError(t, err)
	assert.Equal(t, []string{"errors_out", "succeeds"}, ran, "errors are diagnostic, success stops the chain")
}

func TestRegistry_AllAttemptsFail(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(&Strategy{
		Family: survey.FamilyRadio,
		Attempts: []Attempt{
			{Name: "first", Fn: func(ctx context.Context, tg *Target, v survey.Value) (bool, error) { return false, nil }},
			{Name: "second", Fn: func(ctx context.Context, tg *Target, v survey.Value) (bool, error) { return false, nil }},
		},
	})

	q := survey.QuestionContext{Text: "Pick one", Family: survey.FamilyRadio}
	err := r.Apply(context.Background(), nil, q, survey.ResolutionResult{Value: survey.ScalarValue("A")})
	require.Error(t, err)
	assert.ErrorIs(t, err, survey.ErrApplicationFailed)

	var applyErr *survey.ApplyError
	require.ErrorAs(t, err, &applyErr)
	assert.Equal(t, []string{"first", "second"}, applyErr.Attempts)
}

func TestScalarOnly(t *testing.T) {
	_, err := scalarOnly(survey.ListValue("a", "b"))
	assert.Error(t, err)

	s, err := scalarOnly(survey.ScalarValue("A"))
	require.NoError(t, err)
	assert.Equal(t, "A", s)
}
