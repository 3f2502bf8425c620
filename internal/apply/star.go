package apply

import (
	"context"

	"surveynerd/internal/survey"
)

// starStrategy clicks the n-th star control, one-indexed.
func starStrategy() *Strategy {
	return &Strategy{
		Family: survey.FamilyStar,
		Attempts: []Attempt{
			{Name: "nth_star", Fn: clickNthStar},
		},
	}
}

const starSelector = "[class*='star'], [role='radio'][aria-label*='star'], .rating input[type='radio'], .rating label"

func clickNthStar(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	want, err := scalarOnly(v)
	if err != nil {
		return false, err
	}
	stars, err := visibleElements(ctx, t.Page, starSelector)
	if err != nil || len(stars) == 0 {
		return false, err
	}
	n, ok := starIndex(want, len(stars))
	if !ok {
		return false, nil
	}
	if err := click(stars[n-1]); err != nil {
		return false, err
	}
	return true, nil
}
