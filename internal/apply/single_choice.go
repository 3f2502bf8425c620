package apply

import (
	"context"

	"surveynerd/internal/survey"
)

// singleChoiceStrategy handles radio-style questions. Attempt order: exact
// label click, case-insensitive partial-label click, then a scan of raw
// controls with their surrounding text.
func singleChoiceStrategy() *Strategy {
	return &Strategy{
		Family: survey.FamilyRadio,
		Attempts: []Attempt{
			{Name: "exact_label", Fn: clickLabelExact},
			{Name: "partial_label", Fn: clickLabelPartial},
			{Name: "raw_control_scan", Fn: clickRawControl},
		},
	}
}

func clickLabelExact(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	want, err := scalarOnly(v)
	if err != nil {
		return false, err
	}
	return clickByText(ctx, t.Page, labelSelector, matchExact(want))
}

func clickLabelPartial(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	want, err := scalarOnly(v)
	if err != nil {
		return false, err
	}
	return clickByText(ctx, t.Page, labelSelector, matchPartial(want))
}

// clickRawControl falls back to the bare radio/checkbox inputs, matching each
// control's surrounding text against the value.
func clickRawControl(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	want, err := scalarOnly(v)
	if err != nil {
		return false, err
	}
	controls, err := visibleElements(ctx, t.Page, controlSelector)
	if err != nil {
		return false, err
	}
	match := matchPartial(want)
	for _, control := range controls {
		if match(surroundingText(control)) {
			if err := click(control); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}
