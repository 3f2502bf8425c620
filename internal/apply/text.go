package apply

import (
	"context"

	"surveynerd/internal/survey"
)

// textStrategy locates the visible text control, clears it, and writes the
// value. Numeric-semantic fields (age, postcode, year) pass through a format
// guard that truncates prose to its first numeric token or rejects it.
func textStrategy() *Strategy {
	return &Strategy{
		Family: survey.FamilyText,
		Attempts: []Attempt{
			{Name: "visible_text_control", Fn: writeTextControl},
			{Name: "contenteditable", Fn: writeContentEditable},
		},
	}
}

const textControlSelector = "input[type='text'], input[type='number'], input[type='tel'], input[type='email'], input:not([type]), textarea"

func writeTextControl(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	raw, err := scalarOnly(v)
	if err != nil {
		return false, err
	}
	value, ok := guardText(t.Question.Text, raw)
	if !ok {
		return false, nil
	}

	controls, err := visibleElements(ctx, t.Page, textControlSelector)
	if err != nil || len(controls) == 0 {
		return false, err
	}
	if err := clearAndInput(controls[0], value); err != nil {
		return false, err
	}
	return true, nil
}

func writeContentEditable(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	raw, err := scalarOnly(v)
	if err != nil {
		return false, err
	}
	value, ok := guardText(t.Question.Text, raw)
	if !ok {
		return false, nil
	}

	controls, err := visibleElements(ctx, t.Page, "[contenteditable='true']")
	if err != nil || len(controls) == 0 {
		return false, err
	}
	if err := click(controls[0]); err != nil {
		return false, err
	}
	if err := controls[0].Input(value); err != nil {
		return false, err
	}
	return true, nil
}
