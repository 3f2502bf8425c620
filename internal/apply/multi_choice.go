package apply

import (
	"context"
	"fmt"

	"surveynerd/internal/survey"
)

// multiChoiceStrategy handles checkbox questions. Every list item gets a
// per-item label click; an item with no matching option is substituted once
// with the designated "none of the above" control rather than left empty.
func multiChoiceStrategy() *Strategy {
	return &Strategy{
		Family: survey.FamilyCheckbox,
		Attempts: []Attempt{
			{Name: "per_item_labels", Fn: clickEachItem},
			{Name: "per_item_raw_controls", Fn: clickEachItemRaw},
		},
	}
}

func itemsOf(v survey.Value) ([]string, error) {
	switch v.Kind {
	case survey.KindList:
		if len(v.List) == 0 {
			return nil, fmt.Errorf("empty list value")
		}
		return v.List, nil
	case survey.KindScalar:
		if v.Scalar == "" {
			return nil, fmt.Errorf("empty scalar value")
		}
		return []string{v.Scalar}, nil
	default:
		return nil, fmt.Errorf("multi-choice needs list value")
	}
}

// clickEachItem clicks one label per item, at most one none-substitution.
func clickEachItem(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	items, err := itemsOf(v)
	if err != nil {
		return false, err
	}

	clicked := 0
	noneUsed := false
	for _, item := range items {
		ok, err := clickByText(ctx, t.Page, labelSelector, matchExact(item))
		if err != nil {
			return clicked > 0, err
		}
		if !ok {
			ok, err = clickByText(ctx, t.Page, labelSelector, matchPartial(item))
			if err != nil {
				return clicked > 0, err
			}
		}
		if !ok && !noneUsed {
			// Token absent from the options; check the none-control once
			// instead of silently dropping the item.
			if none, has := noneOption(t.Question.Options); has {
				ok, err = clickByText(ctx, t.Page, labelSelector, matchPartial(none))
				if err != nil {
					return clicked > 0, err
				}
				noneUsed = ok
			}
		}
		if ok {
			clicked++
		}
	}
	return clicked > 0, nil
}

// clickEachItemRaw repeats the per-item pass over bare checkbox controls.
func clickEachItemRaw(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	items, err := itemsOf(v)
	if err != nil {
		return false, err
	}
	controls, err := visibleElements(ctx, t.Page, "input[type='checkbox']")
	if err != nil {
		return false, err
	}

	clicked := 0
	for _, item := range items {
		match := matchPartial(item)
		for _, control := range controls {
			if match(surroundingText(control)) {
				if err := click(control); err != nil {
					continue
				}
				clicked++
				break
			}
		}
	}
	return clicked > 0, nil
}
