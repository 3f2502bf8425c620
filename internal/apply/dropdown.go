package apply

import (
	"context"
	"strings"

	"github.com/go-rod/rod"

	"surveynerd/internal/survey"
)

// dropdownStrategy handles native selects and the styled div-dropdowns
// surveys favor. Native attempt order: value attribute, option label,
// substring-matched option. Non-native: open via click, then select the
// matching visible node.
func dropdownStrategy() *Strategy {
	return &Strategy{
		Family: survey.FamilyDropdown,
		Attempts: []Attempt{
			{Name: "native_value", Fn: selectNativeByValue},
			{Name: "native_label", Fn: selectNativeByLabel},
			{Name: "native_substring", Fn: selectNativeBySubstring},
			{Name: "custom_open_and_pick", Fn: selectCustomDropdown},
		},
	}
}

func firstSelect(ctx context.Context, page *rod.Page) (*rod.Element, bool, error) {
	selects, err := visibleElements(ctx, page, "select")
	if err != nil || len(selects) == 0 {
		return nil, false, err
	}
	return selects[0], true, nil
}

// selectNativeByValue sets the select by option value attribute.
func selectNativeByValue(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	want, err := scalarOnly(v)
	if err != nil {
		return false, err
	}
	sel, ok, err := firstSelect(ctx, t.Page)
	if err != nil || !ok {
		return false, err
	}
	res, err := sel.Eval(`(want) => {
		for (const opt of this.options) {
			if (opt.value === want) {
				this.value = opt.value;
				this.dispatchEvent(new Event("change", { bubbles: true }));
				return true;
			}
		}
		return false;
	}`, want)
	if err != nil || res == nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// selectNativeByLabel selects by exact visible option text.
func selectNativeByLabel(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	want, err := scalarOnly(v)
	if err != nil {
		return false, err
	}
	sel, ok, err := firstSelect(ctx, t.Page)
	if err != nil || !ok {
		return false, err
	}
	if err := sel.Select([]string{want}, true, rod.SelectorTypeText); err != nil {
		return false, err
	}
	return true, nil
}

// selectNativeBySubstring selects the first option whose text contains the
// value case-insensitively.
func selectNativeBySubstring(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	want, err := scalarOnly(v)
	if err != nil {
		return false, err
	}
	sel, ok, err := firstSelect(ctx, t.Page)
	if err != nil || !ok {
		return false, err
	}
	res, err := sel.Eval(`(want) => {
		const lowered = want.toLowerCase();
		for (const opt of this.options) {
			if (opt.text.toLowerCase().includes(lowered)) {
				this.value = opt.value;
				this.dispatchEvent(new Event("change", { bubbles: true }));
				return true;
			}
		}
		return false;
	}`, want)
	if err != nil || res == nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// customDropdownSelector covers styled dropdown triggers.
const customDropdownSelector = "[role='combobox'], [role='listbox'], .dropdown, .select, [aria-haspopup='listbox']"

// selectCustomDropdown opens a styled dropdown and clicks the matching
// visible option node.
func selectCustomDropdown(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	want, err := scalarOnly(v)
	if err != nil {
		return false, err
	}
	triggers, err := visibleElements(ctx, t.Page, customDropdownSelector)
	if err != nil || len(triggers) == 0 {
		return false, err
	}
	if err := click(triggers[0]); err != nil {
		return false, err
	}

	// The option list renders after the open click.
	match := matchPartial(want)
	options, err := visibleElements(ctx, t.Page, "[role='option'], li")
	if err != nil {
		return false, err
	}
	for _, opt := range options {
		text := elementText(opt)
		if strings.TrimSpace(text) == "" {
			continue
		}
		if match(text) {
			if err := click(opt); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}
