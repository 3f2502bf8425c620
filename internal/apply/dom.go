package apply

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Shared DOM plumbing for the family strategies. Everything here works on the
// single live page through rod; pure matching logic lives in match.go so it
// can be tested without a browser.

// visibleElements returns the visible elements matching a selector.
func visibleElements(ctx context.Context, page *rod.Page, selector string) ([]*rod.Element, error) {
	elements, err := page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	out := make([]*rod.Element, 0, len(elements))
	for _, el := range elements {
		if visible, err := el.Visible(); err == nil && visible {
			out = append(out, el)
		}
	}
	return out, nil
}

// elementText extracts trimmed text, empty on error.
func elementText(el *rod.Element) string {
	text, err := el.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// click issues a left click on the element.
func click(el *rod.Element) error {
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// clickByText clicks the first visible element under selector whose text
// satisfies match. Reports whether anything was clicked.
func clickByText(ctx context.Context, page *rod.Page, selector string, match func(string) bool) (bool, error) {
	elements, err := visibleElements(ctx, page, selector)
	if err != nil {
		return false, err
	}
	for _, el := range elements {
		if match(elementText(el)) {
			if err := click(el); err != nil {
				return false, fmt.Errorf("click element: %w", err)
			}
			return true, nil
		}
	}
	return false, nil
}

// labelSelector covers the element kinds surveys render choice labels with.
const labelSelector = "label, [role='radio'], [role='checkbox'], [role='option'], [role='button'], li, button, span.option, div.option"

// controlSelector covers raw choice controls for the last-resort scan.
const controlSelector = "input[type='radio'], input[type='checkbox']"

// surroundingText pulls the text around a raw control: its own label,
// aria-label, or the parent's text.
func surroundingText(el *rod.Element) string {
	if label, err := el.Attribute("aria-label"); err == nil && label != nil && *label != "" {
		return strings.TrimSpace(*label)
	}
	res, err := el.Eval(`() => {
		const label = this.labels && this.labels.length ? this.labels[0].innerText : "";
		if (label) return label;
		return this.parentElement ? this.parentElement.innerText : "";
	}`)
	if err != nil || res == nil {
		return ""
	}
	return strings.TrimSpace(res.Value.String())
}

// setValueAndNotify writes a value property directly and dispatches the input
// and change events frameworks listen for.
func setValueAndNotify(el *rod.Element, value string) error {
	_, err := el.Eval(`(v) => {
		this.value = v;
		this.dispatchEvent(new Event("input", { bubbles: true }));
		this.dispatchEvent(new Event("change", { bubbles: true }));
	}`, value)
	return err
}

// clearAndInput empties a text control and types the value into it.
func clearAndInput(el *rod.Element, value string) error {
	if _, err := el.Eval(`() => { this.value = ""; }`); err != nil {
		return fmt.Errorf("clear control: %w", err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("type value: %w", err)
	}
	return nil
}

// clickAtProportion clicks inside the element's bounding quad at a horizontal
// fraction of its width, vertically centered. Custom sliders have no value
// property; geometry is the only interface.
func clickAtProportion(page *rod.Page, el *rod.Element, frac float64) error {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	box, err := el.Shape()
	if err != nil || box == nil || len(box.Quads) == 0 {
		return fmt.Errorf("element has no shape: %w", err)
	}
	quad := box.Quads[0]
	left := (quad[0] + quad[6]) / 2
	right := (quad[2] + quad[4]) / 2
	top := (quad[1] + quad[3]) / 2
	bottom := (quad[5] + quad[7]) / 2

	x := left + (right-left)*frac
	y := (top + bottom) / 2

	if err := page.Mouse.MoveTo(proto.Point{X: x, Y: y}); err != nil {
		return fmt.Errorf("move mouse: %w", err)
	}
	if err := page.Mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click at point: %w", err)
	}
	return nil
}
