package apply

import (
	"context"

	"surveynerd/internal/survey"
)

// carouselStrategy repeatedly invokes the carousel's advance control until
// the target item is visible, selects it, and resolves any secondary choice
// with a fixed default. The advance loop is capped: a carousel that never
// shows the target is a clean failure, not a spin.
func carouselStrategy() *Strategy {
	return &Strategy{
		Family: survey.FamilyCarousel,
		Attempts: []Attempt{
			{Name: "advance_until_visible", Fn: advanceCarousel},
		},
	}
}

// maxCarouselAdvances bounds the advance loop.
const maxCarouselAdvances = 15

const carouselNextSelector = "[class*='carousel'] [class*='next'], [aria-label='Next'], [aria-label='next'], .swiper-button-next, button.next"

func advanceCarousel(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	want, err := scalarOnly(v)
	if err != nil {
		return false, err
	}
	match := matchPartial(want)

	for i := 0; i <= maxCarouselAdvances; i++ {
		ok, err := clickByText(ctx, t.Page, "[class*='carousel'] [class*='item'], [class*='carousel'] li, .swiper-slide", match)
		if err != nil {
			return false, err
		}
		if ok {
			resolveSecondaryChoice(ctx, t)
			return true, nil
		}

		advanced, err := clickFirst(ctx, t, carouselNextSelector)
		if err != nil || !advanced {
			return false, err
		}
	}
	return false, nil
}

// clickFirst clicks the first visible element under selector.
func clickFirst(ctx context.Context, t *Target, selector string) (bool, error) {
	els, err := visibleElements(ctx, t.Page, selector)
	if err != nil || len(els) == 0 {
		return false, err
	}
	if err := click(els[0]); err != nil {
		return false, err
	}
	return true, nil
}

// resolveSecondaryChoice answers the confirm/quantity follow-up some
// carousels pop after a selection, using the first affirmative control. Best
// effort only; the primary selection already succeeded.
func resolveSecondaryChoice(ctx context.Context, t *Target) {
	affirmative := func(text string) bool {
		return matchPartial("yes")(text) || matchPartial("confirm")(text) || matchPartial("select")(text)
	}
	_, _ = clickByText(ctx, t.Page, "button, [role='button']", affirmative)
}
