package apply

import (
	"context"

	"surveynerd/internal/survey"
)

// cardStrategy handles brand/image card pickers. Attempt order: match by
// image alternate text, by a label near the card, then a full-page text scan
// clicking the first visible match.
func cardStrategy() *Strategy {
	return &Strategy{
		Family: survey.FamilyCard,
		Attempts: []Attempt{
			{Name: "image_alt_text", Fn: clickCardByAlt},
			{Name: "nearby_label", Fn: clickCardByLabel},
			{Name: "page_text_scan", Fn: clickCardByPageScan},
		},
	}
}

func clickCardByAlt(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	want, err := scalarOnly(v)
	if err != nil {
		return false, err
	}
	images, err := visibleElements(ctx, t.Page, "img[alt]")
	if err != nil {
		return false, err
	}
	match := matchPartial(want)
	for _, img := range images {
		alt, aerr := img.Attribute("alt")
		if aerr != nil || alt == nil || !match(*alt) {
			continue
		}
		if err := click(img); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

const cardSelector = "[class*='card'], [class*='brand'], [class*='tile'], figure"

func clickCardByLabel(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	want, err := scalarOnly(v)
	if err != nil {
		return false, err
	}
	return clickByText(ctx, t.Page, cardSelector, matchPartial(want))
}

// clickCardByPageScan is the last resort: any visible element on the page
// whose text matches the value.
func clickCardByPageScan(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	want, err := scalarOnly(v)
	if err != nil {
		return false, err
	}
	return clickByText(ctx, t.Page, "div, span, p, a, button", matchExact(want))
}
