package apply

import (
	"context"
	"strconv"

	"surveynerd/internal/survey"
)

// sliderStrategy handles range inputs. Native sliders get the value set
// directly with a change notification; custom sliders get a pointer click at
// the proportional coordinate inside the track's geometry.
func sliderStrategy() *Strategy {
	return &Strategy{
		Family: survey.FamilySlider,
		Attempts: []Attempt{
			{Name: "native_range", Fn: setNativeSlider},
			{Name: "custom_track_click", Fn: clickCustomSlider},
		},
	}
}

func setNativeSlider(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	want, err := scalarOnly(v)
	if err != nil {
		return false, err
	}
	sliders, err := visibleElements(ctx, t.Page, "input[type='range']")
	if err != nil || len(sliders) == 0 {
		return false, err
	}
	if err := setValueAndNotify(sliders[0], want); err != nil {
		return false, err
	}
	return true, nil
}

const customSliderSelector = "[role='slider'], .slider, .slider-track, .range-track"

func clickCustomSlider(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	want, err := scalarOnly(v)
	if err != nil {
		return false, err
	}
	tracks, err := visibleElements(ctx, t.Page, customSliderSelector)
	if err != nil || len(tracks) == 0 {
		return false, err
	}
	track := tracks[0]

	lo, hi := sliderBounds(track)
	frac, ok := sliderFraction(want, lo, hi)
	if !ok {
		return false, nil
	}
	if err := clickAtProportion(t.Page, track, frac); err != nil {
		return false, err
	}
	return true, nil
}

// sliderBounds reads aria min/max off a custom slider, defaulting to 0-100.
func sliderBounds(track interface {
	Attribute(name string) (*string, error)
}) (float64, float64) {
	lo, hi := 0.0, 100.0
	if v, err := track.Attribute("aria-valuemin"); err == nil && v != nil {
		if f, perr := strconv.ParseFloat(*v, 64); perr == nil {
			lo = f
		}
	}
	if v, err := track.Attribute("aria-valuemax"); err == nil && v != nil {
		if f, perr := strconv.ParseFloat(*v, 64); perr == nil {
			hi = f
		}
	}
	if hi <= lo {
		lo, hi = 0, 100
	}
	return lo, hi
}
