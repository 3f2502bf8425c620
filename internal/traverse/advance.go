package traverse

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"surveynerd/internal/browser"
	"surveynerd/internal/survey"
)

// PageAdvancer tries a bounded, ordered set of continue-affordance heuristics
// and verifies the page actually moved. An unchanged page is a soft failure
// (survey.ErrAdvanceFailed), never a hard error.
type PageAdvancer struct {
	session *browser.Session
	logger  *zap.Logger
}

// NewPageAdvancer builds an advancer over the live session.
func NewPageAdvancer(session *browser.Session, logger *zap.Logger) *PageAdvancer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageAdvancer{session: session, logger: logger}
}

// continueLabels are the affordance texts tried in heuristic two.
var continueLabels = []string{"next", "continue", "submit", "done", "finish", "ok", "→", ">>"}

// Advance implements Advancer.
func (a *PageAdvancer) Advance(ctx context.Context) error {
	page := a.session.Page()
	if page == nil {
		return fmt.Errorf("%w: no page open", survey.ErrAdvanceFailed)
	}

	before, err := a.session.Signature(ctx)
	if err != nil {
		a.logger.Debug("Could not fingerprint page before advance", zap.Error(err))
	}

	heuristics := []struct {
		name string
		fn   func(context.Context, *rod.Page) (bool, error)
	}{
		{"typed_submit", clickTypedSubmit},
		{"labeled_continue", clickLabeledContinue},
		{"sole_actionable", clickSoleActionable},
		{"form_submit", submitForm},
	}

	for _, h := range heuristics {
		acted, err := h.fn(ctx, page)
		if err != nil {
			a.logger.Debug("Advance heuristic errored", zap.String("heuristic", h.name), zap.Error(err))
			continue
		}
		if !acted {
			continue
		}

		_ = a.session.Settle(ctx)
		after, serr := a.session.Signature(ctx)
		if serr == nil && before != "" && after == before {
			a.logger.Debug("Page unchanged after advance", zap.String("heuristic", h.name))
			continue
		}
		a.logger.Debug("Advanced", zap.String("heuristic", h.name))
		return nil
	}

	return fmt.Errorf("%w: no continue affordance moved the page", survey.ErrAdvanceFailed)
}

func clickTypedSubmit(ctx context.Context, page *rod.Page) (bool, error) {
	return clickFirstVisible(ctx, page, "button[type='submit'], input[type='submit']", nil)
}

func clickLabeledContinue(ctx context.Context, page *rod.Page) (bool, error) {
	match := func(text string) bool {
		lowered := strings.ToLower(strings.TrimSpace(text))
		for _, label := range continueLabels {
			if lowered == label || strings.HasPrefix(lowered, label+" ") {
				return true
			}
		}
		return false
	}
	return clickFirstVisible(ctx, page, "button, [role='button'], a.button, input[type='button']", match)
}

// clickSoleActionable fires only when exactly one visible actionable control
// remains; ambiguity means this heuristic stands down.
func clickSoleActionable(ctx context.Context, page *rod.Page) (bool, error) {
	visible, err := visibleOf(ctx, page, "button, [role='button'], input[type='button'], input[type='submit']")
	if err != nil {
		return false, err
	}
	if len(visible) != 1 {
		return false, nil
	}
	if err := visible[0].Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, err
	}
	return true, nil
}

func submitForm(ctx context.Context, page *rod.Page) (bool, error) {
	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: `() => {
			if (document.forms.length === 0) return false;
			const form = document.forms[0];
			if (form.requestSubmit) { form.requestSubmit(); } else { form.submit(); }
			return true;
		}`,
		ByValue: true,
	})
	if err != nil || res == nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func clickFirstVisible(ctx context.Context, page *rod.Page, selector string, match func(string) bool) (bool, error) {
	visible, err := visibleOf(ctx, page, selector)
	if err != nil {
		return false, err
	}
	for _, el := range visible {
		if match != nil {
			text, terr := el.Text()
			if terr != nil || !match(text) {
				continue
			}
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func visibleOf(ctx context.Context, page *rod.Page, selector string) ([]*rod.Element, error) {
	elements, err := page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	out := make([]*rod.Element, 0, len(elements))
	for _, el := range elements {
		if visible, verr := el.Visible(); verr == nil && visible {
			out = append(out, el)
		}
	}
	return out, nil
}
