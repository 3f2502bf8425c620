package traverse

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-rod/rod"
	"go.uber.org/zap"

	"surveynerd/internal/browser"
	"surveynerd/internal/survey"
)

var (
	promptTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	promptDetailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	promptActionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// TerminalIntervener surfaces unresolved questions on the terminal, blocks
// until the human has acted in the browser, and reads the entered value back
// off the page.
type TerminalIntervener struct {
	session *browser.Session
	in      *bufio.Reader
	out     io.Writer
	logger  *zap.Logger
}

// NewTerminalIntervener builds the terminal manual-intervention surface.
func NewTerminalIntervener(session *browser.Session, in io.Reader, out io.Writer, logger *zap.Logger) *TerminalIntervener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TerminalIntervener{
		session: session,
		in:      bufio.NewReader(in),
		out:     out,
		logger:  logger,
	}
}

// Answer implements Intervener. It blocks for the human signal, then
// re-reads the now-filled control to capture the entered value.
func (t *TerminalIntervener) Answer(ctx context.Context, q survey.QuestionContext, reason string) (string, error) {
	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out, promptTitleStyle.Render("Manual answer needed"))
	fmt.Fprintln(t.out, promptDetailStyle.Render("  question: "+q.Text))
	fmt.Fprintln(t.out, promptDetailStyle.Render("  widget:   "+string(q.Family)))
	fmt.Fprintln(t.out, promptDetailStyle.Render("  reason:   "+reason))
	fmt.Fprintln(t.out, promptActionStyle.Render("Answer it in the browser, then press Enter here (or type 'abort'):"))

	line, err := t.readLine(ctx)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(strings.TrimSpace(line), "abort") {
		return "", survey.ErrTraversalAborted
	}

	value, err := t.readFilledValue(ctx, q.Family)
	if err != nil || value == "" {
		// The control could not be read back; fall back to whatever the
		// human typed at the prompt so the answer is never lost.
		typed := strings.TrimSpace(line)
		if typed == "" {
			return "", fmt.Errorf("could not capture the entered value: %w", err)
		}
		return typed, nil
	}
	return value, nil
}

// Nudge implements Intervener.
func (t *TerminalIntervener) Nudge(ctx context.Context, reason string) error {
	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out, promptTitleStyle.Render("Page is stuck"))
	fmt.Fprintln(t.out, promptDetailStyle.Render("  "+reason))
	fmt.Fprintln(t.out, promptActionStyle.Render("Move the page forward in the browser, then press Enter (or type 'abort'):"))

	line, err := t.readLine(ctx)
	if err != nil {
		return err
	}
	if strings.EqualFold(strings.TrimSpace(line), "abort") {
		return survey.ErrTraversalAborted
	}
	return nil
}

// OnError implements Intervener with the bounded retry / skip / abort choice.
func (t *TerminalIntervener) OnError(ctx context.Context, iterationErr error) Decision {
	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out, promptTitleStyle.Render("Traversal error"))
	fmt.Fprintln(t.out, promptDetailStyle.Render("  "+iterationErr.Error()))
	fmt.Fprintln(t.out, promptActionStyle.Render("[r]etry / [s]kip and mark failed / [a]bort:"))

	line, err := t.readLine(ctx)
	if err != nil {
		return DecisionAbort
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "r", "retry", "":
		return DecisionRetry
	case "s", "skip":
		return DecisionSkip
	default:
		return DecisionAbort
	}
}

// readLine blocks on terminal input while honoring context cancellation.
func (t *TerminalIntervener) readLine(ctx context.Context) (string, error) {
	type lineResult struct {
		line string
		err  error
	}
	ch := make(chan lineResult, 1)
	go func() {
		line, err := t.in.ReadString('\n')
		ch <- lineResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", survey.ErrTraversalAborted
	case res := <-ch:
		if res.err != nil && res.line == "" {
			return "", fmt.Errorf("read manual input: %w", res.err)
		}
		return res.line, nil
	}
}

// readFilledValue captures what the human entered, per widget family.
func (t *TerminalIntervener) readFilledValue(ctx context.Context, family survey.ElementFamily) (string, error) {
	page := t.session.Page()
	if page == nil {
		return "", fmt.Errorf("no page open")
	}

	var js string
	switch family {
	case survey.FamilyRadio, survey.FamilyCheckbox:
		js = `() => {
			const checked = Array.from(document.querySelectorAll("input:checked"));
			return checked.map(el => {
				const label = el.labels && el.labels.length ? el.labels[0].innerText : "";
				return (label || el.value || "").trim();
			}).filter(Boolean).join(", ");
		}`
	case survey.FamilyDropdown:
		js = `() => {
			const sel = document.querySelector("select");
			if (!sel || sel.selectedIndex < 0) return "";
			return sel.options[sel.selectedIndex].text.trim();
		}`
	case survey.FamilySlider:
		js = `() => {
			const el = document.querySelector("input[type='range']");
			return el ? String(el.value) : "";
		}`
	default:
		js = `() => {
			const el = document.querySelector("input[type='text'], input[type='number'], input:not([type]), textarea");
			return el ? el.value.trim() : "";
		}`
	}

	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{JS: js, ByValue: true})
	if err != nil || res == nil {
		return "", fmt.Errorf("read filled control: %w", err)
	}
	return strings.TrimSpace(res.Value.String()), nil
}
