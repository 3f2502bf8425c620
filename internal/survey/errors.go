package survey

import (
	"errors"
	"fmt"
)

// Error taxonomy for the traversal controller. Each class has a fixed routing
// rule: degraded classification substitutes a safe default, resolution and
// application failures route to manual intervention, advance failures escalate
// to a manual nudge, and only an abort terminates immediately.

// ErrClassificationDegraded marks transcription-oracle failure or malformed
// output. Never halts the traversal.
var ErrClassificationDegraded = errors.New("classification degraded")

// ErrResolutionFailed marks a question no cascade stage could answer.
var ErrResolutionFailed = errors.New("resolution failed")

// ErrApplicationFailed marks a resolved value that could not be mechanically
// entered into the page.
var ErrApplicationFailed = errors.New("application failed")

// ErrAdvanceFailed marks a missing continue affordance or an unchanged page
// after advancing.
var ErrAdvanceFailed = errors.New("advance failed")

// ErrTraversalAborted marks a human-initiated abort. The only
// immediate-terminate path; partial session data still flushes.
var ErrTraversalAborted = errors.New("traversal aborted")

// ApplyError wraps an application failure with the widget family and the
// attempts that were tried.
type ApplyError struct {
	Family   ElementFamily
	Question string
	Attempts []string
	Err      error
}

func (e *ApplyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("apply %s %q: %v", e.Family, e.Question, e.Err)
	}
	return fmt.Sprintf("apply %s %q: no attempt succeeded (tried %d)", e.Family, e.Question, len(e.Attempts))
}

func (e *ApplyError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrApplicationFailed
}
