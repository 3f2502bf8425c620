// Package traverse runs the survey state machine: classify the page, resolve
// each contained question, apply the value, advance, and loop until
// completion or abort. Resolution is strictly serial; every step observes and
// mutates one shared live page.
package traverse

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"surveynerd/internal/learn"
	"surveynerd/internal/perception"
	"surveynerd/internal/survey"
)

// maxIterations caps the classify-resolve-apply-advance loop. Normal
// termination is a completion page; the cap only defends against a survey
// that loops the traversal forever.
const maxIterations = 200

// Observer produces a classification for the current page, along with the
// raw transcript when one was obtained.
type Observer interface {
	Observe(ctx context.Context) (survey.PageClassification, *perception.Transcript, error)
}

// Resolver produces one resolution per question.
type Resolver interface {
	Resolve(ctx context.Context, q survey.QuestionContext) survey.ResolutionResult
}

// Applicator enters a resolved value into the page.
type Applicator interface {
	Apply(ctx context.Context, q survey.QuestionContext, r survey.ResolutionResult) error
}

// Advancer moves the page to the next step. An unchanged page or a missing
// continue affordance comes back as survey.ErrAdvanceFailed.
type Advancer interface {
	Advance(ctx context.Context) error
}

// Decision is the bounded choice offered when an iteration panics or errors
// at the controller boundary.
type Decision int

const (
	DecisionRetry Decision = iota
	DecisionSkip
	DecisionAbort
)

// Intervener is the human-in-the-loop surface: answering a question the
// cascade could not, nudging a stuck page, and choosing how to handle an
// iteration failure.
type Intervener interface {
	// Answer surfaces the question, blocks for the human signal, and returns
	// the value read back from the now-filled control.
	Answer(ctx context.Context, q survey.QuestionContext, reason string) (string, error)
	// Nudge asks the human to unstick the page (for example click past an
	// affordance the advance heuristics could not find).
	Nudge(ctx context.Context, reason string) error
	// OnError offers the bounded retry / skip-and-mark-failed / abort choice.
	OnError(ctx context.Context, iterationErr error) Decision
}

// ReportSink receives the finished session summary.
type ReportSink interface {
	Save(summary survey.SessionSummary) error
}

// Controller is the survey traversal state machine.
type Controller struct {
	observer   Observer
	resolver   Resolver
	applicator Applicator
	advancer   Advancer
	intervener Intervener
	store      *learn.Store
	sink       ReportSink
	logger     *zap.Logger

	sessionID string
	log       *learn.SessionLog
	outcomes  []survey.Outcome
	points    int
}

// New wires a controller. The learning store is owned here and injected into
// the cascade and strategies by the caller; there are no ambient globals.
func New(observer Observer, resolver Resolver, applicator Applicator, advancer Advancer,
	intervener Intervener, store *learn.Store, sink ReportSink, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	return &Controller{
		observer:   observer,
		resolver:   resolver,
		applicator: applicator,
		advancer:   advancer,
		intervener: intervener,
		store:      store,
		sink:       sink,
		logger:     logger,
		sessionID:  id,
		log:        learn.NewSessionLog(id),
	}
}

// SessionID returns the traversal's session id.
func (c *Controller) SessionID() string { return c.sessionID }

// Run drives the traversal until completion, abort, or the iteration cap.
// Partial session and learning data flush even on abort.
func (c *Controller) Run(ctx context.Context) (survey.SessionSummary, error) {
	started := time.Now()
	c.logger.Info("Traversal starting", zap.String("session", c.sessionID))

	var runErr error
	for iteration := 0; iteration < maxIterations; iteration++ {
		done, err := c.safeIteration(ctx, iteration)
		if err != nil {
			if errors.Is(err, survey.ErrTraversalAborted) {
				runErr = err
				break
			}
			switch c.intervener.OnError(ctx, err) {
			case DecisionRetry:
				continue
			case DecisionSkip:
				c.log.AppendFailed("(iteration)", err.Error())
				if advErr := c.advance(ctx); advErr != nil && errors.Is(advErr, survey.ErrTraversalAborted) {
					runErr = advErr
				}
				if runErr != nil {
					break
				}
				continue
			default:
				runErr = survey.ErrTraversalAborted
			}
		}
		if runErr != nil || done {
			break
		}
	}

	summary := c.finish(started, runErr)
	return summary, runErr
}

// safeIteration runs one loop iteration behind a panic boundary: a panic
// becomes an iteration error offered to the intervener.
func (c *Controller) safeIteration(ctx context.Context, iteration int) (done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("iteration %d panicked: %v", iteration, r)
			c.logger.Error("Iteration panicked", zap.Int("iteration", iteration), zap.Any("panic", r))
		}
	}()
	return c.iterate(ctx, iteration)
}

func (c *Controller) iterate(ctx context.Context, iteration int) (bool, error) {
	classification, transcript, err := c.observer.Observe(ctx)
	if err != nil {
		// Classification never halts the traversal; a safe default
		// substitutes and the page is handled question by question.
		c.logger.Warn("Classification degraded", zap.Error(err))
		classification = survey.Degraded()
	}

	c.logger.Info("Page classified",
		zap.Int("iteration", iteration),
		zap.String("type", string(classification.Type)),
		zap.Int("questions", len(classification.Questions)),
		zap.Float64("confidence", classification.Confidence))

	switch classification.Type {
	case survey.PageCompletion:
		c.points = completionPoints(transcript)
		return true, nil

	case survey.PageTransition:
		return false, c.advance(ctx)

	default:
		if len(classification.Questions) == 0 {
			// Degraded observation with nothing to resolve: try to move on,
			// escalating to a human nudge when the page will not budge.
			return false, c.advance(ctx)
		}
		// A multi-question page resolves and applies every sub-question
		// before the single advance fires.
		for _, q := range classification.Questions {
			if err := c.handleQuestion(ctx, q); err != nil {
				return false, err
			}
		}
		return false, c.advance(ctx)
	}
}

// handleQuestion runs resolve → apply → record for one question, routing
// failures to manual intervention.
func (c *Controller) handleQuestion(ctx context.Context, q survey.QuestionContext) error {
	result := c.resolver.Resolve(ctx, q)
	if !result.Resolved() {
		return c.manual(ctx, q, reasonOf(result, "no cascade stage produced a value"))
	}

	if err := c.applicator.Apply(ctx, q, result); err != nil {
		// A value that resolved but would not enter the page is an
		// application failure, never a learning success.
		c.logger.Warn("Application failed",
			zap.String("question", q.Text),
			zap.Error(err))
		return c.manual(ctx, q, "resolved value could not be applied")
	}

	answer := result.Value.String()
	// An exact-match hit was already reinforced inside the cascade; recording
	// it again would count one reuse twice.
	if result.Source != survey.SourceExactMatch {
		if err := c.store.RecordSuccess(q.Text, answer, q.Family, result.Confidence); err != nil {
			c.logger.Warn("Record success failed", zap.Error(err))
		}
	}
	outcome := survey.Outcome{
		Question:   q.Text,
		Answer:     answer,
		Type:       q.Family,
		Confidence: result.Confidence,
		Automated:  true,
		Time:       time.Now().UTC(),
	}
	c.log.AppendAutomated(outcome)
	c.outcomes = append(c.outcomes, outcome)
	c.logger.Info("Question automated",
		zap.String("question", q.Text),
		zap.String("source", string(result.Source)),
		zap.Float64("confidence", result.Confidence))
	return nil
}

// manual surfaces the question, blocks for the human, records the captured
// answer, and carries on. Abort is the only error that escapes.
func (c *Controller) manual(ctx context.Context, q survey.QuestionContext, reason string) error {
	answer, err := c.intervener.Answer(ctx, q, reason)
	if err != nil {
		if errors.Is(err, survey.ErrTraversalAborted) {
			return err
		}
		c.log.AppendFailed(q.Text, reason+": "+err.Error())
		c.logger.Warn("Manual intervention failed",
			zap.String("question", q.Text),
			zap.Error(err))
		return nil
	}

	if recErr := c.store.RecordManual(c.log, q.Text, answer, q.Family); recErr != nil {
		c.logger.Warn("Record manual failed", zap.Error(recErr))
	}
	c.outcomes = append(c.outcomes, survey.Outcome{
		Question:   q.Text,
		Answer:     answer,
		Type:       q.Family,
		Confidence: 1.0,
		Automated:  false,
		Time:       time.Now().UTC(),
	})
	return nil
}

// advance moves the page forward, escalating a stuck page to a human nudge
// rather than retrying indefinitely.
func (c *Controller) advance(ctx context.Context) error {
	err := c.advancer.Advance(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, survey.ErrAdvanceFailed) {
		return err
	}
	c.logger.Warn("Advance failed, asking for a nudge", zap.Error(err))
	if nerr := c.intervener.Nudge(ctx, err.Error()); nerr != nil {
		return nerr
	}
	return nil
}

// finish flushes the session log, mines manual candidates, and persists the
// summary. Runs on every termination path, abort included.
func (c *Controller) finish(started time.Time, runErr error) survey.SessionSummary {
	failedCount := len(c.log.Failed)
	if reset, err := c.store.FinalizeSession(c.log); err != nil {
		c.logger.Error("Session finalize failed", zap.Error(err))
	} else {
		c.log = reset
	}

	summary := survey.SessionSummary{
		SessionID:   c.sessionID,
		Outcomes:    c.outcomes,
		Duration:    time.Since(started),
		Points:      c.points,
		StartedAt:   started.UTC(),
		CompletedAt: time.Now().UTC(),
	}
	for _, o := range c.outcomes {
		if o.Automated {
			summary.AutomatedCount++
		} else {
			summary.ManualCount++
		}
	}
	summary.FailedCount = failedCount

	if c.sink != nil {
		if err := c.sink.Save(summary); err != nil {
			c.logger.Error("Report save failed", zap.Error(err))
		}
	}

	c.logger.Info("Traversal finished",
		zap.String("session", c.sessionID),
		zap.Int("automated", summary.AutomatedCount),
		zap.Int("manual", summary.ManualCount),
		zap.Int("failed", summary.FailedCount),
		zap.Bool("aborted", errors.Is(runErr, survey.ErrTraversalAborted)))
	return summary
}

func reasonOf(r survey.ResolutionResult, fallback string) string {
	if r.Reason != "" {
		return r.Reason
	}
	return fallback
}

var pointsPattern = regexp.MustCompile(`(\d+)\s*points?`)

// completionPoints pulls the credited points out of the completion page text.
func completionPoints(t *perception.Transcript) int {
	if t == nil {
		return 0
	}
	for _, block := range t.TextBlocks {
		if m := pointsPattern.FindStringSubmatch(block); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}
	return 0
}
