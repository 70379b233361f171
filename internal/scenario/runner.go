package scenario

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nbisweden/lega-e2e/internal/models"
	srvErrors "github.com/nbisweden/lega-e2e/pkg/errors"
)

// Journal records finished attempts.
type Journal interface {
	Save(ctx context.Context, a *models.Attempt) error
}

// Result is the outcome of one scenario run.
type Result struct {
	ID       string
	StableID string
	Expected []models.IngestionStatus
	// Observed is the status the verdict is based on: the record read back
	// when the scenario reads one, the polled status otherwise.
	Observed models.IngestionStatus
	// Polled is the status the waiter returned.
	Polled  models.IngestionStatus
	Passed  bool
	Skipped bool
	Elapsed time.Duration
	// Err is set when a step failed, e.g. the request could not be published.
	// For a skipped run it holds the reason.
	Err error
}

// Failure returns nil for a passed or skipped run, the step error when one
// failed and a ScenarioFailedError otherwise.
func (r Result) Failure() error {
	if r.Passed || r.Skipped {
		return nil
	}
	if r.Err != nil {
		return r.Err
	}
	expected := make([]string, 0, len(r.Expected))
	for _, st := range r.Expected {
		expected = append(expected, st.String())
	}
	return srvErrors.NewScenarioFailedError(r.ID, expected, r.Observed.String())
}

type RunnerOption func(*Runner)

func WithJournal(j Journal) RunnerOption {
	return func(r *Runner) {
		r.journal = j
	}
}

func WithNow(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// Runner runs scenarios against one deployment. It is safe for concurrent
// use: every run gets its own Context.
type Runner struct {
	deps    Dependencies
	input   Input
	journal Journal
	now     func() time.Time
}

func NewRunner(deps Dependencies, input Input, opts ...RunnerOption) *Runner {
	r := &Runner{
		deps:  deps,
		input: input,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Run(ctx context.Context, s Scenario) Result {
	logger := zap.S().Named("scenario").With("scenario", s.ID)
	sc := newContext(r.input, r.deps)
	start := r.now()

	var stepErr error
	for i, step := range s.Steps {
		if err := step(ctx, sc); err != nil {
			logger.Warnw("step failed", "step", i, "error", err)
			stepErr = err
			break
		}
	}
	for i, step := range s.Cleanup {
		// cleanup runs even after cancellation
		err := step(context.WithoutCancel(ctx), sc)
		switch {
		case err == nil:
		case srvErrors.IsUnsupportedOperationError(err) && srvErrors.IsUnsupportedOperationError(stepErr):
			logger.Debugw("cleanup step not supported", "step", i, "error", err)
		default:
			logger.Errorw("cleanup step failed", "step", i, "error", err)
			if stepErr == nil {
				stepErr = err
			}
		}
	}

	res := Result{
		ID:       s.ID,
		Expected: s.Expected,
		Observed: sc.Observed,
		Polled:   sc.Observed,
		Elapsed:  r.now().Sub(start),
		Err:      stepErr,
	}
	if sc.Request != nil {
		res.StableID = sc.Request.StableID
	}
	// the record read back after settling is authoritative
	if sc.Record != nil {
		res.Observed = sc.Record.Status
		if res.Observed != res.Polled {
			logger.Warnw("record status differs from polled status", "polled", res.Polled, "record", res.Observed)
		}
	}

	if srvErrors.IsUnsupportedOperationError(stepErr) {
		res.Skipped = true
		logger.Warnw("scenario skipped", "reason", stepErr)
		return res
	}
	res.Passed = stepErr == nil && s.Accepts(res.Observed)

	logger.Infow("scenario finished", "observed", res.Observed, "passed", res.Passed, "elapsed", res.Elapsed)
	r.record(ctx, sc, res)
	return res
}

func (r *Runner) record(ctx context.Context, sc *Context, res Result) {
	if r.journal == nil {
		return
	}
	a := &models.Attempt{
		Scenario: res.ID,
		StableID: res.StableID,
		User:     sc.User,
		FileName: sc.FileName,
		Expected: res.Expected,
		Observed: res.Observed,
		Passed:   res.Passed,
		Elapsed:  res.Elapsed,
	}
	if err := res.Failure(); err != nil {
		a.Error = err.Error()
	}
	if err := r.journal.Save(context.WithoutCancel(ctx), a); err != nil {
		zap.S().Named("scenario").Errorw("failed to record attempt", "scenario", res.ID, "error", err)
	}
}
