package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nbisweden/lega-e2e/internal/models"
	srvErrors "github.com/nbisweden/lega-e2e/pkg/errors"
)

const DefaultSettleDelay = time.Second

// MessagePublisher hands an ingestion request to the broker.
type MessagePublisher interface {
	Publish(ctx context.Context, req models.IngestionRequest) error
}

// StatusQuery reads the current ingestion status of an inbox file.
type StatusQuery interface {
	GetStatus(ctx context.Context, fileName string) (models.IngestionStatus, error)
}

// Clock tells time and sleeps. Sleep returns early with ctx.Err() when ctx
// is done.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type WaiterOption func(*IngestionWaiter)

// WithSettleDelay sets the extra wait after a terminal status is observed.
func WithSettleDelay(d time.Duration) WaiterOption {
	return func(w *IngestionWaiter) {
		w.settleDelay = d
	}
}

// WithArchivedTransient makes the waiter keep polling while the status is
// Archived, since archival can precede the final status update.
func WithArchivedTransient(transient bool) WaiterOption {
	return func(w *IngestionWaiter) {
		w.archivedTransient = transient
	}
}

func WithClock(c Clock) WaiterOption {
	return func(w *IngestionWaiter) {
		w.clock = c
	}
}

// IngestionWaiter publishes an ingestion request and polls the status source
// until the status is terminal or the time budget is spent.
type IngestionWaiter struct {
	publisher         MessagePublisher
	query             StatusQuery
	clock             Clock
	settleDelay       time.Duration
	archivedTransient bool
}

func NewIngestionWaiter(publisher MessagePublisher, query StatusQuery, opts ...WaiterOption) *IngestionWaiter {
	w := &IngestionWaiter{
		publisher:   publisher,
		query:       query,
		clock:       realClock{},
		settleDelay: DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Ingest publishes req once and waits for its outcome.
//
// A publish failure is returned as *errors.PublishError and no polling takes
// place. Reaching maxWait is not an error: the last observed status is
// returned and the caller decides whether it is acceptable. Query failures
// during polling are logged and ignored.
//
// Time spent in queries counts against maxWait. Polling never runs past
// maxWait + pollInterval, and a terminal status adds the settle delay.
func (w *IngestionWaiter) Ingest(ctx context.Context, req models.IngestionRequest, maxWait, pollInterval time.Duration) (models.IngestionStatus, error) {
	if maxWait <= 0 {
		return "", srvErrors.NewInvalidArgumentError("maxWait", "must be positive")
	}
	if pollInterval <= 0 {
		return "", srvErrors.NewInvalidArgumentError("pollInterval", "must be positive")
	}

	log := zap.S().Named("ingestion_waiter").With("file", req.FileName, "stable_id", req.StableID)

	if err := w.publisher.Publish(ctx, req); err != nil {
		log.Errorw("failed to publish ingestion request", "error", err)
		if srvErrors.IsPublishError(err) {
			return "", err
		}
		return "", srvErrors.NewPublishError(req.StableID, err)
	}
	log.Infow("ingestion request published", "user", req.User)

	start := w.clock.Now()
	deadline := start.Add(maxWait + pollInterval)
	last := models.IngestionStatusNoEntry
	for {
		left := deadline.Sub(w.clock.Now())
		if left <= 0 {
			log.Warnw("ingestion did not finish in time", "status", last, "max_wait", maxWait)
			return last, nil
		}

		status, err := w.getStatus(ctx, req.FileName, left)
		elapsed := w.clock.Now().Sub(start)
		switch {
		case err != nil:
			log.Warnw("failed to query ingestion status", "error", err, "elapsed", elapsed)
		case w.pending(status):
			last = status
			log.Debugw("ingestion pending", "status", status, "elapsed", elapsed)
		default:
			log.Infow("ingestion reached terminal status", "status", status, "elapsed", elapsed)
			// the store may not expose its last write to other readers yet
			if err := w.clock.Sleep(ctx, w.settleDelay); err != nil {
				return status, err
			}
			return status, nil
		}

		if err := ctx.Err(); err != nil {
			return last, err
		}
		if elapsed > maxWait {
			log.Warnw("ingestion did not finish in time", "status", last, "max_wait", maxWait)
			return last, nil
		}
		if err := w.clock.Sleep(ctx, min(pollInterval, deadline.Sub(w.clock.Now()))); err != nil {
			return last, err
		}
		if w.clock.Now().Sub(start) > maxWait {
			log.Warnw("ingestion did not finish in time", "status", last, "max_wait", maxWait)
			return last, nil
		}
	}
}

// getStatus bounds a single query by what is left of the budget.
func (w *IngestionWaiter) getStatus(ctx context.Context, fileName string, left time.Duration) (models.IngestionStatus, error) {
	qctx, cancel := context.WithTimeout(ctx, left)
	defer cancel()
	return w.query.GetStatus(qctx, fileName)
}

func (w *IngestionWaiter) pending(s models.IngestionStatus) bool {
	if s == models.IngestionStatusArchived {
		return w.archivedTransient
	}
	return !s.IsTerminal()
}
