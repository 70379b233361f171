package infra

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Probe reports whether a component answers.
type Probe func(ctx context.Context) error

// WaitReady retries probe with exponential backoff until it succeeds or
// maxWait elapses. The last probe error is returned on failure.
func WaitReady(ctx context.Context, name string, probe Probe, initial, maxWait time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = 5 * initial

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, probe(ctx)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(maxWait),
		backoff.WithNotify(func(err error, next time.Duration) {
			zap.S().Named("infra").Debugw("not ready yet", "component", name, "error", err, "retry_in", next)
		}),
	)
	return err
}
