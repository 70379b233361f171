package scheduler

import (
	"context"
)

// Work is a unit of work run by a worker. ctx is cancelled by Future.Stop
// and by Scheduler.Close.
type Work[T any] func(ctx context.Context) (T, error)

type Result[T any] struct {
	Data T
	Err  error
}

// Future receives exactly one Result on C.
type Future[T any] struct {
	input  chan T
	cancel context.CancelFunc
}

func NewFuture[T any](input chan T, cancel context.CancelFunc) *Future[T] {
	return &Future[T]{
		input:  input,
		cancel: cancel,
	}
}

func (f *Future[T]) C() chan T {
	return f.input
}

func (f *Future[T]) Stop() {
	f.cancel()
}

// WaitAll blocks until every future delivered its result or ctx is done.
// Results keep the order of futures. On ctx expiry the pending futures are
// stopped and their slots carry ctx.Err().
func WaitAll[T any](ctx context.Context, futures []*Future[Result[T]]) []Result[T] {
	results := make([]Result[T], len(futures))
	for i, f := range futures {
		select {
		case r := <-f.C():
			results[i] = r
		case <-ctx.Done():
			for j := i; j < len(futures); j++ {
				futures[j].Stop()
				results[j] = Result[T]{Err: ctx.Err()}
			}
			return results
		}
	}
	return results
}
