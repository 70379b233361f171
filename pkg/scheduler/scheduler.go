package scheduler

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type queue[T any] []T

func (q *queue[T]) Len() int { return len(*q) }

func (q *queue[T]) Pop() T {
	old := *q
	x := old[0]
	*q = old[1:]
	return x
}

func (q *queue[T]) Push(t T) {
	*q = append(*q, t)
}

type workRequest[T any] struct {
	fn  Work[T]
	c   chan Result[T]
	ctx context.Context
}

type worker[T any] struct {
	id   int
	done chan int
	wg   *sync.WaitGroup
}

func (w worker[T]) Work(r workRequest[T]) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.S().Named("scheduler").Errorw("work panicked", "worker", w.id, "panic", rec)
			r.c <- Result[T]{Err: fmt.Errorf("worker panicked: %v", rec)}
		}
		w.done <- w.id
		w.wg.Done()
	}()

	if err := r.ctx.Err(); err != nil {
		r.c <- Result[T]{Err: err}
		return
	}
	v, err := r.fn(r.ctx)
	r.c <- Result[T]{Data: v, Err: err}
}

// Scheduler runs work on a fixed number of workers. Work submitted while
// every worker is busy waits in FIFO order.
type Scheduler[T any] struct {
	workers    *queue[worker[T]]
	pending    *queue[workRequest[T]]
	closing    chan any
	done       chan int
	stopped    chan any
	work       chan workRequest[T]
	mainCtx    context.Context
	mainCancel context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

// NewScheduler starts a pool of nbWorkers workers. Cancelling ctx cancels
// every submitted work.
func NewScheduler[T any](ctx context.Context, nbWorkers int) *Scheduler[T] {
	if nbWorkers < 1 {
		nbWorkers = 1
	}
	mainCtx, cancel := context.WithCancel(ctx)
	s := &Scheduler[T]{
		workers:    &queue[worker[T]]{},
		pending:    &queue[workRequest[T]]{},
		closing:    make(chan any),
		done:       make(chan int, nbWorkers),
		stopped:    make(chan any),
		work:       make(chan workRequest[T]),
		mainCtx:    mainCtx,
		mainCancel: cancel,
	}
	for i := range nbWorkers {
		s.workers.Push(worker[T]{id: i, done: s.done, wg: &s.wg})
	}
	go s.run()
	return s
}

func (s *Scheduler[T]) AddWork(w Work[T]) *Future[Result[T]] {
	c := make(chan Result[T], 1)
	ctx, cancel := context.WithCancel(s.mainCtx)

	select {
	case <-s.mainCtx.Done():
		cancel()
		c <- Result[T]{Err: context.Canceled}
	case s.work <- workRequest[T]{w, c, ctx}:
	}

	return NewFuture(c, cancel)
}

// Close cancels all work and waits for running work to return. Pending
// work that never started receives context.Canceled.
func (s *Scheduler[T]) Close() {
	s.once.Do(func() {
		s.mainCancel()
		s.closing <- struct{}{}
		<-s.stopped
	})
}

func (s *Scheduler[T]) run() {
	defer close(s.stopped)
	for {
		select {
		case w := <-s.work:
			s.pending.Push(w)
			s.dispatch()
		case id := <-s.done:
			s.workers.Push(worker[T]{id: id, done: s.done, wg: &s.wg})
			s.dispatch()
		case <-s.closing:
			for s.pending.Len() > 0 {
				r := s.pending.Pop()
				r.c <- Result[T]{Err: context.Canceled}
			}
			s.wg.Wait()
			return
		}
	}
}

// dispatch drains the pending queue as far as free workers allow.
func (s *Scheduler[T]) dispatch() {
	for s.workers.Len() > 0 && s.pending.Len() > 0 {
		r := s.pending.Pop()
		w := s.workers.Pop()
		s.wg.Add(1)
		go w.Work(r)
	}
}

// Run submits fn once per item on a pool of nbWorkers and returns the
// results in item order.
func Run[I, T any](ctx context.Context, nbWorkers int, items []I, fn func(ctx context.Context, item I) (T, error)) []Result[T] {
	s := NewScheduler[T](ctx, nbWorkers)
	defer s.Close()

	futures := make([]*Future[Result[T]], 0, len(items))
	for _, item := range items {
		futures = append(futures, s.AddWork(func(ctx context.Context) (T, error) {
			return fn(ctx, item)
		}))
	}
	return WaitAll(ctx, futures)
}
