package services_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nbisweden/lega-e2e/internal/models"
	"github.com/nbisweden/lega-e2e/internal/services"
	srvErrors "github.com/nbisweden/lega-e2e/pkg/errors"
)

type fakePublisher struct {
	mu        sync.Mutex
	err       error
	published []models.IngestionRequest
	events    *[]string
}

func (p *fakePublisher) Publish(_ context.Context, req models.IngestionRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events != nil {
		*p.events = append(*p.events, "publish")
	}
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, req)
	return nil
}

type queryResult struct {
	status models.IngestionStatus
	err    error
}

// scriptedQuery returns results in order and repeats the last one.
type scriptedQuery struct {
	mu      sync.Mutex
	results []queryResult
	calls   int
	events  *[]string
}

func (q *scriptedQuery) GetStatus(_ context.Context, _ string) (models.IngestionStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.events != nil {
		*q.events = append(*q.events, "query")
	}
	idx := q.calls
	if idx >= len(q.results) {
		idx = len(q.results) - 1
	}
	q.calls++
	return q.results[idx].status, q.results[idx].err
}

func (q *scriptedQuery) Calls() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.calls
}

// slowQuery takes latency of clock time per call and records whether the
// call carried a deadline.
type slowQuery struct {
	*scriptedQuery
	clock        *fakeClock
	latency      time.Duration
	mu           sync.Mutex
	withDeadline int
}

func (q *slowQuery) GetStatus(ctx context.Context, fileName string) (models.IngestionStatus, error) {
	if _, ok := ctx.Deadline(); ok {
		q.mu.Lock()
		q.withDeadline++
		q.mu.Unlock()
	}
	q.clock.Advance(q.latency)
	return q.scriptedQuery.GetStatus(ctx, fileName)
}

func statuses(ss ...models.IngestionStatus) []queryResult {
	out := make([]queryResult, 0, len(ss))
	for _, s := range ss {
		out = append(out, queryResult{status: s})
	}
	return out
}

// fakeClock only moves when slept on or advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}

func (c *fakeClock) Total() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total time.Duration
	for _, d := range c.sleeps {
		total += d
	}
	return total
}

var _ = Describe("IngestionWaiter", func() {
	const (
		maxWait      = 10 * time.Second
		pollInterval = time.Second
		settle       = time.Second
	)

	var (
		ctx       context.Context
		publisher *fakePublisher
		query     *scriptedQuery
		clock     *fakeClock
		request   models.IngestionRequest
	)

	newWaiter := func(opts ...services.WaiterOption) *services.IngestionWaiter {
		opts = append([]services.WaiterOption{
			services.WithClock(clock),
			services.WithSettleDelay(settle),
		}, opts...)
		return services.NewIngestionWaiter(publisher, query, opts...)
	}

	BeforeEach(func() {
		ctx = context.Background()
		publisher = &fakePublisher{}
		clock = newFakeClock()
		request = models.NewIngestionRequest("john", "sample1.enc",
			models.WithRawChecksum("d41d8cd98f00b204e9800998ecf8427e"),
			models.WithEncryptedChecksum("5eb63bbbe01eeed093cb22bb8f5acdc3"),
		)
	})

	Context("terminal statuses", func() {
		// Given a status source reporting Completed on the first poll
		// When we ingest
		// Then we get Completed after exactly one settle delay
		It("should return Completed after one settle delay when first poll is terminal", func() {
			query = &scriptedQuery{results: statuses(models.IngestionStatusCompleted)}

			status, err := newWaiter().Ingest(ctx, request, maxWait, pollInterval)

			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(models.IngestionStatusCompleted))
			Expect(query.Calls()).To(Equal(1))
			Expect(clock.sleeps).To(Equal([]time.Duration{settle}))
		})

		// Given a status source reporting InProgress, InProgress, Completed
		// When we ingest
		// Then we get Completed with 3 queries, 2 poll sleeps and 1 settle delay
		It("should poll through InProgress until Completed", func() {
			query = &scriptedQuery{results: statuses(
				models.IngestionStatusInProgress,
				models.IngestionStatusInProgress,
				models.IngestionStatusCompleted,
			)}

			status, err := newWaiter().Ingest(ctx, request, maxWait, pollInterval)

			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(models.IngestionStatusCompleted))
			Expect(query.Calls()).To(Equal(3))
			Expect(clock.sleeps).To(Equal([]time.Duration{pollInterval, pollInterval, settle}))
			Expect(publisher.published).To(HaveLen(1))
			Expect(publisher.published[0].StableID).To(Equal(request.StableID))
		})

		// Given a wrong encrypted checksum
		// When the pipeline eventually reports Error
		// Then Error is returned
		It("should return Error for a rejected file", func() {
			request.EncryptedChecksum = "wrong"
			query = &scriptedQuery{results: statuses(
				models.IngestionStatusReceived,
				models.IngestionStatusInProgress,
				models.IngestionStatusError,
			)}

			status, err := newWaiter().Ingest(ctx, request, maxWait, pollInterval)

			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(models.IngestionStatusError))
		})

		It("should return NoEntry immediately when no row matches", func() {
			query = &scriptedQuery{results: statuses(models.IngestionStatusNoEntry)}

			status, err := newWaiter().Ingest(ctx, request, maxWait, pollInterval)

			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(models.IngestionStatusNoEntry))
			Expect(query.Calls()).To(Equal(1))
		})

		It("should treat Archived as terminal by default", func() {
			query = &scriptedQuery{results: statuses(models.IngestionStatusArchived, models.IngestionStatusCompleted)}

			status, err := newWaiter().Ingest(ctx, request, maxWait, pollInterval)

			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(models.IngestionStatusArchived))
			Expect(query.Calls()).To(Equal(1))
		})

		It("should keep polling through Archived when configured as transient", func() {
			query = &scriptedQuery{results: statuses(
				models.IngestionStatusInProgress,
				models.IngestionStatusArchived,
				models.IngestionStatusCompleted,
			)}

			status, err := newWaiter(services.WithArchivedTransient(true)).Ingest(ctx, request, maxWait, pollInterval)

			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(models.IngestionStatusCompleted))
			Expect(query.Calls()).To(Equal(3))
		})
	})

	Context("soft timeout", func() {
		// Given a status source stuck at InProgress
		// When the budget is exceeded
		// Then InProgress is returned without error and without settle delay
		It("should return the last observed status once the budget is exceeded", func() {
			query = &scriptedQuery{results: statuses(models.IngestionStatusInProgress)}

			status, err := newWaiter().Ingest(ctx, request, 3*time.Second, pollInterval)

			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(models.IngestionStatusInProgress))
			Expect(query.Calls()).To(Equal(4))
			Expect(clock.Total()).To(Equal(4 * time.Second))
		})

		It("should stay within maxWait + pollInterval + settle", func() {
			query = &scriptedQuery{results: statuses(models.IngestionStatusReceived)}
			budget := 5 * time.Second

			_, err := newWaiter().Ingest(ctx, request, budget, 2*time.Second)

			Expect(err).NotTo(HaveOccurred())
			Expect(clock.Total()).To(BeNumerically("<=", budget+2*time.Second+settle))
		})

		// Given a status source that takes 30ms per query and never finishes
		// When the budget is 100ms with a 10ms poll interval
		// Then the wall clock stays within maxWait + pollInterval + settle
		It("should count query time against the budget", func() {
			const (
				budget = 100 * time.Millisecond
				poll   = 10 * time.Millisecond
				settle = time.Millisecond
			)
			slow := &slowQuery{
				scriptedQuery: &scriptedQuery{results: statuses(models.IngestionStatusInProgress)},
				clock:         clock,
				latency:       30 * time.Millisecond,
			}
			w := services.NewIngestionWaiter(publisher, slow, services.WithClock(clock), services.WithSettleDelay(settle))
			start := clock.Now()

			status, err := w.Ingest(ctx, request, budget, poll)

			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(models.IngestionStatusInProgress))
			Expect(clock.Now().Sub(start)).To(BeNumerically("<=", budget+poll+settle))
			Expect(slow.Calls()).To(BeNumerically("<", 5))
			Expect(slow.withDeadline).To(Equal(slow.Calls()))
		})

		It("should settle after a slow terminal answer within the bound", func() {
			const settle = time.Millisecond
			slow := &slowQuery{
				scriptedQuery: &scriptedQuery{results: statuses(models.IngestionStatusInProgress, models.IngestionStatusCompleted)},
				clock:         clock,
				latency:       40 * time.Millisecond,
			}
			w := services.NewIngestionWaiter(publisher, slow, services.WithClock(clock), services.WithSettleDelay(settle))
			start := clock.Now()

			status, err := w.Ingest(ctx, request, 100*time.Millisecond, 10*time.Millisecond)

			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(models.IngestionStatusCompleted))
			Expect(clock.Now().Sub(start)).To(Equal(40*time.Millisecond + 10*time.Millisecond + 40*time.Millisecond + settle))
		})

		It("should stop at Archived when it stays Archived past the budget", func() {
			query = &scriptedQuery{results: statuses(models.IngestionStatusArchived)}

			status, err := newWaiter(services.WithArchivedTransient(true)).Ingest(ctx, request, 2*time.Second, pollInterval)

			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(models.IngestionStatusArchived))
		})
	})

	Context("query errors", func() {
		// Given a status source that fails transiently
		// When polling
		// Then the failures are ignored and polling continues
		It("should keep polling through query errors", func() {
			query = &scriptedQuery{results: []queryResult{
				{err: srvErrors.NewQueryError("sample1.enc", errors.New("connection refused"))},
				{status: models.IngestionStatusInProgress},
				{err: errors.New("timeout")},
				{status: models.IngestionStatusCompleted},
			}}

			status, err := newWaiter().Ingest(ctx, request, maxWait, pollInterval)

			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(models.IngestionStatusCompleted))
			Expect(query.Calls()).To(Equal(4))
		})

		It("should keep the last good observation when the source stays down", func() {
			query = &scriptedQuery{results: []queryResult{
				{status: models.IngestionStatusInProgress},
				{err: errors.New("db down")},
			}}

			status, err := newWaiter().Ingest(ctx, request, 3*time.Second, pollInterval)

			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(models.IngestionStatusInProgress))
		})

		It("should return NoEntry when nothing was ever observed", func() {
			query = &scriptedQuery{results: []queryResult{{err: errors.New("db down")}}}

			status, err := newWaiter().Ingest(ctx, request, 2*time.Second, pollInterval)

			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(models.IngestionStatusNoEntry))
		})
	})

	Context("publish failures", func() {
		// Given a broker that cannot be reached
		// When we ingest
		// Then a PublishError is returned and the status source is never queried
		It("should return a PublishError and never poll", func() {
			events := []string{}
			publisher = &fakePublisher{err: errors.New("connection refused"), events: &events}
			query = &scriptedQuery{results: statuses(models.IngestionStatusCompleted), events: &events}

			_, err := newWaiter().Ingest(ctx, request, maxWait, pollInterval)

			Expect(err).To(HaveOccurred())
			Expect(srvErrors.IsPublishError(err)).To(BeTrue())
			Expect(query.Calls()).To(BeZero())
			Expect(events).To(Equal([]string{"publish"}))
			Expect(clock.sleeps).To(BeEmpty())
		})

		It("should publish before polling", func() {
			events := []string{}
			publisher = &fakePublisher{events: &events}
			query = &scriptedQuery{results: statuses(models.IngestionStatusCompleted), events: &events}

			_, err := newWaiter().Ingest(ctx, request, maxWait, pollInterval)

			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(Equal([]string{"publish", "query"}))
		})
	})

	Context("arguments", func() {
		It("should reject a non-positive budget or interval", func() {
			query = &scriptedQuery{results: statuses(models.IngestionStatusCompleted)}
			w := newWaiter()

			_, err := w.Ingest(ctx, request, 0, pollInterval)
			Expect(srvErrors.IsInvalidArgumentError(err)).To(BeTrue())

			_, err = w.Ingest(ctx, request, maxWait, 0)
			Expect(srvErrors.IsInvalidArgumentError(err)).To(BeTrue())

			Expect(publisher.published).To(BeEmpty())
		})
	})

	Context("concurrent waiters", func() {
		It("should not interfere with each other", func() {
			query = &scriptedQuery{results: statuses(models.IngestionStatusCompleted)}
			w := newWaiter()

			var wg sync.WaitGroup
			results := make(chan models.IngestionStatus, 10)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					req := models.NewIngestionRequest("john", "sample1.enc")
					status, err := w.Ingest(ctx, req, maxWait, pollInterval)
					Expect(err).NotTo(HaveOccurred())
					results <- status
				}()
			}
			wg.Wait()
			close(results)

			for status := range results {
				Expect(status).To(Equal(models.IngestionStatusCompleted))
			}
			ids := map[string]struct{}{}
			for _, r := range publisher.published {
				ids[r.StableID] = struct{}{}
			}
			Expect(ids).To(HaveLen(10))
		})
	})

	Context("cancellation", func() {
		It("should return the context error when cancelled mid-poll", func() {
			query = &scriptedQuery{results: statuses(models.IngestionStatusInProgress)}
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			status, err := newWaiter().Ingest(cctx, request, maxWait, pollInterval)

			Expect(err).To(MatchError(context.Canceled))
			Expect(status).To(Equal(models.IngestionStatusInProgress))
		})
	})
})
