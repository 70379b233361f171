// Package scheduler runs ingestion attempts concurrently on a bounded
// worker pool and collects their outcomes.
//
// The harness uses it to fan out scenario runs, each of which publishes
// one request and polls until a terminal status. Attempts share no state
// besides the external pipeline, so the only limit is how many the
// pipeline should see at once.
//
//	           AddWork(fn) ──► pending (FIFO) ──► dispatch() ──► worker 1..N
//	                                                                 │
//	   Future.C() ◄──────────────── Result{Data, Err} ◄──────────────┘
//
// # Fan-out and fan-in
//
// Run is the usual entry point:
//
//	results := scheduler.Run(ctx, cfg.Ingest.Workers, scenarios,
//	    func(ctx context.Context, sc scenario.Scenario) (scenario.Result, error) {
//	        return runner.Run(ctx, sc), nil
//	    })
//
// It is equivalent to submitting every item with AddWork and collecting the
// futures with WaitAll. Results keep the input order.
//
// # Cancellation
//
//   - Future.Stop() cancels a single work.
//   - Scheduler.Close() cancels every work, fails pending ones with
//     context.Canceled and waits for running ones to return.
//   - Cancelling the context given to NewScheduler behaves like Close for
//     the work, but the pool keeps running until Close.
//
// A work that panics yields a Result with an error and its worker returns
// to the pool.
package scheduler
