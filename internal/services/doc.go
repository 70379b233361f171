// Package services implements the ingestion logic of the harness.
//
// # IngestionWaiter
//
// IngestionWaiter publishes one ingestion request and polls the status
// source until the pipeline reports a terminal status or the time budget
// runs out. It never writes the file record; the pipeline is its only
// writer.
//
//	Handlers / CLI / scenario steps
//	    │
//	    ▼
//	IngestionWaiter ──► MessagePublisher (broker.Publisher)
//	                └─► StatusQuery      (status.PostgresQuery)
//
// State Machine:
//
//	┌───────┐    ┌───────────┐    ┌─────────┐    ┌──────────┐
//	│ Start │───►│ Published │───►│ Polling │───►│ Terminal │
//	└───────┘    └───────────┘    └─────────┘    └──────────┘
//	    │                            │  ▲
//	    │ publish failed             │  │ pending status or
//	    ▼                            │  │ query error
//	 PublishError                    │  └───────────────┐
//	                                 │ budget spent     │
//	                                 ▼                  │
//	                             ┌─────────┐            │
//	                             │ Timeout │            │
//	                             └─────────┘
//
// Polling:
//
//	last := NoEntry
//	deadline := now + maxWait + pollInterval
//	loop:
//	    status, err := query.GetStatus(file) with deadline as ctx deadline
//	    err != nil        → log, keep last
//	    pending(status)   → last = status
//	    terminal(status)  → sleep(settleDelay); return status
//	    now - start > maxWait → return last (no error)
//	    sleep(min(pollInterval, deadline - now))
//
// Terminal statuses are Completed, Archived, Error and NoEntry. With
// WithArchivedTransient(true) Archived counts as pending, for deployments
// that archive before marking a file Completed.
//
// Elapsed time is read from the Clock, so slow queries count against the
// budget, and a query hanging past the deadline is cancelled. Polling never
// runs past maxWait + pollInterval; a terminal status adds the settle
// delay. With the real clock every sleep aborts when the context is
// cancelled; Ingest then returns the last status and ctx.Err().
//
// # Concurrency
//
// A waiter holds no per-attempt state and can serve concurrent Ingest
// calls, as long as the publisher and query can.
package services
