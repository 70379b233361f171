// Package store implements the results journal of the harness.
//
// Every ingestion attempt, whether started from the ingest command or from
// a scenario run, is recorded in a DuckDB database so runs can be compared
// and served by the report server.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────┐
//	│               Store (facade)                │
//	├─────────────────────────────────────────────┤
//	│                AttemptStore                 │
//	│                     ▼                       │
//	│         attempts (local migrations)         │
//	└─────────────────────────────────────────────┘
//
// Tables created by migrations (internal/store/migrations/sql/):
//
//	┌────────────────────┬──────────────────────────────────────────┐
//	│  Table             │  Purpose                                 │
//	├────────────────────┼──────────────────────────────────────────┤
//	│  attempts          │  One row per ingestion attempt           │
//	│  schema_migrations │  Migration version tracking              │
//	└────────────────────┴──────────────────────────────────────────┘
//
// # Initialization Flow
//
//	db, _ := store.NewDB(path)
//	s := store.NewStore(db)
//	s.Migrate(ctx)  → migrations.Run()
//
// # AttemptStore
//
// Expected statuses are stored as a comma separated list, elapsed time in
// milliseconds.
//
// Methods:
//   - Save(ctx, *models.Attempt) → error (fills ID and CreatedAt)
//   - Get(ctx, id) → *models.Attempt, ResourceNotFoundError when missing
//   - List(ctx, opts...) → []models.Attempt
//   - Count(ctx, opts...) → int
//   - DeleteAll(ctx) → error
//
// List Options:
//
//	attempts, err := s.Attempts().List(ctx,
//	    store.ByScenarios("ingest-correct-checksums"),
//	    store.ByPassed(false),
//	    store.WithNewestFirst(),
//	    store.WithLimit(50),
//	)
//
// # QueryInterceptor
//
// All statements go through a QueryInterceptor that logs them at debug
// level on the "store" logger.
package store
