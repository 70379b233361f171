package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/nbisweden/lega-e2e/internal/store/migrations"
)

// NewDB opens the DuckDB results database. path may be ":memory:".
func NewDB(path string) (*sql.DB, error) {
	if path == ":memory:" {
		path = ""
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}
	return db, nil
}

// Store provides access to all storage repositories.
type Store struct {
	db       *sql.DB
	attempts *AttemptStore
}

func NewStore(db *sql.DB) *Store {
	qi := NewQueryInterceptor(db)
	return &Store{
		db:       db,
		attempts: NewAttemptStore(qi),
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, s.db)
}

func (s *Store) Attempts() *AttemptStore {
	return s.attempts
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
