package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/nbisweden/lega-e2e/internal/models"
	srvErrors "github.com/nbisweden/lega-e2e/pkg/errors"
)

const expectedSeparator = ","

// AttemptStore journals ingestion attempts. Writes are serialised.
type AttemptStore struct {
	db QueryInterceptor
	mu sync.Mutex
}

func NewAttemptStore(db QueryInterceptor) *AttemptStore {
	return &AttemptStore{db: db}
}

// Save records a and fills in its ID and CreatedAt.
func (s *AttemptStore) Save(ctx context.Context, a *models.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expected := make([]string, 0, len(a.Expected))
	for _, st := range a.Expected {
		expected = append(expected, st.String())
	}

	return s.db.QueryRowContext(ctx, queryInsertAttempt,
		a.Scenario,
		a.StableID,
		a.User,
		a.FileName,
		strings.Join(expected, expectedSeparator),
		a.Observed.String(),
		a.Passed,
		a.Elapsed.Milliseconds(),
		a.Error,
	).Scan(&a.ID, &a.CreatedAt)
}

func (s *AttemptStore) Get(ctx context.Context, id int64) (*models.Attempt, error) {
	query, args, err := sq.Select(attemptColumns...).
		From(attemptsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	a, err := scanAttempt(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, srvErrors.NewResourceNotFoundError("attempt", strconv.FormatInt(id, 10))
	}
	return a, err
}

func (s *AttemptStore) List(ctx context.Context, opts ...ListOption) ([]models.Attempt, error) {
	builder := sq.Select(attemptColumns...).From(attemptsTable)
	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := []models.Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

func (s *AttemptStore) Count(ctx context.Context, opts ...ListOption) (int, error) {
	builder := sq.Select("COUNT(*)").From(attemptsTable)
	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

func (s *AttemptStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, queryDeleteAttempts)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row scanner) (*models.Attempt, error) {
	var (
		a         models.Attempt
		expected  string
		observed  string
		elapsedMs int64
	)
	err := row.Scan(
		&a.ID,
		&a.Scenario,
		&a.StableID,
		&a.User,
		&a.FileName,
		&expected,
		&observed,
		&a.Passed,
		&elapsedMs,
		&a.Error,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if expected != "" {
		for _, st := range strings.Split(expected, expectedSeparator) {
			a.Expected = append(a.Expected, models.ParseIngestionStatus(st))
		}
	}
	a.Observed = models.ParseIngestionStatus(observed)
	a.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	return &a, nil
}

type ListOption func(sq.SelectBuilder) sq.SelectBuilder

func ByScenarios(scenarios ...string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(scenarios) == 0 {
			return b
		}
		return b.Where(sq.Eq{"scenario": scenarios})
	}
}

func ByPassed(passed bool) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{"passed": passed})
	}
}

func ByFileName(fileName string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{"file_name": fileName})
	}
}

func WithLimit(limit uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Limit(limit)
	}
}

func WithOffset(offset uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Offset(offset)
	}
}

// WithNewestFirst orders by insertion, newest first.
func WithNewestFirst() ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.OrderBy("id DESC")
	}
}
