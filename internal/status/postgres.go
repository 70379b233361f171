// Package status reads ingestion state from the LocalEGA database.
package status

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nbisweden/lega-e2e/internal/models"
	srvErrors "github.com/nbisweden/lega-e2e/pkg/errors"
)

const (
	ColumnInboxPath = "inbox_path"
	ColumnFilename  = "filename"

	filesTable = "files"
)

// NewDB opens a pooled connection to the LocalEGA database.
func NewDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// PostgresQuery looks up file records by their inbox path. When a file was
// submitted several times the newest record wins.
type PostgresQuery struct {
	db     *sql.DB
	column string
	psql   sq.StatementBuilderType
}

// NewPostgresQuery creates a query matching on column, which must be one of
// ColumnInboxPath or ColumnFilename. Older schemas name it filename.
func NewPostgresQuery(db *sql.DB, column string) (*PostgresQuery, error) {
	switch column {
	case "":
		column = ColumnInboxPath
	case ColumnInboxPath, ColumnFilename:
	default:
		return nil, srvErrors.NewInvalidArgumentError("column", fmt.Sprintf("unsupported file column %q", column))
	}
	return &PostgresQuery{
		db:     db,
		column: column,
		psql:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

func (q *PostgresQuery) selectLatest(fileName string, columns ...string) (string, []any, error) {
	return q.psql.Select(columns...).
		From(filesTable).
		Where(sq.Eq{q.column: fileName}).
		OrderBy("id DESC").
		Limit(1).
		ToSql()
}

// GetStatus returns NoEntry when no record matches.
func (q *PostgresQuery) GetStatus(ctx context.Context, fileName string) (models.IngestionStatus, error) {
	query, args, err := q.selectLatest(fileName, "status")
	if err != nil {
		return "", err
	}

	var raw sql.NullString
	err = q.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.IngestionStatusNoEntry, nil
	}
	if err != nil {
		return "", srvErrors.NewQueryError(fileName, err)
	}
	return models.ParseIngestionStatus(raw.String), nil
}

// GetRecord returns the ingestion information of the newest matching record.
func (q *PostgresQuery) GetRecord(ctx context.Context, fileName string) (*models.FileRecord, error) {
	query, args, err := q.selectLatest(fileName, "status", "stable_id", "archive_path", "archive_checksum")
	if err != nil {
		return nil, err
	}

	var rawStatus, stableID, archivePath, archiveChecksum sql.NullString
	err = q.db.QueryRowContext(ctx, query, args...).Scan(&rawStatus, &stableID, &archivePath, &archiveChecksum)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.FileRecord{FileName: fileName, Status: models.IngestionStatusNoEntry}, nil
	}
	if err != nil {
		return nil, srvErrors.NewQueryError(fileName, err)
	}
	return &models.FileRecord{
		FileName:        fileName,
		Status:          models.ParseIngestionStatus(rawStatus.String),
		StableID:        stableID.String,
		ArchivePath:     archivePath.String,
		ArchiveChecksum: archiveChecksum.String,
	}, nil
}

// Ping reports whether the database answers.
func (q *PostgresQuery) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}
