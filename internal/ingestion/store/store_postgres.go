package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"idgov/internal/ingestion/models"
	"idgov/pkg/domain"
	"idgov/pkg/platform/sentinel"
	"idgov/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists import runs in the import_runs table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	insertRunSQL = `
INSERT INTO import_runs (id, source_key, source_system, filename, encoding, rows_read, rows_imported, warnings, status, error, generation, uploader_agent, client_ip, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	selectRunsSQL = `
SELECT id, source_system, filename, encoding, rows_read, rows_imported, warnings, status, error, generation, uploader_agent, client_ip, started_at, finished_at
FROM import_runs
WHERE ($1 = '' OR source_key = $1)
ORDER BY started_at DESC
LIMIT $2`
)

// defaultListLimit bounds List when the caller passes no limit.
const defaultListLimit = 1000

func (s *PostgresStore) Save(ctx context.Context, run *models.ImportRun) error {
	warnings := run.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	_, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, insertRunSQL,
		run.ID, run.SourceSystem.Key(), run.SourceSystem.String(), run.Filename, run.Encoding,
		run.RowsRead, run.RowsImported, pq.Array(warnings), string(run.Status), run.Error,
		run.Generation, run.UploaderAgent, run.ClientIP, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert import run: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, system domain.SystemName, limit int) ([]models.ImportRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	key := ""
	if system != "" {
		key = system.Key()
	}
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, selectRunsSQL, key, limit)
	if err != nil {
		return nil, fmt.Errorf("query import runs: %w", err)
	}
	defer rows.Close()

	runs := []models.ImportRun{}
	for rows.Next() {
		var (
			run      models.ImportRun
			system   string
			status   string
			warnings pq.StringArray
		)
		if err := rows.Scan(&run.ID, &system, &run.Filename, &run.Encoding,
			&run.RowsRead, &run.RowsImported, &warnings, &status, &run.Error,
			&run.Generation, &run.UploaderAgent, &run.ClientIP, &run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		run.SourceSystem = domain.SystemName(system)
		run.Status = models.RunStatus(status)
		run.Warnings = []string(warnings)
		run.StartedAt = run.StartedAt.UTC()
		run.FinishedAt = run.FinishedAt.UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import runs: %w", err)
	}
	return runs, nil
}
