package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sftp-data-ingestion/internal/schema"
	pipelineerrors "sftp-data-ingestion/pkg/errors"
	"sftp-data-ingestion/pkg/logger"
)

var stagingTable = pgx.Identifier{"staging", "stg_deliveries"}

// StagingLoader bulk-loads projected file rows into the staging
// relation, one transaction per file.
type StagingLoader struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

// NewStagingLoader returns a loader writing through pool.
func NewStagingLoader(pool *pgxpool.Pool, log logger.Logger) *StagingLoader {
	return &StagingLoader{pool: pool, log: log.WithComponent("store")}
}

// LoadRows copies rows (already projected to canonical order) into
// staging, stamping every row with sourceFile. The whole file goes in
// one transaction: either all rows land or none do.
func (l *StagingLoader) LoadRows(ctx context.Context, rows [][]string, sourceFile string) (int64, error) {
	if len(rows) == 0 {
		return 0, pipelineerrors.LoadError(pipelineerrors.CodeZeroRows, sourceFile, nil)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, pipelineerrors.LoadError(pipelineerrors.CodeBulkInsertFailed, sourceFile, err)
	}
	defer tx.Rollback(ctx)

	copied, err := tx.CopyFrom(ctx, stagingTable, schema.Columns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return stagingValues(rows[i], sourceFile), nil
		}))
	if err != nil {
		return 0, pipelineerrors.LoadError(pipelineerrors.CodeBulkInsertFailed, sourceFile, err)
	}
	if copied == 0 {
		return 0, pipelineerrors.LoadError(pipelineerrors.CodeZeroRows, sourceFile, nil)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, pipelineerrors.LoadError(pipelineerrors.CodeBulkInsertFailed, sourceFile, err)
	}

	l.log.WithFields(logger.Fields{"file": sourceFile, "rows": copied}).Info("staged file")
	return copied, nil
}

// stagingValues lays out one projected row for COPY. Absent cells stay
// empty strings, never NULL, so staging and its archive read back
// exactly what the file projection produced.
func stagingValues(row []string, sourceFile string) []any {
	values := make([]any, len(schema.Columns))
	for j := range values {
		if j < len(row) {
			values[j] = row[j]
		} else {
			values[j] = ""
		}
	}
	values[len(values)-1] = sourceFile
	return values
}
