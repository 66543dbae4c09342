package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"sftp-data-ingestion/internal/models"
	"sftp-data-ingestion/internal/schema"
	pipelineerrors "sftp-data-ingestion/pkg/errors"
	"sftp-data-ingestion/pkg/logger"
)

// advisoryLockName keys the archiver's transaction-scoped advisory lock.
// Every process that moves staging rows must hash the same name.
const advisoryLockName = "archive_deliveries"

// ErrArchiverBusy is returned when another archiver holds the advisory
// lock. The caller treats it as "nothing to do", not as a failure.
var ErrArchiverBusy = pipelineerrors.ConcurrencyError(
	pipelineerrors.CodeLockNotAcquired, advisoryLockName, nil)

const (
	defaultBatchSize        = 50000
	defaultLockTimeout      = 3 * time.Second
	defaultStatementTimeout = 15 * time.Minute
)

// ArchiveConfig tunes the batch archiver. Zero values take defaults.
type ArchiveConfig struct {
	BatchSize        int
	LockTimeout      time.Duration
	StatementTimeout time.Duration
}

// Archiver drains staging into the archive relation in ctid batches.
// Each batch runs in its own transaction under a non-blocking advisory
// lock, so a stuck batch never wedges the loaders and two archivers
// never interleave.
type Archiver struct {
	pool *pgxpool.Pool
	log  logger.Logger
	cfg  ArchiveConfig
}

// NewArchiver returns an Archiver with cfg applied over defaults.
func NewArchiver(pool *pgxpool.Pool, log logger.Logger, cfg ArchiveConfig) *Archiver {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaultLockTimeout
	}
	if cfg.StatementTimeout <= 0 {
		cfg.StatementTimeout = defaultStatementTimeout
	}
	return &Archiver{pool: pool, log: log.WithComponent("archiver"), cfg: cfg}
}

// Run moves staging rows to the archive in batches until staging is
// empty, all under one batch_id. Counts are validated per batch: a
// batch that inserts and deletes different numbers of rows rolls back.
func (a *Archiver) Run(ctx context.Context) (*models.ArchiveResult, error) {
	result := &models.ArchiveResult{BatchID: uuid.New()}
	log := a.log.WithField("batch_id", result.BatchID.String())

	for {
		inserted, deleted, err := a.moveBatch(ctx, result.BatchID)
		if err != nil {
			return result, err
		}
		if inserted == 0 && deleted == 0 {
			break
		}
		result.Batches++
		result.Inserted += inserted
		result.Deleted += deleted
		log.WithFields(logger.Fields{
			"batch": result.Batches,
			"rows":  inserted,
		}).Info("archived batch")
	}

	if err := result.Validate(); err != nil {
		return result, pipelineerrors.MergeError(
			pipelineerrors.CodeBatchMismatch, err.Error(), nil)
	}
	return result, nil
}

func (a *Archiver) moveBatch(ctx context.Context, batchID uuid.UUID) (int64, int64, error) {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return 0, 0, pipelineerrors.InternalError("archive transaction", err)
	}
	defer tx.Rollback(ctx)

	// SET LOCAL does not take bind parameters; durations are formatted
	// as integer milliseconds.
	for _, setting := range []string{"lock_timeout", "statement_timeout"} {
		timeout := a.cfg.LockTimeout
		if setting == "statement_timeout" {
			timeout = a.cfg.StatementTimeout
		}
		stmt := fmt.Sprintf("SET LOCAL %s = '%dms'", setting, timeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return 0, 0, pipelineerrors.InternalError("archive timeouts", err)
		}
	}

	var locked bool
	err = tx.QueryRow(ctx,
		`SELECT pg_try_advisory_xact_lock(hashtext($1))`, advisoryLockName).Scan(&locked)
	if err != nil {
		return 0, 0, pipelineerrors.InternalError("advisory lock", err)
	}
	if !locked {
		return 0, 0, ErrArchiverBusy
	}

	var inserted, deleted int64
	err = tx.QueryRow(ctx, archiveBatchSQL(), batchID, a.cfg.BatchSize).Scan(&inserted, &deleted)
	if err != nil {
		return 0, 0, pipelineerrors.InternalError("archive batch move", err)
	}
	if inserted != deleted {
		return 0, 0, pipelineerrors.MergeError(pipelineerrors.CodeBatchMismatch,
			fmt.Sprintf("inserted %d, deleted %d", inserted, deleted), nil)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, pipelineerrors.InternalError("archive commit", err)
	}
	return inserted, deleted, nil
}

// archiveBatchSQL builds the single-statement batch move: select a ctid
// window, insert those rows into the archive, delete them from staging,
// and return both counts so the caller can verify they match.
func archiveBatchSQL() string {
	cols := strings.Join(schema.Columns, ", ")
	return fmt.Sprintf(`WITH to_move AS (
	SELECT ctid FROM staging.stg_deliveries LIMIT $2
), moved AS (
	INSERT INTO hist.deliveries_archive (archived_at, batch_id, %s)
	SELECT now(), $1, %s
	FROM staging.stg_deliveries
	WHERE ctid IN (SELECT ctid FROM to_move)
	RETURNING 1
), removed AS (
	DELETE FROM staging.stg_deliveries
	WHERE ctid IN (SELECT ctid FROM to_move)
	RETURNING 1
)
SELECT (SELECT count(*) FROM moved) AS inserted,
       (SELECT count(*) FROM removed) AS deleted`, cols, cols)
}
