package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sftp-data-ingestion/internal/merge"
	"sftp-data-ingestion/internal/models"
	"sftp-data-ingestion/internal/schema"
	pipelineerrors "sftp-data-ingestion/pkg/errors"
	"sftp-data-ingestion/pkg/logger"
)

// Merger reads the staged rows, lets the merge engine pick one winner
// per invoice key, and upserts the winners into the fact store in a
// single transaction.
type Merger struct {
	pool      *pgxpool.Pool
	engine    *merge.Engine
	policies  []merge.FieldPolicy
	upsertSQL string
	log       logger.Logger
}

// NewMerger builds a Merger over the default policy table. The table is
// validated here so a policy drift fails the stage before any SQL runs.
func NewMerger(pool *pgxpool.Pool, log logger.Logger) (*Merger, error) {
	policies := merge.DefaultPolicies()
	if err := merge.ValidatePolicies(policies); err != nil {
		return nil, pipelineerrors.InternalError("merge policy table", err)
	}
	return &Merger{
		pool:      pool,
		engine:    merge.NewEngine(log),
		policies:  policies,
		upsertSQL: buildUpsertSQL(policies),
		log:       log.WithComponent("merger"),
	}, nil
}

// Run executes one merge pass. Rerunning against the same staging
// content is a no-op beyond refreshing inserted_at maxima.
func (m *Merger) Run(ctx context.Context) (*models.MergeResult, error) {
	rows, err := m.readStaging(ctx)
	if err != nil {
		return nil, err
	}

	records, dropped := m.engine.BuildRecords(rows)
	winners := m.engine.RankWinners(records)

	result := &models.MergeResult{
		StagingRows: len(rows),
		DroppedKeys: dropped,
		Winners:     len(winners),
	}
	if len(winners) == 0 {
		m.log.Info("no mergeable rows in staging")
		return result, nil
	}

	upserted, err := m.upsertWinners(ctx, winners)
	if err != nil {
		return result, err
	}
	result.Upserted = upserted

	m.log.WithFields(logger.Fields{
		"staging_rows": result.StagingRows,
		"dropped_keys": result.DroppedKeys,
		"winners":      result.Winners,
		"upserted":     result.Upserted,
	}).Info("merge completed")
	return result, nil
}

func (m *Merger) upsertWinners(ctx context.Context, winners []models.FactRecord) (int64, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return 0, pipelineerrors.MergeError(pipelineerrors.CodeUpsertFailed, "begin", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i := range winners {
		batch.Queue(m.upsertSQL, upsertArgs(m.policies, &winners[i])...)
	}

	results := tx.SendBatch(ctx, batch)
	var upserted int64
	for i := range winners {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, pipelineerrors.MergeError(pipelineerrors.CodeUpsertFailed,
				fmt.Sprintf("key %s", winners[i].InvoiceKey), err)
		}
		upserted += tag.RowsAffected()
	}
	if err := results.Close(); err != nil {
		return 0, pipelineerrors.MergeError(pipelineerrors.CodeUpsertFailed, "batch close", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, pipelineerrors.MergeError(pipelineerrors.CodeUpsertFailed, "commit", err)
	}
	return upserted, nil
}

// readStaging loads every staged row back as canonical column name to
// string value. NULLs come back as empty strings so the engine never
// deals with missing keys.
func (m *Merger) readStaging(ctx context.Context) ([]models.StagedRow, error) {
	query := fmt.Sprintf("SELECT %s FROM staging.stg_deliveries",
		strings.Join(schema.Columns, ", "))

	dbRows, err := m.pool.Query(ctx, query)
	if err != nil {
		return nil, pipelineerrors.MergeError(pipelineerrors.CodeUpsertFailed, "read staging", err)
	}
	defer dbRows.Close()

	var rows []models.StagedRow
	scanned := make([]*string, len(schema.Columns))
	dest := make([]any, len(schema.Columns))
	for i := range scanned {
		dest[i] = &scanned[i]
	}

	for dbRows.Next() {
		if err := dbRows.Scan(dest...); err != nil {
			return nil, pipelineerrors.MergeError(pipelineerrors.CodeUpsertFailed, "scan staging", err)
		}
		row := models.StagedRow{Values: make(map[string]string, len(schema.Columns))}
		for i, col := range schema.Columns {
			if scanned[i] == nil {
				continue
			}
			if col == "source_file" {
				row.SourceFile = *scanned[i]
				continue
			}
			row.Values[col] = *scanned[i]
		}
		rows = append(rows, row)
	}
	if err := dbRows.Err(); err != nil {
		return nil, pipelineerrors.MergeError(pipelineerrors.CodeUpsertFailed, "read staging", err)
	}
	return rows, nil
}
