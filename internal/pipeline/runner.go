package pipeline

import (
	"context"

	"github.com/pkg/errors"

	"sftp-data-ingestion/internal/models"
	"sftp-data-ingestion/internal/store"
	"sftp-data-ingestion/pkg/logger"
)

// Fetcher pulls remote extracts into the inbox.
type Fetcher interface {
	Run(ctx context.Context, remoteDir string) (*models.FetchResult, error)
}

// StageLoader stages the pending files.
type StageLoader interface {
	Run(ctx context.Context) (*models.LoadResult, error)
}

// Merger merges staged rows into the fact store.
type Merger interface {
	Run(ctx context.Context) (*models.MergeResult, error)
}

// ArchiveRunner drains staging into the archive.
type ArchiveRunner interface {
	Run(ctx context.Context) (*models.ArchiveResult, error)
}

// Runner executes the full sequence: fetch, load, merge, archive. Merge
// runs before archive because it reads the rows the archiver drains.
type Runner struct {
	Fetcher   Fetcher
	RemoteDir string
	Loader    StageLoader
	Merger    Merger
	Archiver  ArchiveRunner
	Log       logger.Logger
}

// RunAll runs every configured stage in order and stops at the first
// failure. A busy archiver is not a failure: another process is already
// draining staging.
func (r *Runner) RunAll(ctx context.Context) error {
	log := r.Log.WithComponent("pipeline")

	if r.Fetcher != nil {
		fetched, err := r.Fetcher.Run(ctx, r.RemoteDir)
		if err != nil {
			return err
		}
		log.WithFields(logger.Fields{
			"listed":     fetched.Listed,
			"downloaded": fetched.Downloaded,
			"skipped":    fetched.Skipped,
			"failed":     fetched.Failed,
		}).Info("fetch stage done")
	}

	if r.Loader != nil {
		loaded, err := r.Loader.Run(ctx)
		if err != nil {
			return err
		}
		log.WithFields(logger.Fields{
			"processed": loaded.Processed(),
			"failed":    loaded.Failed(),
			"rows":      loaded.TotalRows(),
		}).Info("load stage done")
	}

	if r.Merger != nil {
		merged, err := r.Merger.Run(ctx)
		if err != nil {
			return err
		}
		log.WithFields(logger.Fields{
			"winners":  merged.Winners,
			"upserted": merged.Upserted,
			"dropped":  merged.DroppedKeys,
		}).Info("merge stage done")
	}

	if r.Archiver != nil {
		archived, err := r.Archiver.Run(ctx)
		if errors.Is(err, store.ErrArchiverBusy) {
			log.Warn("archiver busy elsewhere, skipping archive stage")
			return nil
		}
		if err != nil {
			return err
		}
		log.WithFields(logger.Fields{
			"batch_id": archived.BatchID.String(),
			"batches":  archived.Batches,
			"rows":     archived.Inserted,
		}).Info("archive stage done")
	}

	return nil
}
