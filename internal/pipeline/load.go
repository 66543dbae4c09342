// Package pipeline wires the stages together: it owns the per-file load
// loop and the sequential runner the CLI invokes. No SQL and no SFTP
// here, only control flow over the other packages.
package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"sftp-data-ingestion/internal/filestate"
	"sftp-data-ingestion/internal/models"
	"sftp-data-ingestion/internal/parsers"
	"sftp-data-ingestion/internal/schema"
	pipelineerrors "sftp-data-ingestion/pkg/errors"
	"sftp-data-ingestion/pkg/logger"
)

// rowSink receives the projected rows of one file. Satisfied by
// store.StagingLoader.
type rowSink interface {
	LoadRows(ctx context.Context, rows [][]string, sourceFile string) (int64, error)
}

// Loader drives the staging load: it walks the pending files, parses
// and maps each one, bulk-loads the good ones and routes every file to
// processed or failed. One bad file never stops the run.
type Loader struct {
	state *filestate.Store
	sink  rowSink
	log   logger.Logger
}

// NewLoader returns a Loader over the given file areas and sink.
func NewLoader(state *filestate.Store, sink rowSink, log logger.Logger) *Loader {
	return &Loader{state: state, sink: sink, log: log.WithComponent("loader")}
}

// Run processes every pending file once and reports where each ended up.
func (l *Loader) Run(ctx context.Context) (*models.LoadResult, error) {
	pending, err := l.state.PendingFiles()
	if err != nil {
		return nil, err
	}

	result := &models.LoadResult{}
	for _, path := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fileResult := l.loadFile(ctx, path)
		disposition := filestate.Processed
		if fileResult.Disposition == models.DispositionFailed {
			disposition = filestate.Failed
			l.log.WithFields(logger.Fields{
				"file":   fileResult.File,
				"reason": fileResult.Reason,
			}).Warn("file routed to failed area")
		}
		if err := l.state.Mark(path, disposition); err != nil {
			return result, err
		}
		result.Files = append(result.Files, fileResult)
	}

	l.log.WithFields(logger.Fields{
		"processed": result.Processed(),
		"failed":    result.Failed(),
		"rows":      result.TotalRows(),
	}).Info("staging load completed")
	return result, nil
}

func (l *Loader) loadFile(ctx context.Context, path string) models.FileLoadResult {
	name := filepath.Base(path)
	fail := func(reason string) models.FileLoadResult {
		return models.FileLoadResult{File: name, Disposition: models.DispositionFailed, Reason: reason}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fail("unreadable: " + err.Error())
	}

	table, detection := parsers.ParseAuto(raw)
	if table.IsEmpty() {
		return fail("no parsable rows")
	}

	mapping := schema.MapHeader(table.Header)
	if !mapping.Valid() {
		err := pipelineerrors.SchemaError(
			pipelineerrors.CodeInvalidHeader, name, mapping.Recognized, nil)
		l.log.WithError(err).WithField("unrecognized", mapping.Unrecognized()).
			Warn("header rejected")
		return fail(err.Error())
	}

	rows, err := l.sink.LoadRows(ctx, mapping.ProjectAll(table.Rows), name)
	if err != nil {
		return fail(err.Error())
	}

	l.log.WithFields(logger.Fields{
		"file":      name,
		"rows":      rows,
		"encoding":  detection.Encoding,
		"delimiter": string(detection.Delimiter),
	}).Info("file staged")
	return models.FileLoadResult{File: name, Rows: rows, Disposition: models.DispositionProcessed}
}
