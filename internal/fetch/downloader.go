package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sftp-data-ingestion/internal/models"
	pipelineerrors "sftp-data-ingestion/pkg/errors"
	"sftp-data-ingestion/pkg/logger"
)

const (
	partSuffix     = ".part"
	defaultRetries = 3
	defaultDelay   = 2 * time.Second
)

// Downloader copies remote CSV files into a local inbox directory.
// Downloads go through a .part temp file and are renamed into place only
// after the size matches the remote listing, so the inbox never holds a
// truncated file. Files already present locally are skipped, which makes
// the fetch stage safe to rerun.
type Downloader struct {
	source  RemoteSource
	destDir string
	log     logger.Logger

	retries int
	delay   time.Duration
}

// NewDownloader returns a Downloader writing into destDir.
func NewDownloader(source RemoteSource, destDir string, log logger.Logger) *Downloader {
	return &Downloader{
		source:  source,
		destDir: destDir,
		log:     log.WithComponent("fetch"),
		retries: defaultRetries,
		delay:   defaultDelay,
	}
}

// Run lists remoteDir and downloads every CSV file not yet present in
// the inbox. It returns per-run counters; a listing failure aborts the
// run, a single failed file does not.
func (d *Downloader) Run(ctx context.Context, remoteDir string) (*models.FetchResult, error) {
	start := time.Now()

	if err := d.cleanStaleParts(); err != nil {
		return nil, err
	}

	files, err := d.source.List(ctx, remoteDir)
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	result := &models.FetchResult{Listed: len(files)}
	for _, f := range files {
		if !strings.EqualFold(filepath.Ext(f.Name), ".csv") {
			continue
		}

		local := filepath.Join(d.destDir, f.Name)
		if info, err := os.Stat(local); err == nil {
			if info.Size() != f.Size {
				d.log.WithFields(logger.Fields{
					"file":        f.Name,
					"local_size":  info.Size(),
					"remote_size": f.Size,
				}).Warn("local copy differs in size from remote, keeping local")
			}
			result.Skipped++
			continue
		}

		if err := d.downloadWithRetry(ctx, filepath.Join(remoteDir, f.Name), local, f.Size); err != nil {
			d.log.WithError(err).WithField("file", f.Name).Error("download failed")
			result.Failed++
			continue
		}
		d.log.WithFields(logger.Fields{"file": f.Name, "size": f.Size}).Info("downloaded")
		result.Downloaded++
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

func (d *Downloader) downloadWithRetry(ctx context.Context, remotePath, localPath string, size int64) error {
	var lastErr error
	for attempt := 1; attempt <= d.retries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.delay):
			}
			d.log.WithFields(logger.Fields{
				"file":    filepath.Base(remotePath),
				"attempt": attempt,
			}).Warn("retrying download")
		}

		lastErr = d.download(ctx, remotePath, localPath, size)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (d *Downloader) download(ctx context.Context, remotePath, localPath string, size int64) error {
	reader, err := d.source.Fetch(ctx, remotePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	part := localPath + partSuffix
	out, err := os.Create(part)
	if err != nil {
		return pipelineerrors.FileError(pipelineerrors.CodeCopyFailed, part, err)
	}

	written, copyErr := io.Copy(out, reader)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(part)
		if copyErr == nil {
			copyErr = closeErr
		}
		return pipelineerrors.TransportError(
			pipelineerrors.CodeFetchFailed, remotePath, copyErr)
	}

	if size >= 0 && written != size {
		os.Remove(part)
		return pipelineerrors.TransportError(
			pipelineerrors.CodeSizeMismatch, remotePath,
			fmt.Errorf("wrote %d bytes, remote reports %d", written, size))
	}

	if err := os.Rename(part, localPath); err != nil {
		os.Remove(part)
		return pipelineerrors.FileError(pipelineerrors.CodeCopyFailed, localPath, err)
	}
	return nil
}

// cleanStaleParts removes leftovers of interrupted downloads so they
// never mask a fresh attempt.
func (d *Downloader) cleanStaleParts() error {
	entries, err := os.ReadDir(d.destDir)
	if err != nil {
		return pipelineerrors.FileError(
			pipelineerrors.CodeDirectoryError, d.destDir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), partSuffix) {
			continue
		}
		stale := filepath.Join(d.destDir, e.Name())
		d.log.WithField("file", e.Name()).Warn("removing stale partial download")
		if err := os.Remove(stale); err != nil {
			return pipelineerrors.FileError(pipelineerrors.CodeCopyFailed, stale, err)
		}
	}
	return nil
}
