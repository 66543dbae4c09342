// Package filestate tracks which extract files have been consumed.
//
// The layout is three sibling directories under a root: new/ holds files
// dropped by the fetcher, processed/ and failed/ hold copies of files the
// loader has dealt with. A file is pending when its lowercase basename
// appears in new/ but in neither outcome directory. Transitions copy the
// file into the outcome directory and leave the source in new/ untouched,
// so a crashed run never loses an input.
package filestate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	pipelineerrors "sftp-data-ingestion/pkg/errors"
)

// Disposition names an outcome directory.
type Disposition string

const (
	Processed Disposition = "processed"
	Failed    Disposition = "failed"
)

// Store manages the new/processed/failed areas under a single root.
type Store struct {
	root string
	now  func() time.Time
}

// New creates the three area directories if needed and returns a Store.
func New(root string) (*Store, error) {
	s := &Store{root: root, now: time.Now}
	for _, dir := range []string{s.NewDir(), s.dir(Processed), s.dir(Failed)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, pipelineerrors.FileError(
				pipelineerrors.CodeDirectoryError, dir, err)
		}
	}
	return s, nil
}

// NewDir is the inbox directory the fetcher writes into.
func (s *Store) NewDir() string {
	return filepath.Join(s.root, "new")
}

func (s *Store) dir(d Disposition) string {
	return filepath.Join(s.root, string(d))
}

// PendingFiles lists the CSV files in new/ that have no copy in
// processed/ or failed/. Matching is by lowercase basename, so a file
// re-fetched with different casing is still recognized as done.
func (s *Store) PendingFiles() ([]string, error) {
	done := make(map[string]bool)
	for _, d := range []Disposition{Processed, Failed} {
		names, err := listCSV(s.dir(d))
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			done[strings.ToLower(baseName(n))] = true
		}
	}

	names, err := listCSV(s.NewDir())
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, n := range names {
		if !done[strings.ToLower(n)] {
			pending = append(pending, filepath.Join(s.NewDir(), n))
		}
	}
	return pending, nil
}

// Mark copies path into the outcome directory for d. The copy keeps the
// source modtime and is verified by size before the transition counts as
// done. Name collisions in the target get a timestamp suffix instead of
// overwriting the existing copy.
func (s *Store) Mark(path string, d Disposition) error {
	info, err := os.Stat(path)
	if err != nil {
		return pipelineerrors.FileError(pipelineerrors.CodeFileNotFound, path, err)
	}

	target := filepath.Join(s.dir(d), filepath.Base(path))
	if _, err := os.Stat(target); err == nil {
		target = dupName(target, s.now())
	}

	if err := copyFile(path, target, info); err != nil {
		return pipelineerrors.FileError(pipelineerrors.CodeCopyFailed, path, err)
	}

	copied, err := os.Stat(target)
	if err != nil {
		return pipelineerrors.FileError(pipelineerrors.CodeCopyFailed, target, err)
	}
	if copied.Size() != info.Size() {
		return pipelineerrors.FileError(pipelineerrors.CodeCopyFailed, target,
			fmt.Errorf("size mismatch after copy: %d != %d", copied.Size(), info.Size()))
	}
	return nil
}

// dupName appends __dup_YYYYMMDDHHMMSS before the extension.
func dupName(target string, at time.Time) string {
	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(target, ext)
	return fmt.Sprintf("%s__dup_%s%s", stem, at.Format("20060102150405"), ext)
}

func copyFile(src, dst string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func listCSV(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pipelineerrors.FileError(
			pipelineerrors.CodeDirectoryError, dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// baseName strips a dup suffix so re-marked files still dedupe against
// their original basename.
func baseName(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if i := strings.Index(stem, "__dup_"); i >= 0 {
		stem = stem[:i]
	}
	return stem + ext
}
