package catalog

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/Bioxydyn/project-archiver/internal/metrics"
)

// Scan walks inputDir and returns the catalog of all regular files below it.
// Symlinks and other non-regular entries are skipped. The walk is lexical, so
// record order is deterministic for a given tree. progress may be nil.
func Scan(inputDir string, progress *Progress) (*Catalog, error) {
	abs, err := filepath.Abs(inputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve input dir: %w", err)
	}

	cat := &Catalog{
		Root:     filepath.Base(abs),
		InputDir: abs,
	}

	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}
		if d.IsDir() {
			if path != abs && progress != nil {
				progress.AddDirectory()
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}

		rec := FileRecord{
			Path:         cat.Root + "/" + filepath.ToSlash(rel),
			AbsolutePath: path,
			Size:         info.Size(),
			ModTime:      info.ModTime(),
		}
		cat.Records = append(cat.Records, rec)

		metrics.RecordScannedFile(rec.Size)
		if progress != nil {
			progress.AddFile(rec.Size)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cat, nil
}
