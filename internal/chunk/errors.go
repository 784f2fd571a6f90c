// Package chunk materializes chunk plans into zip archives and verifies the
// result. Each chunk is independent: its archive, listing, digest and check
// report are owned by one worker, and a failure here is scoped to the chunk,
// never to the run.
package chunk

import "fmt"

// SourceFileMissingError reports a planned source file that vanished between
// scan and build. The source tree is assumed immutable for the duration of a
// run, so this is a hard error for the chunk.
type SourceFileMissingError struct {
	Path string
	Err  error
}

func (e *SourceFileMissingError) Error() string {
	return fmt.Sprintf("source file missing: %s", e.Path)
}

func (e *SourceFileMissingError) Unwrap() error { return e.Err }

// SourceSizeChangedError reports a source file whose size no longer matches
// the catalog at build time.
type SourceSizeChangedError struct {
	Path        string
	CatalogSize int64
	ActualSize  int64
}

func (e *SourceSizeChangedError) Error() string {
	return fmt.Sprintf("source file %s changed size: catalog %d bytes, now %d bytes",
		e.Path, e.CatalogSize, e.ActualSize)
}

// ArchiveCorruptError reports an archive the verifier cannot open or parse.
type ArchiveCorruptError struct {
	ArchivePath string
	Err         error
}

func (e *ArchiveCorruptError) Error() string {
	return fmt.Sprintf("archive corrupt: %s: %v", e.ArchivePath, e.Err)
}

func (e *ArchiveCorruptError) Unwrap() error { return e.Err }
