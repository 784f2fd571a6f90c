// Package catalog builds and renders the source file catalog for an archive
// run. The catalog is the ordered, read-only record of every file found under
// the input directory; planning, building and the final completeness check
// all reconcile against it.
package catalog

import "time"

// FileRecord describes one source file. Records are immutable once the
// catalog is built; tree nodes and chunk plans reference them without
// copying.
type FileRecord struct {
	// Path is the archive-relative path, slash-separated and rooted at the
	// base name of the input directory. An input file
	// /data/project/a/b.txt is archived as project/a/b.txt.
	Path string

	// AbsolutePath is where the file lives on disk at scan time.
	AbsolutePath string

	// Size is the file size in bytes at scan time.
	Size int64

	// ModTime is the file's last modification time at scan time.
	ModTime time.Time
}

// Catalog is the complete ordered record of all scanned source files.
type Catalog struct {
	// Root is the archive root name, i.e. the base name of the input
	// directory and the first segment of every record path.
	Root string

	// InputDir is the absolute path of the scanned directory.
	InputDir string

	// Records holds one entry per source file, ordered lexicographically by
	// Path. The order is deterministic for a given tree.
	Records []FileRecord
}

// TotalSize returns the sum of all record sizes.
func (c *Catalog) TotalSize() int64 {
	var total int64
	for _, r := range c.Records {
		total += r.Size
	}
	return total
}

// MaxFileSize returns the size of the largest record, or 0 for an empty
// catalog.
func (c *Catalog) MaxFileSize() int64 {
	var max int64
	for _, r := range c.Records {
		if r.Size > max {
			max = r.Size
		}
	}
	return max
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.Records)
}
