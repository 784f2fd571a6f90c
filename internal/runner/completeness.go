package runner

import (
	"fmt"
	"io"
	"strings"

	"github.com/Bioxydyn/project-archiver/internal/catalog"
)

// CompletenessReport reconciles the union of all per-chunk listings against
// the catalog. It is the single terminal artifact that decides the run's
// outcome; per-chunk reports carry the file-level detail.
type CompletenessReport struct {
	CatalogFiles  int
	ArchivedFiles int
	Missing       []string // in the catalog, in no chunk listing
	Extra         []string // in a chunk listing, not in the catalog
	Mismatched    []SizeDiff
	FailedChunks  []int // chunks that failed build or verification
	Unattempted   int   // chunks never attempted (cancelled runs)
}

// SizeDiff is one path archived with a size differing from the catalog.
type SizeDiff struct {
	Path        string
	CatalogSize int64
	ArchiveSize int64
}

// Complete reports total success: every chunk verified and the sets are
// identical.
func (c *CompletenessReport) Complete() bool {
	return len(c.Missing) == 0 && len(c.Extra) == 0 && len(c.Mismatched) == 0 &&
		len(c.FailedChunks) == 0 && c.Unattempted == 0
}

// Err returns a summary error for an incomplete run, or nil.
func (c *CompletenessReport) Err() error {
	if c.Complete() {
		return nil
	}
	return fmt.Errorf("completeness mismatch: %d missing, %d extra, %d size mismatches, %d failed chunks, %d unattempted chunks",
		len(c.Missing), len(c.Extra), len(c.Mismatched), len(c.FailedChunks), c.Unattempted)
}

// CheckCompleteness forms the union of the chunk listings and compares it,
// keyed by path with size, against the catalog. It runs only after every
// chunk has been attempted.
func CheckCompleteness(cat *catalog.Catalog, results []ChunkResult) *CompletenessReport {
	report := &CompletenessReport{CatalogFiles: cat.Len()}

	inCatalog := make(map[string]int64, cat.Len())
	for _, rec := range cat.Records {
		inCatalog[rec.Path] = rec.Size
	}

	seen := make(map[string]bool, cat.Len())
	for i := range results {
		res := &results[i]
		if res.Failed() {
			report.FailedChunks = append(report.FailedChunks, res.Plan.ChunkID)
			continue
		}
		for _, e := range res.Artifact.Entries {
			report.ArchivedFiles++
			want, ok := inCatalog[e.Path]
			if !ok || seen[e.Path] {
				report.Extra = append(report.Extra, e.Path)
				continue
			}
			seen[e.Path] = true
			if e.Size != want {
				report.Mismatched = append(report.Mismatched, SizeDiff{
					Path:        e.Path,
					CatalogSize: want,
					ArchiveSize: e.Size,
				})
			}
		}
	}

	for _, rec := range cat.Records {
		if !seen[rec.Path] {
			report.Missing = append(report.Missing, rec.Path)
		}
	}

	return report
}

// NoteUnattempted records chunks that were planned but never processed.
func (c *CompletenessReport) NoteUnattempted(planned int, results []ChunkResult) {
	if missing := planned - len(results); missing > 0 {
		c.Unattempted = missing
	}
}

// Render writes the terminal report: a short success note or the itemized
// discrepancies.
func (c *CompletenessReport) Render(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Catalog files: %d\n", c.CatalogFiles)
	fmt.Fprintf(&b, "Archived files: %d\n\n", c.ArchivedFiles)

	if c.Complete() {
		b.WriteString("All cataloged files are present in exactly one chunk with the correct size.\n")
		b.WriteString("Archive run completed successfully.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	for _, id := range c.FailedChunks {
		fmt.Fprintf(&b, "FAILED CHUNK: chunk %d did not build or verify; see its ERROR file.\n", id)
	}
	if c.Unattempted > 0 {
		fmt.Fprintf(&b, "UNATTEMPTED: %d planned chunks were never processed.\n", c.Unattempted)
	}
	for _, p := range c.Missing {
		fmt.Fprintf(&b, "MISSING: %s is in the catalog but in no chunk.\n", p)
	}
	for _, p := range c.Extra {
		fmt.Fprintf(&b, "EXTRA: %s was archived but is not in the catalog.\n", p)
	}
	for _, m := range c.Mismatched {
		fmt.Fprintf(&b, "SIZE MISMATCH: %s archived at %d bytes, catalog says %d bytes.\n",
			m.Path, m.ArchiveSize, m.CatalogSize)
	}
	b.WriteString("\nArchive run FAILED.\n")
	_, err := io.WriteString(w, b.String())
	return err
}
