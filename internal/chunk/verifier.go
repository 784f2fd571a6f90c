package chunk

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Bioxydyn/project-archiver/internal/catalog"
	"github.com/Bioxydyn/project-archiver/internal/planner"
)

// SizeMismatch is one entry whose size in the archive differs from the plan.
type SizeMismatch struct {
	Path        string
	PlannedSize int64
	ArchiveSize int64
}

// Report is the outcome of verifying one chunk archive against its plan.
// Verification is structural: entry presence and size, not byte content.
type Report struct {
	ChunkID      int
	FilesInZip   int
	BytesInZip   int64 // sum of uncompressed entry sizes
	FilesPlanned int
	Missing      []string       // planned but absent from the archive
	Extra        []string       // present in the archive but unplanned
	Mismatched   []SizeMismatch // present with the wrong size
	CorruptErr   error          // set when the archive cannot be opened
}

// OK reports whether the archive matched the plan exactly.
func (r *Report) OK() bool {
	return r.CorruptErr == nil && len(r.Missing) == 0 && len(r.Extra) == 0 && len(r.Mismatched) == 0
}

// Err returns a summary error for a failed report, or nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	if r.CorruptErr != nil {
		return r.CorruptErr
	}
	return fmt.Errorf("chunk %d verification mismatch: %d missing, %d extra, %d size mismatches",
		r.ChunkID, len(r.Missing), len(r.Extra), len(r.Mismatched))
}

// Verify reopens the archive and compares its contents against the plan:
// every planned path must appear exactly once with the recorded size, and
// nothing else may be present.
func Verify(plan planner.Plan, archivePath string) *Report {
	report := &Report{ChunkID: plan.ChunkID, FilesPlanned: len(plan.Entries)}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		report.CorruptErr = &ArchiveCorruptError{ArchivePath: archivePath, Err: err}
		return report
	}
	defer zr.Close()

	inZip := make(map[string]int64, len(zr.File))
	counts := make(map[string]int, len(zr.File))
	report.FilesInZip = len(zr.File)
	for _, f := range zr.File {
		inZip[f.Name] = int64(f.UncompressedSize64)
		counts[f.Name]++
		report.BytesInZip += int64(f.UncompressedSize64)
	}

	planned := make(map[string]bool, len(plan.Entries))
	for _, rec := range plan.Entries {
		planned[rec.Path] = true
		size, ok := inZip[rec.Path]
		if !ok {
			report.Missing = append(report.Missing, rec.Path)
			continue
		}
		if size != rec.Size {
			report.Mismatched = append(report.Mismatched, SizeMismatch{
				Path:        rec.Path,
				PlannedSize: rec.Size,
				ArchiveSize: size,
			})
		}
	}

	for _, f := range zr.File {
		if !planned[f.Name] {
			report.Extra = append(report.Extra, f.Name)
			planned[f.Name] = true // report each unplanned path once
		} else if counts[f.Name] > 1 {
			report.Extra = append(report.Extra, f.Name)
			counts[f.Name] = 1 // duplicate planned path: extra copies are unplanned
		}
	}

	return report
}

// Render writes the human-readable check report: the success prose for a
// clean archive, or the itemized discrepancies for a failed one.
func (r *Report) Render(w io.Writer, plannedSize int64) error {
	var b strings.Builder

	if r.CorruptErr != nil {
		fmt.Fprintf(&b, "Could not open archive for chunk %d:\n%v\n", r.ChunkID, r.CorruptErr)
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "Found %d files in zip file.\n", r.FilesInZip)
	fmt.Fprintf(&b, "Found %d files in input chunk.\n\n", r.FilesPlanned)
	fmt.Fprintf(&b, "Total size of files in zip file: %s (%s bytes).\n",
		strings.TrimSpace(catalog.BytesToHuman(r.BytesInZip)), catalog.GroupThousands(r.BytesInZip))
	fmt.Fprintf(&b, "Total size of files in input chunk:  %s (%s bytes).\n\n",
		strings.TrimSpace(catalog.BytesToHuman(plannedSize)), catalog.GroupThousands(plannedSize))

	if r.OK() {
		b.WriteString("All files in input chunk are present in zip file.\n\n")
		b.WriteString("All files in zip file have the correct size.\n\n")
		b.WriteString("Checks completed successfully.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	for _, p := range r.Missing {
		fmt.Fprintf(&b, "MISSING: %s is not present in the zip file.\n", p)
	}
	for _, p := range r.Extra {
		fmt.Fprintf(&b, "EXTRA: %s is present in the zip file but was not planned.\n", p)
	}
	for _, m := range r.Mismatched {
		fmt.Fprintf(&b, "SIZE MISMATCH: %s is %d bytes in the zip file, %d bytes in the plan.\n",
			m.Path, m.ArchiveSize, m.PlannedSize)
	}
	b.WriteString("\nChecks FAILED.\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteCheckFile persists the report next to the archive: Check.txt on
// success, ERROR.txt on failure.
func (r *Report) WriteCheckFile(outputDir string, plannedSize int64) (string, error) {
	suffix := "Check.txt"
	if !r.OK() {
		suffix = "ERROR.txt"
	}
	path := filepath.Join(outputDir, ChunksDirName, ArtifactName(r.ChunkID, suffix))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create check file: %w", err)
	}
	defer f.Close()

	if err := r.Render(f, plannedSize); err != nil {
		return "", fmt.Errorf("write check file: %w", err)
	}
	return path, f.Close()
}
