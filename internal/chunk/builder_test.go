package chunk

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bioxydyn/project-archiver/internal/catalog"
	"github.com/Bioxydyn/project-archiver/internal/planner"
)

// writeSourceTree creates files under dir and returns their records in
// lexicographic path order.
func writeSourceTree(t *testing.T, dir string, files map[string]string) []catalog.FileRecord {
	t.Helper()

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var records []catalog.FileRecord
	for _, p := range paths {
		abs := filepath.Join(dir, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(files[p]), 0o644))

		info, err := os.Stat(abs)
		require.NoError(t, err)
		records = append(records, catalog.FileRecord{
			Path:         "src/" + p,
			AbsolutePath: abs,
			Size:         info.Size(),
			ModTime:      info.ModTime(),
		})
	}
	return records
}

func planFor(records []catalog.FileRecord) planner.Plan {
	p := planner.Plan{ChunkID: 1, Units: 1, Entries: records}
	for _, rec := range records {
		p.TotalSize += rec.Size
	}
	return p
}

func TestBuildProducesAllArtifacts(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	records := writeSourceTree(t, srcDir, map[string]string{
		"docs/readme.txt": "hello world",
		"docs/notes.txt":  "some notes",
		"image.bin":       strings.Repeat("x", 4096),
	})
	plan := planFor(records)

	builder := NewBuilder(outDir, srcDir)
	art, err := builder.Build(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, 1, art.ChunkID)
	assert.FileExists(t, art.ArchivePath)
	assert.FileExists(t, art.ListingPath)
	assert.FileExists(t, art.HashPath)
	assert.Equal(t, filepath.Join(outDir, "Chunks", "Chunk0000001.zip"), art.ArchivePath)
	assert.Len(t, art.Entries, 3)
	assert.Equal(t, plan.TotalSize, art.TotalSize)

	// The digest is hex sha256 and matches the hash file.
	assert.Len(t, art.Digest, 64)
	hashContent, err := os.ReadFile(art.HashPath)
	require.NoError(t, err)
	assert.Equal(t, "SHA256: "+art.Digest+"  Chunk0000001.zip\n", string(hashContent))

	// The listing names every entry with its exact size.
	listing, err := os.ReadFile(art.ListingPath)
	require.NoError(t, err)
	for _, rec := range records {
		assert.Contains(t, string(listing), rec.Path)
	}
}

func TestBuildThenVerifyRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	records := writeSourceTree(t, srcDir, map[string]string{
		"a/one.txt":   "1111",
		"a/two.txt":   "22222222",
		"b/three.txt": "333",
	})
	plan := planFor(records)

	art, err := NewBuilder(outDir, srcDir).Build(context.Background(), plan)
	require.NoError(t, err)

	report := Verify(plan, art.ArchivePath)
	assert.True(t, report.OK())
	assert.Empty(t, report.Missing)
	assert.Empty(t, report.Extra)
	assert.Empty(t, report.Mismatched)
	assert.Equal(t, len(records), report.FilesInZip)
}

func TestBuildMissingSourceFile(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	records := writeSourceTree(t, srcDir, map[string]string{"keep.txt": "data"})
	records = append(records, catalog.FileRecord{
		Path:         "src/gone.txt",
		AbsolutePath: filepath.Join(srcDir, "gone.txt"),
		Size:         4,
	})
	plan := planFor(records)

	_, err := NewBuilder(outDir, srcDir).Build(context.Background(), plan)
	var missing *SourceFileMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "src/gone.txt", missing.Path)
}

func TestBuildSourceSizeChanged(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	records := writeSourceTree(t, srcDir, map[string]string{"file.txt": "original"})

	// The file grows after scan.
	require.NoError(t, os.WriteFile(records[0].AbsolutePath, []byte("original plus more"), 0o644))
	plan := planFor(records)

	_, err := NewBuilder(outDir, srcDir).Build(context.Background(), plan)
	var changed *SourceSizeChangedError
	require.ErrorAs(t, err, &changed)
	assert.Equal(t, "src/file.txt", changed.Path)
	assert.Equal(t, int64(len("original")), changed.CatalogSize)
	assert.Equal(t, int64(len("original plus more")), changed.ActualSize)
}

func TestBuildRefusesExistingArtifacts(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	records := writeSourceTree(t, srcDir, map[string]string{"file.txt": "data"})
	plan := planFor(records)

	builder := NewBuilder(outDir, srcDir)
	_, err := builder.Build(context.Background(), plan)
	require.NoError(t, err)

	_, err = builder.Build(context.Background(), plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestBuildCancelled(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	records := writeSourceTree(t, srcDir, map[string]string{"file.txt": "data"})
	plan := planFor(records)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(outDir, srcDir).Build(ctx, plan)
	require.ErrorIs(t, err, context.Canceled)
}
