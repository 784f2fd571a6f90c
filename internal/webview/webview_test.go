package webview

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bioxydyn/project-archiver/internal/catalog"
	"github.com/Bioxydyn/project-archiver/internal/planner"
	"github.com/Bioxydyn/project-archiver/internal/tree"
)

func renderFixture(t *testing.T, warnings []string) string {
	t.Helper()
	mod := time.Date(2023, 4, 17, 0, 0, 0, 0, time.UTC)
	cat := &catalog.Catalog{
		Root: "data",
		Records: []catalog.FileRecord{
			{Path: "data/a/one.txt", Size: 900, ModTime: mod},
			{Path: "data/b/two.txt", Size: 900, ModTime: mod},
		},
	}

	root, err := tree.Build(cat)
	require.NoError(t, err)
	plan, err := planner.PlanChunks(root, planner.Settings{TargetSize: 1000, MinSize: 500, MaxSize: 1500})
	require.NoError(t, err)
	plan.Warnings = append(plan.Warnings, warnings...)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, cat, plan))
	return buf.String()
}

func TestRenderListsChunksAndFiles(t *testing.T) {
	out := renderFixture(t, nil)

	assert.Contains(t, out, "Chunks/Chunk0000001.zip")
	assert.Contains(t, out, "Chunks/Chunk0000002.zip")
	assert.Contains(t, out, "data/a/one.txt")
	assert.Contains(t, out, "data/b/two.txt")
	assert.Contains(t, out, "900 Bytes")
}

func TestRenderGroupsByDirectory(t *testing.T) {
	out := renderFixture(t, nil)

	// Directory sections appear in sorted order.
	a := bytes.Index([]byte(out), []byte("data/a"))
	b := bytes.Index([]byte(out), []byte("data/b"))
	require.GreaterOrEqual(t, a, 0)
	require.GreaterOrEqual(t, b, 0)
	assert.Less(t, a, b)
}

func TestRenderShowsWarnings(t *testing.T) {
	out := renderFixture(t, []string{"chunk 9 is below the tolerance band"})
	assert.Contains(t, out, "chunk 9 is below the tolerance band")
}

func TestRenderDirectoryScansAndRenders(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"a/one.txt", "b/two.txt"} {
		abs := filepath.Join(dir, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte("content"), 0o644))
	}

	var buf bytes.Buffer
	err := RenderDirectory(&buf, dir, planner.Settings{TargetSize: 1 << 20, MinSize: 1 << 19, MaxSize: 3 << 19})
	require.NoError(t, err)

	root := filepath.Base(dir)
	out := buf.String()
	assert.Contains(t, out, "Archive of "+root)
	assert.Contains(t, out, root+"/a/one.txt")
	assert.Contains(t, out, root+"/b/two.txt")
	assert.Contains(t, out, "Chunks/Chunk0000001.zip")
}

func TestRenderDirectoryMissingInput(t *testing.T) {
	var buf bytes.Buffer
	err := RenderDirectory(&buf, filepath.Join(t.TempDir(), "nope"),
		planner.Settings{TargetSize: 1 << 20, MinSize: 1 << 19, MaxSize: 3 << 19})
	assert.Error(t, err)
}

func TestRenderEscapesPaths(t *testing.T) {
	mod := time.Now()
	cat := &catalog.Catalog{
		Root: "data",
		Records: []catalog.FileRecord{
			{Path: "data/<script>.txt", Size: 1, ModTime: mod},
		},
	}
	root, err := tree.Build(cat)
	require.NoError(t, err)
	plan, err := planner.PlanChunks(root, planner.Settings{TargetSize: 1000, MinSize: 500, MaxSize: 1500})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, cat, plan))
	assert.NotContains(t, buf.String(), "<script>.txt")
	assert.Contains(t, buf.String(), "&lt;script&gt;.txt")
}
