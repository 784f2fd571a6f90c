// Package webview renders a static, browsable HTML view of the catalog and
// its chunk assignments. It is a pure consumer of the planner output and
// feeds nothing back into the pipeline.
package webview

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/Bioxydyn/project-archiver/internal/catalog"
	"github.com/Bioxydyn/project-archiver/internal/planner"
	"github.com/Bioxydyn/project-archiver/internal/tree"
)

//go:embed webview.html.tmpl
var templates embed.FS

// ChunkRow summarizes one chunk for the overview table.
type ChunkRow struct {
	ChunkID   int
	Archive   string
	Files     int
	TotalSize string
}

// FileRow is one catalog file with its chunk assignment.
type FileRow struct {
	Path     string
	Size     string
	Modified string
	ChunkID  int
}

// DirectorySection groups the files directly inside one directory.
type DirectorySection struct {
	Path  string
	Files []FileRow
}

// Page is the template input.
type Page struct {
	Root        string
	TotalFiles  int
	TotalSize   string
	Chunks      []ChunkRow
	Directories []DirectorySection
	Warnings    []string
}

// Render writes the HTML view for a planned catalog.
func Render(w io.Writer, cat *catalog.Catalog, plan *planner.Result) error {
	tmpl, err := template.ParseFS(templates, "webview.html.tmpl")
	if err != nil {
		return err
	}
	return tmpl.Execute(w, buildPage(cat, plan))
}

// RenderDirectory scans inputDir, plans chunks with the given settings, and
// writes the HTML view. A read-only preview: nothing is archived and the
// input is left untouched.
func RenderDirectory(w io.Writer, inputDir string, s planner.Settings) error {
	cat, err := catalog.Scan(inputDir, nil)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	root, err := tree.Build(cat)
	if err != nil {
		return fmt.Errorf("build tree: %w", err)
	}
	plan, err := planner.PlanChunks(root, s)
	if err != nil {
		return fmt.Errorf("plan chunks: %w", err)
	}
	return Render(w, cat, plan)
}

func buildPage(cat *catalog.Catalog, plan *planner.Result) Page {
	page := Page{
		Root:       cat.Root,
		TotalFiles: cat.Len(),
		TotalSize:  human(cat.TotalSize()),
		Warnings:   plan.Warnings,
	}

	for _, p := range plan.Plans {
		page.Chunks = append(page.Chunks, ChunkRow{
			ChunkID:   p.ChunkID,
			Archive:   "Chunks/" + archiveName(p.ChunkID),
			Files:     len(p.Entries),
			TotalSize: human(p.TotalSize),
		})
	}

	byDir := make(map[string][]FileRow)
	for _, rec := range cat.Records {
		dir := path.Dir(rec.Path)
		byDir[dir] = append(byDir[dir], FileRow{
			Path:     rec.Path,
			Size:     human(rec.Size),
			Modified: rec.ModTime.Format("2006-01-02"),
			ChunkID:  plan.Dictionary.ChunkFor(rec.Path),
		})
	}

	dirs := make([]string, 0, len(byDir))
	for dir := range byDir {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		page.Directories = append(page.Directories, DirectorySection{Path: dir, Files: byDir[dir]})
	}
	return page
}

func human(n int64) string {
	return strings.TrimSpace(catalog.BytesToHuman(n))
}

func archiveName(chunkID int) string {
	return fmt.Sprintf("Chunk%07d.zip", chunkID)
}
