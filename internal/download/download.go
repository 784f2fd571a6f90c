// Package download retrieves a project's chunk archives from object storage
// and extracts them back into a directory tree.
package download

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Bioxydyn/project-archiver/internal/logging"
	"github.com/Bioxydyn/project-archiver/internal/storage"
)

// Options configure a download run.
type Options struct {
	// Project is the object key prefix the chunks were uploaded under.
	Project string

	// WorkDir holds each zip temporarily between download and extraction.
	WorkDir string

	// OutputDir is where archive contents are extracted. Created if absent.
	OutputDir string
}

// Run downloads every chunk archive under the project prefix and extracts
// it into the output directory. Each zip is deleted locally after
// extraction, so disk usage stays at one chunk plus the extracted tree.
func Run(ctx context.Context, backend storage.Backend, opts Options) error {
	if err := os.MkdirAll(opts.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create working dir: %w", err)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	keys, err := backend.ListObjects(ctx, opts.Project)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}
	var zips []string
	for _, key := range keys {
		if strings.HasSuffix(key, ".zip") {
			zips = append(zips, key)
		}
	}
	if len(zips) == 0 {
		return fmt.Errorf("no chunk archives found for project %q", opts.Project)
	}
	logging.Info("found chunk archives", zap.Int("count", len(zips)), zap.String("project", opts.Project))

	for i, key := range zips {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fetchAndExtract(ctx, backend, key, opts); err != nil {
			return fmt.Errorf("chunk %s: %w", key, err)
		}
		logging.Info("downloaded and extracted",
			zap.String("key", key),
			zap.Int("done", i+1),
			zap.Int("total", len(zips)))
	}

	logging.Info("download complete", zap.Int("chunks", len(zips)))
	return nil
}

func fetchAndExtract(ctx context.Context, backend storage.Backend, key string, opts Options) error {
	local := filepath.Join(opts.WorkDir, filepath.Base(key))
	if err := fetch(ctx, backend, key, local); err != nil {
		return err
	}
	defer os.Remove(local)

	return extract(local, opts.OutputDir)
}

func fetch(ctx context.Context, backend storage.Backend, key, local string) error {
	body, _, err := backend.GetObject(ctx, key)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("create %s: %w", local, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	return f.Close()
}

// extract unpacks a chunk zip. Entry paths are validated against the output
// root so a crafted archive cannot write outside it.
func extract(zipPath, outputDir string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	for _, entry := range zr.File {
		if err := extractEntry(entry, outputDir); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(entry *zip.File, outputDir string) error {
	dst := filepath.Join(outputDir, filepath.FromSlash(entry.Name))
	rel, err := filepath.Rel(outputDir, dst)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("entry %q escapes the output directory", entry.Name)
	}

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(dst, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create dirs for %s: %w", entry.Name, err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", entry.Name, err)
	}
	defer src.Close()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, src); err != nil {
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, entry.Modified, entry.Modified)
}
