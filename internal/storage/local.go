package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// localBackend implements Backend using a directory on the local filesystem.
// Used by tests and by runs that stage chunks to a mounted target.
type localBackend struct {
	rootPath string
}

func newLocalBackend(cfg Config) (*localBackend, error) {
	if cfg.RootPath == "" {
		return nil, fmt.Errorf("root path is required for the local backend")
	}
	if err := os.MkdirAll(cfg.RootPath, 0o755); err != nil {
		return nil, fmt.Errorf("create root path %s: %w", cfg.RootPath, err)
	}
	return &localBackend{rootPath: cfg.RootPath}, nil
}

func (b *localBackend) fullPath(key string) string {
	return filepath.Join(b.rootPath, filepath.FromSlash(key))
}

// PutObject writes content below the root atomically: temp file then rename.
func (b *localBackend) PutObject(_ context.Context, key string, body io.Reader, _ int64) error {
	path := b.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dirs for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".archiver-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

func (b *localBackend) GetObject(_ context.Context, key string) (io.ReadCloser, int64, error) {
	f, err := os.Open(b.fullPath(key))
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", key, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", key, err)
	}
	return f, info.Size(), nil
}

func (b *localBackend) ListObjects(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(b.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".archiver-") {
			return nil
		}
		rel, err := filepath.Rel(b.rootPath, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *localBackend) ObjectExists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(b.fullPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *localBackend) Type() string { return "local" }

func (b *localBackend) Close() error { return nil }
