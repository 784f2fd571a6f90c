// Package storage defines the Backend interface for chunk object storage.
package storage

import (
	"context"
	"fmt"
	"io"
)

// Backend is the interface for object storage backends. Implementations
// handle raw object I/O (S3-compatible services or a local directory used in
// tests and offline runs). Chunk metadata never lives here; the archive
// output directory is the source of truth.
type Backend interface {
	// PutObject uploads content to the given key.
	PutObject(ctx context.Context, key string, body io.Reader, size int64) error

	// GetObject retrieves an object by key, returning its content and size.
	GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// ListObjects returns all keys with the given prefix, in lexicographic
	// order.
	ListObjects(ctx context.Context, prefix string) ([]string, error)

	// ObjectExists checks if an object exists at the given key.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// Type returns the backend type identifier ("s3", "local").
	Type() string

	// Close releases any resources held by the backend.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Type string // "s3" or "local"

	// S3 settings
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string

	// Local settings
	RootPath string
}

// New creates a Backend from config.
func New(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Type {
	case "s3":
		return newS3Backend(ctx, cfg)
	case "local":
		return newLocalBackend(cfg)
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Type)
	}
}
