// Package upload pushes verified chunk archives to object storage. The
// uploader is a collaborator of the chunk pipeline: it is offered one
// verified artifact at a time and records the outcome; it never decides the
// fate of the run.
package upload

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Bioxydyn/project-archiver/internal/chunk"
	"github.com/Bioxydyn/project-archiver/internal/logging"
	"github.com/Bioxydyn/project-archiver/internal/metrics"
	"github.com/Bioxydyn/project-archiver/internal/retry"
	"github.com/Bioxydyn/project-archiver/internal/storage"
)

// Uploader uploads chunk archives under a project prefix.
type Uploader struct {
	backend storage.Backend
	project string
	retry   retry.Config
}

// New returns an uploader writing keys of the form
// <project>/Chunk0000001.zip.
func New(backend storage.Backend, project string) *Uploader {
	return &Uploader{
		backend: backend,
		project: project,
		retry:   retry.DefaultConfig(),
	}
}

// Key returns the object key for a chunk id.
func (u *Uploader) Key(chunkID int) string {
	return u.project + "/" + chunk.ArtifactName(chunkID, ".zip")
}

// Upload pushes one verified artifact. Transient failures are retried with
// backoff; the final outcome is returned for the run report.
func (u *Uploader) Upload(ctx context.Context, art *chunk.Artifact) error {
	key := u.Key(art.ChunkID)
	start := time.Now()

	err := retry.Do(ctx, u.retry, func() error {
		f, err := os.Open(art.ArchivePath)
		if err != nil {
			// Not retryable: the artifact is gone.
			return fmt.Errorf("open archive: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("stat archive: %w", err)
		}

		if err := u.backend.PutObject(ctx, key, f, info.Size()); err != nil {
			return retry.Retryable(err)
		}
		return nil
	})

	metrics.RecordUpload(time.Since(start), err == nil)
	if err != nil {
		logging.Error("chunk upload failed",
			zap.Int("chunk", art.ChunkID),
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("upload chunk %d: %w", art.ChunkID, err)
	}

	logging.Info("chunk uploaded",
		zap.Int("chunk", art.ChunkID),
		zap.String("key", key),
		zap.String("digest", art.Digest),
		zap.Duration("duration", time.Since(start)))
	return nil
}
