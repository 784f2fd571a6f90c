package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bioxydyn/project-archiver/internal/chunk"
	"github.com/Bioxydyn/project-archiver/internal/retry"
)

// flakyBackend fails the first failures PutObject calls, then stores objects
// in memory.
type flakyBackend struct {
	mu       sync.Mutex
	failures int
	calls    int
	objects  map[string][]byte
}

func newFlakyBackend(failures int) *flakyBackend {
	return &flakyBackend{failures: failures, objects: map[string][]byte{}}
}

func (b *flakyBackend) PutObject(_ context.Context, key string, body io.Reader, _ int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.calls <= b.failures {
		return errors.New("connection reset")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *flakyBackend) GetObject(context.Context, string) (io.ReadCloser, int64, error) {
	return nil, 0, errors.New("not implemented")
}

func (b *flakyBackend) ListObjects(context.Context, string) ([]string, error) {
	return nil, errors.New("not implemented")
}

func (b *flakyBackend) ObjectExists(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok, nil
}

func (b *flakyBackend) Type() string { return "fake" }

func (b *flakyBackend) Close() error { return nil }

func testArtifact(t *testing.T, content string) *chunk.Artifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Chunk0000001.zip")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return &chunk.Artifact{ChunkID: 1, ArchivePath: path, Digest: "abc"}
}

func fastUploader(backend *flakyBackend) *Uploader {
	u := New(backend, "proj")
	u.retry = retry.Config{MaxAttempts: 3, InitialWait: 1, MaxWait: 1, Multiplier: 1}
	return u
}

func TestUploadKey(t *testing.T) {
	u := New(newFlakyBackend(0), "my-project")
	assert.Equal(t, "my-project/Chunk0000007.zip", u.Key(7))
}

func TestUploadStoresArchive(t *testing.T) {
	backend := newFlakyBackend(0)
	art := testArtifact(t, "zip bytes")

	err := fastUploader(backend).Upload(context.Background(), art)
	require.NoError(t, err)
	assert.Equal(t, []byte("zip bytes"), backend.objects["proj/Chunk0000001.zip"])
}

func TestUploadRetriesTransientFailures(t *testing.T) {
	backend := newFlakyBackend(2)
	art := testArtifact(t, "zip bytes")

	err := fastUploader(backend).Upload(context.Background(), art)
	require.NoError(t, err)
	assert.Equal(t, 3, backend.calls)
	assert.Contains(t, backend.objects, "proj/Chunk0000001.zip")
}

func TestUploadGivesUpAfterBudget(t *testing.T) {
	backend := newFlakyBackend(10)
	art := testArtifact(t, "zip bytes")

	err := fastUploader(backend).Upload(context.Background(), art)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload chunk 1")
	assert.Equal(t, 3, backend.calls)
}

func TestUploadMissingArchiveIsPermanent(t *testing.T) {
	backend := newFlakyBackend(0)
	art := &chunk.Artifact{ChunkID: 2, ArchivePath: filepath.Join(t.TempDir(), "gone.zip")}

	err := fastUploader(backend).Upload(context.Background(), art)
	require.Error(t, err)
	assert.Equal(t, 0, backend.calls)
}
