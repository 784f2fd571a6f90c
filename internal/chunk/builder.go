package chunk

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/Bioxydyn/project-archiver/internal/catalog"
	"github.com/Bioxydyn/project-archiver/internal/planner"
)

// ChunksDirName is the subdirectory of the output root holding per-chunk
// artifacts.
const ChunksDirName = "Chunks"

// EntryInfo is one archive entry as read back from the filesystem at write
// time.
type EntryInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Artifact describes a built chunk: where the archive lives, its digest, and
// the entries actually written.
type Artifact struct {
	ChunkID     int
	ArchivePath string
	ListingPath string
	HashPath    string
	Digest      string // hex-encoded SHA-256 of the archive bytes
	Entries     []EntryInfo
	TotalSize   int64
}

// Builder materializes chunk plans under an output root. Builders are
// stateless and safe for concurrent use; each Build call owns its chunk's
// artifacts exclusively.
type Builder struct {
	outputDir string
	inputDir  string
}

// NewBuilder returns a builder writing below outputDir. inputDir is recorded
// in per-chunk listings.
func NewBuilder(outputDir, inputDir string) *Builder {
	return &Builder{outputDir: outputDir, inputDir: inputDir}
}

// ArtifactName returns the base name of a chunk artifact, e.g.
// ArtifactName(3, ".zip") == "Chunk0000003.zip".
func ArtifactName(chunkID int, suffix string) string {
	return fmt.Sprintf("Chunk%07d%s", chunkID, suffix)
}

// Build creates the chunk archive, its listing and its digest file. It fails
// if any artifact already exists (resume is unsupported), if a source file is
// missing, or if a source size no longer matches the plan.
func (b *Builder) Build(ctx context.Context, plan planner.Plan) (*Artifact, error) {
	chunksDir := filepath.Join(b.outputDir, ChunksDirName)
	if err := os.MkdirAll(chunksDir, 0o755); err != nil {
		return nil, fmt.Errorf("create chunks dir: %w", err)
	}

	art := &Artifact{
		ChunkID:     plan.ChunkID,
		ArchivePath: filepath.Join(chunksDir, ArtifactName(plan.ChunkID, ".zip")),
		ListingPath: filepath.Join(chunksDir, ArtifactName(plan.ChunkID, "Listing.txt")),
		HashPath:    filepath.Join(chunksDir, ArtifactName(plan.ChunkID, "Hash.txt")),
	}

	for _, p := range []string{art.ArchivePath, art.ListingPath, art.HashPath} {
		if _, err := os.Stat(p); err == nil {
			return nil, fmt.Errorf("output file %s already exists - resume is not supported", p)
		}
	}

	if err := b.writeArchive(ctx, plan, art); err != nil {
		return nil, err
	}

	digest, err := hashFile(art.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("hash archive: %w", err)
	}
	art.Digest = digest

	hashLine := fmt.Sprintf("SHA256: %s  %s\n", digest, filepath.Base(art.ArchivePath))
	if err := os.WriteFile(art.HashPath, []byte(hashLine), 0o644); err != nil {
		return nil, fmt.Errorf("write hash file: %w", err)
	}

	if err := b.writeListing(plan, art); err != nil {
		return nil, err
	}

	return art, nil
}

func (b *Builder) writeArchive(ctx context.Context, plan planner.Plan, art *Artifact) error {
	f, err := os.Create(art.ArchivePath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	for _, rec := range plan.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := b.writeEntry(zw, rec)
		if err != nil {
			return err
		}
		art.Entries = append(art.Entries, entry)
		art.TotalSize += entry.Size
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return f.Close()
}

func (b *Builder) writeEntry(zw *zip.Writer, rec catalog.FileRecord) (EntryInfo, error) {
	info, err := os.Stat(rec.AbsolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			return EntryInfo{}, &SourceFileMissingError{Path: rec.Path, Err: err}
		}
		return EntryInfo{}, fmt.Errorf("stat %s: %w", rec.AbsolutePath, err)
	}
	if info.Size() != rec.Size {
		return EntryInfo{}, &SourceSizeChangedError{
			Path:        rec.Path,
			CatalogSize: rec.Size,
			ActualSize:  info.Size(),
		}
	}

	src, err := os.Open(rec.AbsolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			return EntryInfo{}, &SourceFileMissingError{Path: rec.Path, Err: err}
		}
		return EntryInfo{}, fmt.Errorf("open %s: %w", rec.AbsolutePath, err)
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     rec.Path,
		Method:   zip.Deflate,
		Modified: info.ModTime(),
	})
	if err != nil {
		return EntryInfo{}, fmt.Errorf("create entry %s: %w", rec.Path, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return EntryInfo{}, fmt.Errorf("write entry %s: %w", rec.Path, err)
	}

	return EntryInfo{Path: rec.Path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (b *Builder) writeListing(plan planner.Plan, art *Artifact) error {
	f, err := os.Create(art.ListingPath)
	if err != nil {
		return fmt.Errorf("create listing: %w", err)
	}
	defer f.Close()

	var maxSize int64
	for _, e := range art.Entries {
		if e.Size > maxSize {
			maxSize = e.Size
		}
	}

	title := ArtifactName(plan.ChunkID, "")
	header := catalog.ListingHeader(title, art.TotalSize, maxSize, len(art.Entries), b.inputDir, time.Now())
	if _, err := io.WriteString(f, header); err != nil {
		return err
	}
	for _, e := range art.Entries {
		rec := catalog.FileRecord{Path: e.Path, Size: e.Size, ModTime: e.ModTime}
		if _, err := io.WriteString(f, catalog.ListingLine(rec, "")); err != nil {
			return err
		}
	}
	return f.Close()
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
