// Package runner orchestrates an archive run: scan, plan, build and verify
// chunks in parallel, optionally upload, then reconcile everything against
// the catalog. Data flows strictly forward; the only synchronization point
// is the barrier before the completeness check.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Bioxydyn/project-archiver/internal/catalog"
	"github.com/Bioxydyn/project-archiver/internal/chunk"
	"github.com/Bioxydyn/project-archiver/internal/config"
	"github.com/Bioxydyn/project-archiver/internal/logging"
	"github.com/Bioxydyn/project-archiver/internal/metrics"
	"github.com/Bioxydyn/project-archiver/internal/planner"
	"github.com/Bioxydyn/project-archiver/internal/tree"
	"github.com/Bioxydyn/project-archiver/internal/webview"
)

// Uploader receives one verified artifact per chunk. Implementations record
// their own outcome; the runner only captures the returned error.
type Uploader interface {
	Upload(ctx context.Context, art *chunk.Artifact) error
}

// Options configure a run beyond the static config.
type Options struct {
	Config *config.Config

	// Uploader, when non-nil, is offered each chunk as soon as its
	// verification succeeds.
	Uploader Uploader

	// ProgressInterval throttles scan progress logging; zero disables it.
	ProgressInterval time.Duration
}

// ChunkResult is the terminal record for one chunk.
type ChunkResult struct {
	Plan     planner.Plan
	Artifact *chunk.Artifact // nil when the build failed
	Report   *chunk.Report   // nil when the build failed
	BuildErr error
	UploadErr error
}

// Failed reports whether the chunk failed to build or verify. Upload
// failures are tracked separately: the chunk archive itself is still good.
func (r *ChunkResult) Failed() bool {
	if r.BuildErr != nil {
		return true
	}
	return r.Report != nil && !r.Report.OK()
}

// Err returns the chunk's build or verification error, or nil.
func (r *ChunkResult) Err() error {
	if r.BuildErr != nil {
		return fmt.Errorf("chunk %d build: %w", r.Plan.ChunkID, r.BuildErr)
	}
	if r.Report != nil {
		return r.Report.Err()
	}
	return nil
}

// RunReport is the overall outcome of an archive run.
type RunReport struct {
	Catalog      *catalog.Catalog
	Plans        []planner.Plan
	Warnings     []string
	Results      []ChunkResult
	Completeness *CompletenessReport
}

// Success reports whether every chunk built, verified, and the catalog
// reconciled completely.
func (r *RunReport) Success() bool {
	return r.Completeness != nil && r.Completeness.Complete()
}

// UploadFailures returns the number of chunks whose upload failed.
func (r *RunReport) UploadFailures() int {
	var n int
	for i := range r.Results {
		if r.Results[i].UploadErr != nil {
			n++
		}
	}
	return n
}

// Err aggregates every per-chunk and completeness error.
func (r *RunReport) Err() error {
	var err error
	for i := range r.Results {
		err = multierr.Append(err, r.Results[i].Err())
		if r.Results[i].UploadErr != nil {
			err = multierr.Append(err, r.Results[i].UploadErr)
		}
	}
	if r.Completeness != nil {
		err = multierr.Append(err, r.Completeness.Err())
	}
	return err
}

// Run executes a full archive run. Only structural errors that make planning
// impossible are returned; per-chunk failures are folded into the report and
// the final sentinel.
func Run(ctx context.Context, opts Options) (*RunReport, error) {
	cfg := opts.Config

	if err := preflight(cfg.InputDir, cfg.OutputDir); err != nil {
		return nil, err
	}

	// Scan.
	var progress *catalog.Progress
	if opts.ProgressInterval > 0 {
		progress = catalog.NewProgress(opts.ProgressInterval)
	}
	logging.Info("scanning input directory", zap.String("dir", cfg.InputDir))
	cat, err := catalog.Scan(cfg.InputDir, progress)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if progress != nil {
		progress.LogSummary()
	}

	if err := writeFullListing(cfg.OutputDir, cat); err != nil {
		return nil, err
	}

	// Plan.
	root, err := tree.Build(cat)
	if err != nil {
		return nil, fmt.Errorf("build tree: %w", err)
	}
	plan, err := planner.PlanChunks(root, planner.Settings{
		TargetSize: cfg.TargetChunkSize,
		MinSize:    cfg.MinChunkSize(),
		MaxSize:    cfg.MaxChunkSize(),
	})
	if err != nil {
		return nil, fmt.Errorf("plan chunks: %w", err)
	}
	metrics.SetChunksPlanned(len(plan.Plans))
	logging.Info("chunk plan ready",
		zap.Int("chunks", len(plan.Plans)),
		zap.Int("files", cat.Len()))
	for _, w := range plan.Warnings {
		logging.Warn("chunk size deviation", zap.String("detail", w))
	}

	if err := writeDictionary(cfg, plan.Dictionary); err != nil {
		return nil, err
	}
	if err := writeWebView(cfg.OutputDir, cat, plan); err != nil {
		return nil, err
	}

	report := &RunReport{
		Catalog:  cat,
		Plans:    plan.Plans,
		Warnings: plan.Warnings,
	}

	// Build and verify chunks in parallel, upload as they verify.
	report.Results = processChunks(ctx, opts, plan.Plans)

	// Barrier passed: reconcile against the catalog. A cancelled run leaves
	// plans with no result; those count as unattempted.
	report.Completeness = CheckCompleteness(cat, report.Results)
	report.Completeness.NoteUnattempted(len(plan.Plans), report.Results)
	if err := writeSentinel(cfg.OutputDir, report.Completeness); err != nil {
		return nil, err
	}

	if report.Success() {
		logging.Info("archive run complete",
			zap.Int("chunks", len(report.Results)),
			zap.Int("files", cat.Len()))
	} else {
		logging.Error("archive run incomplete", zap.Error(report.Err()))
	}
	return report, nil
}

func preflight(inputDir, outputDir string) error {
	for _, check := range []struct {
		path string
		name string
	}{
		{inputDir, "input"},
		{outputDir, "output"},
	} {
		info, err := os.Stat(check.path)
		if err != nil {
			return fmt.Errorf("%s directory %s does not exist", check.name, check.path)
		}
		if !info.IsDir() {
			return fmt.Errorf("%s directory %s is not a directory", check.name, check.path)
		}
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return fmt.Errorf("read output directory: %w", err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("output directory %s is not empty", outputDir)
	}
	return nil
}

// processChunks runs the bounded worker pool. Each worker owns its chunk's
// artifacts exclusively; results funnel through one channel into a slice
// ordered by chunk id.
func processChunks(ctx context.Context, opts Options, plans []planner.Plan) []ChunkResult {
	cfg := opts.Config
	builder := chunk.NewBuilder(cfg.OutputDir, cfg.InputDir)

	jobs := make(chan planner.Plan)
	out := make(chan ChunkResult)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				out <- processOne(ctx, builder, opts, p)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, p := range plans {
			select {
			case jobs <- p:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	var results []ChunkResult
	for res := range out {
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Plan.ChunkID < results[j].Plan.ChunkID
	})
	return results
}

// processOne builds, verifies and optionally uploads a single chunk. Any
// failure is recorded in the result; it never aborts other chunks.
func processOne(ctx context.Context, builder *chunk.Builder, opts Options, p planner.Plan) ChunkResult {
	res := ChunkResult{Plan: p}
	cfg := opts.Config

	start := time.Now()
	art, err := builder.Build(ctx, p)
	if err != nil {
		metrics.RecordChunkBuild(time.Since(start), false, 0)
		logging.Error("chunk build failed", zap.Int("chunk", p.ChunkID), zap.Error(err))
		res.BuildErr = err
		return res
	}
	metrics.RecordChunkBuild(time.Since(start), true, art.TotalSize)
	res.Artifact = art

	start = time.Now()
	res.Report = chunk.Verify(p, art.ArchivePath)
	metrics.RecordChunkVerify(time.Since(start), res.Report.OK())
	if _, err := res.Report.WriteCheckFile(cfg.OutputDir, p.TotalSize); err != nil {
		logging.Error("check file write failed", zap.Int("chunk", p.ChunkID), zap.Error(err))
	}
	if !res.Report.OK() {
		logging.Error("chunk verification failed", zap.Int("chunk", p.ChunkID), zap.Error(res.Report.Err()))
		return res
	}

	logging.Info("chunk ready",
		zap.Int("chunk", p.ChunkID),
		zap.Int("files", len(p.Entries)),
		zap.Int64("bytes", p.TotalSize),
		zap.String("digest", art.Digest))

	if opts.Uploader != nil {
		res.UploadErr = opts.Uploader.Upload(ctx, art)
	}
	return res
}

func writeFullListing(outputDir string, cat *catalog.Catalog) error {
	f, err := os.Create(filepath.Join(outputDir, "FullListing.txt"))
	if err != nil {
		return fmt.Errorf("create full listing: %w", err)
	}
	defer f.Close()
	if err := catalog.WriteFullListing(f, cat, time.Now()); err != nil {
		return fmt.Errorf("write full listing: %w", err)
	}
	return f.Close()
}

func writeDictionary(cfg *config.Config, dict *planner.Dictionary) error {
	name := "ChunkDictionary.txt"
	if cfg.DictFormat == "json" {
		name = "ChunkDictionary.json"
	}
	f, err := os.Create(filepath.Join(cfg.OutputDir, name))
	if err != nil {
		return fmt.Errorf("create dictionary: %w", err)
	}
	defer f.Close()

	if cfg.DictFormat == "json" {
		err = dict.WriteJSON(f)
	} else {
		err = dict.WriteText(f)
	}
	if err != nil {
		return fmt.Errorf("write dictionary: %w", err)
	}
	return f.Close()
}

func writeWebView(outputDir string, cat *catalog.Catalog, plan *planner.Result) error {
	f, err := os.Create(filepath.Join(outputDir, "WebView.html"))
	if err != nil {
		return fmt.Errorf("create web view: %w", err)
	}
	defer f.Close()
	if err := webview.Render(f, cat, plan); err != nil {
		return fmt.Errorf("render web view: %w", err)
	}
	return f.Close()
}

func writeSentinel(outputDir string, comp *CompletenessReport) error {
	name := "CompleteError.txt"
	if comp.Complete() {
		name = "CompleteSuccess.txt"
	}
	f, err := os.Create(filepath.Join(outputDir, name))
	if err != nil {
		return fmt.Errorf("create sentinel: %w", err)
	}
	defer f.Close()
	if err := comp.Render(f); err != nil {
		return fmt.Errorf("write sentinel: %w", err)
	}
	return f.Close()
}
