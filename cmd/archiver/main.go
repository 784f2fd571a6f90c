// Command archiver splits a directory tree into size-bounded zip chunks,
// verifies them, and optionally uploads them to S3-compatible object
// storage. The companion download subcommand restores a project from
// storage; webview previews the chunk layout for a directory without
// archiving anything.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/Bioxydyn/project-archiver/internal/config"
	"github.com/Bioxydyn/project-archiver/internal/download"
	"github.com/Bioxydyn/project-archiver/internal/logging"
	"github.com/Bioxydyn/project-archiver/internal/metrics"
	"github.com/Bioxydyn/project-archiver/internal/planner"
	"github.com/Bioxydyn/project-archiver/internal/runner"
	"github.com/Bioxydyn/project-archiver/internal/storage"
	"github.com/Bioxydyn/project-archiver/internal/upload"
	"github.com/Bioxydyn/project-archiver/internal/webview"
)

const version = "1.0.0"

const progressInterval = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:    "archiver",
		Usage:   "archive a directory into chunks of a given size",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "archive",
				Usage: "scan a directory, build chunk archives, verify and optionally upload them",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input-dir", Usage: "path to the input directory"},
					&cli.StringFlag{Name: "output-dir", Usage: "path to the (empty) output directory"},
					&cli.IntFlag{Name: "target-chunk-size-mb", Usage: "target size of each chunk in MB"},
					&cli.IntFlag{Name: "workers", Usage: "number of parallel chunk workers"},
					&cli.StringFlag{Name: "dictionary-format", Usage: "chunk dictionary format: text or json"},
					&cli.BoolFlag{Name: "upload", Usage: "upload verified chunks to object storage"},
					&cli.StringFlag{Name: "project-name", Usage: "object key prefix for uploaded chunks"},
				},
				Action: archiveAction,
			},
			{
				Name:  "webview",
				Usage: "render the browsable HTML view for a directory without archiving it",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input-dir", Usage: "path to the input directory"},
					&cli.StringFlag{Name: "output", Usage: "HTML output file, or - for stdout", Value: "WebView.html"},
					&cli.IntFlag{Name: "target-chunk-size-mb", Usage: "target size of each chunk in MB"},
				},
				Action: webviewAction,
			},
			{
				Name:  "download",
				Usage: "download and extract all chunk archives for a project",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "project-name", Usage: "project name prefix for objects to download"},
					&cli.StringFlag{Name: "working-dir", Usage: "working directory for temporary zip files", Value: "."},
					&cli.StringFlag{Name: "output-dir", Usage: "directory where files will be extracted"},
					&cli.StringFlag{Name: "bucket-name", Usage: "bucket to download from"},
				},
				Action: downloadAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logging.Error("run failed", zap.Error(err))
		logging.Sync()
		os.Exit(1)
	}
	logging.Sync()
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// CLI flags override the environment.
	if cmd.IsSet("input-dir") {
		cfg.InputDir = cmd.String("input-dir")
	}
	if cmd.IsSet("output-dir") {
		cfg.OutputDir = cmd.String("output-dir")
	}
	if cmd.IsSet("target-chunk-size-mb") {
		cfg.TargetChunkSize = cmd.Int("target-chunk-size-mb") * 1024 * 1024
	}
	if cmd.IsSet("workers") {
		cfg.Workers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("dictionary-format") {
		cfg.DictFormat = cmd.String("dictionary-format")
	}
	if cmd.IsSet("upload") {
		cfg.Upload = cmd.Bool("upload")
	}
	if cmd.IsSet("project-name") {
		cfg.ProjectName = cmd.String("project-name")
	}
	if cmd.IsSet("bucket-name") {
		cfg.S3Bucket = cmd.String("bucket-name")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initLogging(cfg *config.Config) error {
	return logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
}

func archiveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	defer logging.Sync()

	if cfg.InputDir == "" || cfg.OutputDir == "" {
		return fmt.Errorf("--input-dir and --output-dir are required")
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil {
				logging.Warn("metrics listener failed", zap.Error(err))
			}
		}()
	}

	opts := runner.Options{
		Config:           cfg,
		ProgressInterval: progressInterval,
	}

	if cfg.Upload {
		if err := cfg.ValidateUpload(); err != nil {
			return err
		}
		backend, err := storage.New(ctx, storage.Config{
			Type:      "s3",
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
		})
		if err != nil {
			return fmt.Errorf("init storage backend: %w", err)
		}
		defer backend.Close()
		opts.Uploader = upload.New(backend, cfg.ProjectName)
	}

	report, err := runner.Run(ctx, opts)
	if err != nil {
		return err
	}
	if !report.Success() {
		return fmt.Errorf("archive run incomplete: %w", report.Err())
	}
	if n := report.UploadFailures(); n > 0 {
		return fmt.Errorf("%d chunk uploads failed: %w", n, report.Err())
	}
	return nil
}

func webviewAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	defer logging.Sync()

	if cfg.InputDir == "" {
		return fmt.Errorf("--input-dir is required")
	}
	settings := planner.Settings{
		TargetSize: cfg.TargetChunkSize,
		MinSize:    cfg.MinChunkSize(),
		MaxSize:    cfg.MaxChunkSize(),
	}

	out := cmd.String("output")
	if out == "-" {
		return webview.RenderDirectory(os.Stdout, cfg.InputDir, settings)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()
	if err := webview.RenderDirectory(f, cfg.InputDir, settings); err != nil {
		return err
	}
	return f.Close()
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	defer logging.Sync()

	project := cmd.String("project-name")
	outputDir := cmd.String("output-dir")
	if project == "" || outputDir == "" {
		return fmt.Errorf("--project-name and --output-dir are required")
	}
	if err := cfg.ValidateUpload(); err != nil {
		return err
	}

	backend, err := storage.New(ctx, storage.Config{
		Type:      "s3",
		Endpoint:  cfg.S3Endpoint,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Region:    cfg.S3Region,
	})
	if err != nil {
		return fmt.Errorf("init storage backend: %w", err)
	}
	defer backend.Close()

	return download.Run(ctx, backend, download.Options{
		Project:   project,
		WorkDir:   cmd.String("working-dir"),
		OutputDir: outputDir,
	})
}
