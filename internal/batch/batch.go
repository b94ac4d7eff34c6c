// Package batch runs region detection over many image files and writes the
// resulting crops and debug images.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/MeKo-Tech/notecrop/internal/pipeline"
)

// ProcessBatch discovers images under paths and processes them with cfg.
func ProcessBatch(ctx context.Context, paths []string, cfg *Config) (*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	files, err := discoverImageFiles(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no image files found")
	}

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	pl, err := buildPipeline(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	start := time.Now()
	results, errs, err := processFiles(ctx, pl, files, cfg, progressCallback(cfg))
	if err != nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}

	return &Result{
		Results:     results,
		Errors:      errs,
		ImagePaths:  files,
		Duration:    time.Since(start),
		WorkerCount: pl.Config().Parallel.MaxWorkers,
	}, nil
}

func buildPipeline(cfg *Config) (*pipeline.Pipeline, error) {
	pc := cfg.Pipeline
	if cfg.SaveMask || cfg.SaveAnnotated {
		pc.Detector.Debug = true
	}
	if cfg.Workers > 0 {
		pc.Parallel.MaxWorkers = cfg.Workers
	}
	return pipeline.NewBuilder().WithConfig(pc).Build()
}

// progressCallback always logs progress at debug level and adds a console
// bar unless progress is off or the run is quiet.
func progressCallback(cfg *Config) pipeline.ProgressCallback {
	logged := pipeline.NewLogProgressCallback(slog.Default(), slog.LevelDebug).WithInterval(25)
	if !cfg.ShowProgress || cfg.Quiet {
		return logged
	}
	var w io.Writer = os.Stderr
	if cfg.ProgressWriter != nil {
		w = cfg.ProgressWriter
	}
	console := pipeline.NewConsoleProgressCallback(w, "Processing: ").WithUpdateInterval(cfg.ProgressInterval)
	return pipeline.NewMultiProgressCallback(console, logged)
}
