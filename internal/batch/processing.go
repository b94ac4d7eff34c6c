package batch

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/notecrop/internal/pipeline"
	"github.com/MeKo-Tech/notecrop/internal/utils"
)

// Artifact file suffixes.
const (
	ROISuffix       = "_roi.jpg"
	MaskSuffix      = "_mask.png"
	AnnotatedSuffix = "_annotated.png"
)

// loadAndValidateImage loads an image within the default size constraints.
func loadAndValidateImage(path string) (image.Image, error) {
	if !utils.IsSupportedImage(path) {
		return nil, fmt.Errorf("unsupported image format: %s", path)
	}

	// LoadImage rejects oversized images from their header, before decoding.
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return img, nil
}

// ArtifactStems returns the stem used to name the artifacts of each input.
// Inputs sharing a base name keep the first stem plain and number the rest
// _2, _3 and so on, skipping stems that another input already owns.
func ArtifactStems(paths []string) []string {
	taken := make(map[string]bool, len(paths))
	for _, p := range paths {
		taken[strings.ToLower(fileStem(p))] = true
	}

	seen := make(map[string]bool, len(paths))
	stems := make([]string, len(paths))
	for i, p := range paths {
		stem := fileStem(p)
		key := strings.ToLower(stem)
		if !seen[key] {
			seen[key] = true
			stems[i] = stem
			continue
		}
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s_%d", stem, n)
			if !taken[strings.ToLower(candidate)] {
				taken[strings.ToLower(candidate)] = true
				stems[i] = candidate
				break
			}
		}
	}
	return stems
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ArtifactPaths returns the crop, mask and annotated image paths for a stem.
func ArtifactPaths(outputDir, stem string) (roi, mask, annotated string) {
	prefix := filepath.Join(outputDir, stem)
	return prefix + ROISuffix, prefix + MaskSuffix, prefix + AnnotatedSuffix
}

// WriteArtifacts saves the crop and requested debug images of one result
// into cfg.OutputDir under stem. It does nothing when OutputDir is empty.
func WriteArtifacts(cfg *Config, stem string, res *pipeline.ImageResult) error {
	if cfg.OutputDir == "" {
		return nil
	}
	roiPath, maskPath, annotatedPath := ArtifactPaths(cfg.OutputDir, stem)

	if res.Found && res.ROI != nil {
		if err := utils.SaveImage(roiPath, res.ROI, cfg.JPEGQuality); err != nil {
			return fmt.Errorf("failed to save crop: %w", err)
		}
	}
	if cfg.SaveMask && res.Mask != nil {
		if err := utils.SaveImage(maskPath, res.Mask, cfg.JPEGQuality); err != nil {
			return fmt.Errorf("failed to save mask: %w", err)
		}
	}
	if cfg.SaveAnnotated && res.Annotated != nil {
		if err := utils.SaveImage(annotatedPath, res.Annotated, cfg.JPEGQuality); err != nil {
			return fmt.Errorf("failed to save annotated image: %w", err)
		}
	}
	return nil
}

// processFiles loads and processes files in parallel. Per-file failures are
// collected instead of aborting the batch.
func processFiles(
	ctx context.Context, pl *pipeline.Pipeline, files []string, cfg *Config, progress pipeline.ProgressCallback,
) ([]*pipeline.ImageResult, []error, error) {
	errs := make([]error, len(files))
	stems := ArtifactStems(files)

	par := pipeline.ParallelConfig{
		MaxWorkers:       pl.Config().Parallel.MaxWorkers,
		ProgressCallback: progress,
		ErrorHandler: func(i int, err error) {
			errs[i] = err
			slog.Warn("Failed to process image", "file", files[i], "error", err)
		},
		ResultHandler: func(i int, _ image.Image, res *pipeline.ImageResult) error {
			res.Source = files[i]
			if err := WriteArtifacts(cfg, stems[i], res); err != nil {
				return err
			}
			// Release pixel data once written; only metadata is kept per file.
			res.ROI, res.Mask, res.Annotated = nil, nil, nil
			return nil
		},
	}

	source := func(_ context.Context, i int) (image.Image, error) {
		return loadAndValidateImage(files[i])
	}

	results, err := pl.ProcessSourcesParallelContext(ctx, len(files), source, par)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, nil, ctxErr
	}
	if results == nil && err != nil {
		return nil, nil, err
	}
	return results, errs, nil
}
