package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/notecrop/internal/detector"
	"github.com/MeKo-Tech/notecrop/internal/pdf"
	"github.com/MeKo-Tech/notecrop/internal/utils"
)

var errNotInitialized = errors.New("pipeline not initialized")

// ProcessImage runs detection on a single image.
func (p *Pipeline) ProcessImage(img image.Image) (*ImageResult, error) {
	return p.ProcessImageContext(context.Background(), img)
}

// ProcessImageContext runs detection on a single image with context support.
// A missing region is reported through ImageResult.Found, not as an error.
func (p *Pipeline) ProcessImageContext(ctx context.Context, img image.Image) (*ImageResult, error) {
	if p == nil || p.Detector == nil {
		return nil, errNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	totalStart := time.Now()
	det, err := p.Detector.Detect(img)
	if err != nil {
		return nil, err
	}
	res := buildImageResult(det)
	res.Processing.DetectionNs = time.Since(totalStart).Nanoseconds()

	if det.Found {
		upStart := time.Now()
		roi, err := utils.Upscale(det.Region, p.cfg.Upscale)
		if err != nil {
			return nil, fmt.Errorf("failed to upscale region: %w", err)
		}
		res.ROI = roi
		res.ROISize = &Size{Width: roi.Bounds().Dx(), Height: roi.Bounds().Dy()}
		res.Processing.UpscaleNs = time.Since(upStart).Nanoseconds()
	}
	res.Processing.TotalNs = time.Since(totalStart).Nanoseconds()
	if err := ValidateImageResult(res); err != nil {
		return nil, fmt.Errorf("inconsistent detection result: %w", err)
	}

	slog.Debug("Image processed",
		"width", res.Width, "height", res.Height,
		"found", res.Found, "reason", res.Reason,
		"total_ms", time.Duration(res.Processing.TotalNs).Milliseconds())
	return res, nil
}

func buildImageResult(det *detector.Result) *ImageResult {
	res := &ImageResult{
		Width:      det.ImageWidth,
		Height:     det.ImageHeight,
		Found:      det.Found,
		Reason:     det.Reason,
		Candidates: det.Candidates,
		MaskPixels: det.MaskInfo.Pixels,
		Mask:       det.Mask,
		Annotated:  det.Annotated,
	}
	if det.Best != nil {
		b := det.Best.Box
		res.Box = &Box{X: b.Min.X, Y: b.Min.Y, Width: b.Dx(), Height: b.Dy()}
		res.Score = det.Best.Score
	}
	return res
}

// ProcessImages processes multiple images sequentially and returns results.
func (p *Pipeline) ProcessImages(images []image.Image) ([]*ImageResult, error) {
	return p.ProcessImagesContext(context.Background(), images)
}

// ProcessImagesContext processes images sequentially with context cancellation
// support. Processing stops at the first error.
func (p *Pipeline) ProcessImagesContext(ctx context.Context, images []image.Image) ([]*ImageResult, error) {
	if len(images) == 0 {
		return nil, errors.New("no images provided")
	}
	if p == nil || p.Detector == nil {
		return nil, errNotInitialized
	}

	results := make([]*ImageResult, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := p.ProcessImageContext(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		results[i] = res
	}
	return results, nil
}

// ProcessPDF runs detection on every image embedded in the selected pages.
func (p *Pipeline) ProcessPDF(filename string, opts pdf.ExtractOptions) (*PDFResult, error) {
	return p.ProcessPDFContext(context.Background(), filename, opts)
}

// ProcessPDFContext processes a PDF file with context cancellation support.
func (p *Pipeline) ProcessPDFContext(ctx context.Context, filename string, opts pdf.ExtractOptions) (*PDFResult, error) {
	if filename == "" {
		return nil, errors.New("filename cannot be empty")
	}
	if p == nil || p.Detector == nil {
		return nil, errNotInitialized
	}

	totalStart := time.Now()
	pageImages, err := pdf.ExtractImages(filename, opts)
	if err != nil {
		return nil, err
	}

	result := &PDFResult{Filename: filename, Images: make([]PDFImageResult, 0, len(pageImages))}
	result.Processing.ExtractionNs = time.Since(totalStart).Nanoseconds()

	pages := make(map[int]struct{})
	for _, pi := range pageImages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := p.ProcessImageContext(ctx, pi.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to process page %d image %d: %w", pi.Page, pi.Index, err)
		}
		res.Source = pi.Name
		pages[pi.Page] = struct{}{}
		result.Images = append(result.Images, PDFImageResult{Page: pi.Page, ImageIndex: pi.Index, Result: res})
	}
	result.TotalPages = len(pages)
	result.Processing.TotalNs = time.Since(totalStart).Nanoseconds()
	return result, nil
}
