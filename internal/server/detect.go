package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/MeKo-Tech/notecrop/internal/detector"
	"github.com/MeKo-Tech/notecrop/internal/pipeline"
	"github.com/MeKo-Tech/notecrop/internal/utils"
)

// errBadRequest marks failures caused by the client payload.
var errBadRequest = errors.New("bad request")

const notFoundMessage = "no sticky note found"

// pipelineFor returns the default pipeline, or a new one when the request
// overrides any tunable.
func (s *Server) pipelineFor(req *DetectRequest) (*pipeline.Pipeline, error) {
	if !req.hasOverrides() {
		return s.pipeline, nil
	}

	b := pipeline.NewBuilder().WithConfig(s.pipeline.Config())
	if req.MinArea != nil {
		b.WithMinArea(*req.MinArea)
	}
	if req.MaxARDiff != nil {
		b.WithMaxAspectDeviation(*req.MaxARDiff)
	}
	if req.Upscale != nil {
		b.WithUpscale(*req.Upscale)
	}
	if req.Debug != nil {
		b.WithDebug(*req.Debug)
	}
	if req.ColorLow != nil || req.ColorHigh != nil {
		cur := b.Config().Detector
		low, high := cur.ColorLow, cur.ColorHigh
		var err error
		if req.ColorLow != nil {
			if low, err = hsvFromTriple(*req.ColorLow); err != nil {
				return nil, err
			}
		}
		if req.ColorHigh != nil {
			if high, err = hsvFromTriple(*req.ColorHigh); err != nil {
				return nil, err
			}
		}
		b.WithColorRange(low, high)
	}

	pl, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return pl, nil
}

func hsvFromTriple(v [3]int) (detector.HSV, error) {
	for i, c := range v {
		if c < 0 || c > 255 {
			return detector.HSV{}, fmt.Errorf("%w: color component %d out of range: %d", errBadRequest, i, c)
		}
	}
	return detector.HSV{H: uint8(v[0]), S: uint8(v[1]), V: uint8(v[2])}, nil //nolint:gosec // range checked above
}

// detectRequest decodes the request image, runs detection and builds the reply.
func (s *Server) detectRequest(ctx context.Context, req *DetectRequest, source string) (*DetectResponse, error) {
	if req.Image == "" {
		return nil, fmt.Errorf("%w: image data is required", errBadRequest)
	}
	img, err := utils.DecodeBase64Image(req.Image)
	if err != nil {
		return nil, err
	}
	uploadSizeBytes.Observe(float64(len(req.Image)))

	pl, err := s.pipelineFor(req)
	if err != nil {
		return nil, err
	}
	return s.detect(ctx, pl, img, source)
}

// detect runs pl on img and records metrics under source.
func (s *Server) detect(ctx context.Context, pl *pipeline.Pipeline, img image.Image, source string) (*DetectResponse, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := pl.ProcessImageContext(ctx, img)
	detectDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		detectRequestsTotal.WithLabelValues(source, "error").Inc()
		return nil, err
	}
	detectCandidates.Observe(float64(len(res.Candidates)))

	outcome := "not_found"
	if res.Found {
		outcome = "found"
	}
	detectRequestsTotal.WithLabelValues(source, outcome).Inc()

	return s.buildResponse(res)
}

func (s *Server) buildResponse(res *pipeline.ImageResult) (*DetectResponse, error) {
	resp := &DetectResponse{
		Success:      true,
		Found:        res.Found,
		OriginalSize: []int{res.Width, res.Height},
	}

	if res.Mask != nil {
		mask, err := utils.EncodeBase64PNG(res.Mask)
		if err != nil {
			return nil, err
		}
		resp.Mask = mask
	}

	if !res.Found {
		resp.Message = notFoundMessage
		if res.Reason != "" {
			resp.Message += ": " + res.Reason
		}
		return resp, nil
	}

	roi, err := utils.EncodeBase64JPEG(res.ROI, s.jpegQuality)
	if err != nil {
		return nil, err
	}
	resp.ROI = roi
	resp.ROISize = []int{res.ROISize.Width, res.ROISize.Height}
	resp.BBox = &BBox{X: res.Box.X, Y: res.Box.Y, W: res.Box.Width, H: res.Box.Height}
	resp.Score = res.Score

	if res.Annotated != nil {
		annotated, err := utils.EncodeBase64PNG(res.Annotated)
		if err != nil {
			return nil, err
		}
		resp.Annotated = annotated
	}
	return resp, nil
}

// isClientError reports whether err was caused by the request payload.
func isClientError(err error) bool {
	if errors.Is(err, errBadRequest) || errors.Is(err, detector.ErrInvalidImage) {
		return true
	}
	var inputErr *detector.InputError
	if errors.As(err, &inputErr) {
		return true
	}
	var procErr *utils.ImageProcessingError
	return errors.As(err, &procErr) && procErr.Operation == "decode"
}
