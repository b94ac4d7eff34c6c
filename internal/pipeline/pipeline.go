package pipeline

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/notecrop/internal/detector"
	"github.com/MeKo-Tech/notecrop/internal/utils"
)

// Config holds configuration for the detection pipeline.
type Config struct {
	Detector detector.Config
	Upscale  int // ROI upscale factor, 1 disables scaling

	// Parallel processing configuration
	Parallel ParallelConfig
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		Detector: detector.DefaultConfig(),
		Upscale:  1,
		Parallel: DefaultParallelConfig(),
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if err := c.Detector.Validate(); err != nil {
		return fmt.Errorf("detector config: %w", err)
	}
	if c.Upscale < 1 || c.Upscale > utils.MaxUpscaleFactor {
		return fmt.Errorf("invalid upscale factor %d (must be 1-%d)", c.Upscale, utils.MaxUpscaleFactor)
	}
	if c.Parallel.MaxWorkers < 0 {
		return errors.New("max workers must be non-negative")
	}
	return nil
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg Config
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithDetectorConfig replaces the detector tunables.
func (b *Builder) WithDetectorConfig(cfg detector.Config) *Builder {
	b.cfg.Detector = cfg
	return b
}

// WithColorRange sets the inclusive HSV bounds of the target color.
func (b *Builder) WithColorRange(low, high detector.HSV) *Builder {
	b.cfg.Detector.ColorLow = low
	b.cfg.Detector.ColorHigh = high
	return b
}

// WithMinArea sets the minimum bounding-box area for scored candidates.
func (b *Builder) WithMinArea(area int) *Builder {
	b.cfg.Detector.MinArea = area
	return b
}

// WithMaxAspectDeviation sets the squareness limit in percent.
func (b *Builder) WithMaxAspectDeviation(pct float64) *Builder {
	b.cfg.Detector.MaxAspectDeviationPct = pct
	return b
}

// WithDebug toggles mask and annotated image output.
func (b *Builder) WithDebug(enabled bool) *Builder {
	b.cfg.Detector.Debug = enabled
	return b
}

// WithUpscale sets the ROI upscale factor.
func (b *Builder) WithUpscale(factor int) *Builder {
	b.cfg.Upscale = factor
	return b
}

// WithWorkers sets the number of parallel workers (0 = runtime.NumCPU()).
func (b *Builder) WithWorkers(n int) *Builder {
	if n >= 0 {
		b.cfg.Parallel.MaxWorkers = n
	}
	return b
}

// WithProgressCallback sets the progress reporter used for batches.
func (b *Builder) WithProgressCallback(cb ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = cb
	return b
}

// Config returns the current builder configuration.
func (b *Builder) Config() Config { return b.cfg }

// Build validates the configuration and constructs the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	det, err := detector.NewDetector(b.cfg.Detector)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}
	return &Pipeline{cfg: b.cfg, Detector: det}, nil
}

// Pipeline runs detection, cropping and optional upscaling on images.
type Pipeline struct {
	cfg      Config
	Detector *detector.Detector
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Info returns a summary of the pipeline configuration for logging.
func (p *Pipeline) Info() map[string]any {
	d := p.cfg.Detector
	return map[string]any{
		"color_low":                d.ColorLow,
		"color_high":               d.ColorHigh,
		"min_area":                 d.MinArea,
		"max_aspect_deviation_pct": d.MaxAspectDeviationPct,
		"debug":                    d.Debug,
		"upscale":                  p.cfg.Upscale,
		"workers":                  p.cfg.Parallel.MaxWorkers,
	}
}
