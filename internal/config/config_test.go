package config

import (
	"strings"
	"testing"

	"github.com/MeKo-Tech/notecrop/internal/detector"
	"github.com/MeKo-Tech/notecrop/internal/pipeline"
	"github.com/MeKo-Tech/notecrop/internal/utils"
)

// TestDefaultConfig verifies that DefaultConfig mirrors the detector defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != "info" {
		t.Errorf("Expected log_level 'info', got %s", cfg.LogLevel)
	}
	if cfg.Detection.ColorLow != (HSVConfig{H: 27, S: 25, V: 120}) {
		t.Errorf("Unexpected color_low %v", cfg.Detection.ColorLow)
	}
	if cfg.Detection.ColorHigh != (HSVConfig{H: 35, S: 255, V: 255}) {
		t.Errorf("Unexpected color_high %v", cfg.Detection.ColorHigh)
	}
	if cfg.Detection.MinArea != detector.DefaultMinArea {
		t.Errorf("Expected min_area %d, got %d", detector.DefaultMinArea, cfg.Detection.MinArea)
	}
	if cfg.Detection.MaxAspectDeviation != detector.DefaultMaxAspectDeviationPct {
		t.Errorf("Expected max_aspect_deviation %v, got %v",
			detector.DefaultMaxAspectDeviationPct, cfg.Detection.MaxAspectDeviation)
	}
	if cfg.Detection.Upscale != 1 {
		t.Errorf("Expected upscale 1, got %d", cfg.Detection.Upscale)
	}
	if cfg.Output.Format != pipeline.FormatText {
		t.Errorf("Expected format text, got %s", cfg.Output.Format)
	}
	if cfg.Output.JPEGQuality != utils.DefaultJPEGQuality {
		t.Errorf("Expected jpeg_quality %d, got %d", utils.DefaultJPEGQuality, cfg.Output.JPEGQuality)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.RateLimit.Enabled {
		t.Error("Expected rate limiting to be disabled by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, "invalid output format"},
		{"empty format allowed", func(c *Config) { c.Output.Format = "" }, ""},
		{"hue too large", func(c *Config) { c.Detection.ColorHigh.H = 180 }, "hue"},
		{"negative saturation", func(c *Config) { c.Detection.ColorLow.S = -1 }, "saturation"},
		{"value too large", func(c *Config) { c.Detection.ColorHigh.V = 256 }, "value"},
		{"low above high", func(c *Config) { c.Detection.ColorLow.H = 40 }, "invalid color range"},
		{"negative min area", func(c *Config) { c.Detection.MinArea = -1 }, "min area"},
		{"zero min area allowed", func(c *Config) { c.Detection.MinArea = 0 }, ""},
		{"deviation above 100", func(c *Config) { c.Detection.MaxAspectDeviation = 101 }, "aspect deviation"},
		{"negative deviation", func(c *Config) { c.Detection.MaxAspectDeviation = -0.5 }, "aspect deviation"},
		{"upscale zero", func(c *Config) { c.Detection.Upscale = 0 }, "upscale"},
		{"upscale five", func(c *Config) { c.Detection.Upscale = 5 }, "upscale"},
		{"upscale four", func(c *Config) { c.Detection.Upscale = 4 }, ""},
		{"jpeg quality", func(c *Config) { c.Output.JPEGQuality = 0 }, "jpeg quality"},
		{"negative workers", func(c *Config) { c.Batch.Workers = -2 }, "batch workers"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server port"},
		{"upload size", func(c *Config) { c.Server.MaxUploadMB = 0 }, "max upload"},
		{"timeout", func(c *Config) { c.Server.TimeoutSec = 0 }, "timeout"},
		{"rate limit", func(c *Config) { c.Server.RateLimit.RequestsPerHour = -1 }, "rate limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseHSV(t *testing.T) {
	tests := []struct {
		in      string
		want    HSVConfig
		wantErr bool
	}{
		{"27,25,120", HSVConfig{H: 27, S: 25, V: 120}, false},
		{" 35, 255 ,255 ", HSVConfig{H: 35, S: 255, V: 255}, false},
		{"0,0,0", HSVConfig{}, false},
		{"27,25", HSVConfig{}, true},
		{"a,b,c", HSVConfig{}, true},
		{"180,0,0", HSVConfig{}, true},
		{"0,300,0", HSVConfig{}, true},
		{"", HSVConfig{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHSV(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseHSV(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHSV(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseHSV(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestHSVConfigString(t *testing.T) {
	if s := (HSVConfig{H: 27, S: 25, V: 120}).String(); s != "27,25,120" {
		t.Errorf("String() = %q", s)
	}
}

func TestToPipelineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detection.ColorLow = HSVConfig{H: 20, S: 30, V: 40}
	cfg.Detection.ColorHigh = HSVConfig{H: 40, S: 250, V: 250}
	cfg.Detection.MinArea = 500
	cfg.Detection.MaxAspectDeviation = 25
	cfg.Detection.Upscale = 3
	cfg.Detection.Debug = true
	cfg.Batch.Workers = 7

	pc := cfg.ToPipelineConfig()
	if pc.Detector.ColorLow != (detector.HSV{H: 20, S: 30, V: 40}) {
		t.Errorf("Unexpected detector color_low %v", pc.Detector.ColorLow)
	}
	if pc.Detector.ColorHigh != (detector.HSV{H: 40, S: 250, V: 250}) {
		t.Errorf("Unexpected detector color_high %v", pc.Detector.ColorHigh)
	}
	if pc.Detector.MinArea != 500 || pc.Detector.MaxAspectDeviationPct != 25 || !pc.Detector.Debug {
		t.Errorf("Unexpected detector config %+v", pc.Detector)
	}
	if pc.Upscale != 3 {
		t.Errorf("Expected upscale 3, got %d", pc.Upscale)
	}
	if pc.Parallel.MaxWorkers != 7 {
		t.Errorf("Expected 7 workers, got %d", pc.Parallel.MaxWorkers)
	}
	if err := pc.Validate(); err != nil {
		t.Errorf("Converted pipeline config should validate: %v", err)
	}
}

func TestToPipelineConfigKeepsDefaultWorkers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Batch.Workers = 0

	pc := cfg.ToPipelineConfig()
	if pc.Parallel.MaxWorkers != pipeline.DefaultParallelConfig().MaxWorkers {
		t.Errorf("Expected default worker count, got %d", pc.Parallel.MaxWorkers)
	}
}

func TestToBatchConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Format = "csv"
	cfg.Output.File = "out.csv"
	cfg.Output.Directory = "crops"
	cfg.Output.SaveMask = true
	cfg.Output.SaveAnnotated = true
	cfg.Output.JPEGQuality = 80
	cfg.Batch.Recursive = true
	cfg.Batch.Include = []string{"*.png"}
	cfg.Batch.Exclude = []string{"*_roi.*"}

	bc := cfg.ToBatchConfig()
	if bc.Format != "csv" || bc.OutputFile != "out.csv" || bc.OutputDir != "crops" {
		t.Errorf("Unexpected output settings %+v", bc)
	}
	if !bc.SaveMask || !bc.SaveAnnotated || bc.JPEGQuality != 80 {
		t.Errorf("Unexpected artifact settings %+v", bc)
	}
	if !bc.Recursive || len(bc.IncludePatterns) != 1 || len(bc.ExcludePatterns) != 1 {
		t.Errorf("Unexpected discovery settings %+v", bc)
	}
	if bc.Workers != cfg.Batch.Workers {
		t.Errorf("Expected %d workers, got %d", cfg.Batch.Workers, bc.Workers)
	}
}

func TestToDetectorConfigClampsChannels(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detection.ColorLow = HSVConfig{H: -5, S: 10, V: 10}
	cfg.Detection.ColorHigh = HSVConfig{H: 30, S: 999, V: 255}

	dc := cfg.ToDetectorConfig()
	if dc.ColorLow.H != 0 || dc.ColorHigh.S != 255 {
		t.Errorf("Expected clamped channels, got %v %v", dc.ColorLow, dc.ColorHigh)
	}
}
