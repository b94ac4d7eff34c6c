package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/notecrop/internal/batch"
	"github.com/MeKo-Tech/notecrop/internal/detector"
	"github.com/MeKo-Tech/notecrop/internal/pipeline"
	"github.com/MeKo-Tech/notecrop/internal/utils"
)

// Config represents the complete configuration for the notecrop application.
// It includes settings for all commands (detect, batch, pdf, serve) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Detection DetectionConfig `mapstructure:"detection" yaml:"detection" json:"detection"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output" json:"output"`
	Batch     BatchConfig     `mapstructure:"batch" yaml:"batch" json:"batch"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server" json:"server"`
}

// HSVConfig is a color bound in the 8-bit HSV scale.
type HSVConfig struct {
	H int `mapstructure:"h" yaml:"h" json:"h"`
	S int `mapstructure:"s" yaml:"s" json:"s"`
	V int `mapstructure:"v" yaml:"v" json:"v"`
}

func (h HSVConfig) String() string {
	return fmt.Sprintf("%d,%d,%d", h.H, h.S, h.V)
}

// DetectionConfig contains region detection settings.
type DetectionConfig struct {
	ColorLow           HSVConfig `mapstructure:"color_low" yaml:"color_low" json:"color_low"`
	ColorHigh          HSVConfig `mapstructure:"color_high" yaml:"color_high" json:"color_high"`
	MinArea            int       `mapstructure:"min_area" yaml:"min_area" json:"min_area"`
	MaxAspectDeviation float64   `mapstructure:"max_aspect_deviation" yaml:"max_aspect_deviation" json:"max_aspect_deviation"`
	Upscale            int       `mapstructure:"upscale" yaml:"upscale" json:"upscale"`
	Debug              bool      `mapstructure:"debug" yaml:"debug" json:"debug"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format        string `mapstructure:"format" yaml:"format" json:"format"`
	File          string `mapstructure:"file" yaml:"file" json:"file"`
	Directory     string `mapstructure:"directory" yaml:"directory" json:"directory"`
	SaveMask      bool   `mapstructure:"save_mask" yaml:"save_mask" json:"save_mask"`
	SaveAnnotated bool   `mapstructure:"save_annotated" yaml:"save_annotated" json:"save_annotated"`
	JPEGQuality   int    `mapstructure:"jpeg_quality" yaml:"jpeg_quality" json:"jpeg_quality"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers   int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include   []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude   []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int64 `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	det := detector.DefaultConfig()
	return Config{
		LogLevel: "info",
		Detection: DetectionConfig{
			ColorLow:           fromHSV(det.ColorLow),
			ColorHigh:          fromHSV(det.ColorHigh),
			MinArea:            det.MinArea,
			MaxAspectDeviation: det.MaxAspectDeviationPct,
			Upscale:            1,
		},
		Output: OutputConfig{
			Format:      pipeline.FormatText,
			JPEGQuality: utils.DefaultJPEGQuality,
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
			},
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Output.Format != "" && !pipeline.IsSupportedFormat(c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)",
			c.Output.Format, strings.Join(pipeline.SupportedFormats, ", "))
	}

	if err := validateHSV(c.Detection.ColorLow, "detection.color_low"); err != nil {
		return err
	}
	if err := validateHSV(c.Detection.ColorHigh, "detection.color_high"); err != nil {
		return err
	}
	lo, hi := c.Detection.ColorLow, c.Detection.ColorHigh
	if lo.H > hi.H || lo.S > hi.S || lo.V > hi.V {
		return fmt.Errorf("invalid color range: low %s exceeds high %s", lo, hi)
	}
	if c.Detection.MinArea < 0 {
		return fmt.Errorf("invalid min area: %d (must be non-negative)", c.Detection.MinArea)
	}
	if c.Detection.MaxAspectDeviation < 0 || c.Detection.MaxAspectDeviation > 100 {
		return fmt.Errorf("invalid max aspect deviation: %.2f (must be between 0 and 100)", c.Detection.MaxAspectDeviation)
	}
	if c.Detection.Upscale < 1 || c.Detection.Upscale > utils.MaxUpscaleFactor {
		return fmt.Errorf("invalid upscale factor: %d (must be between 1 and %d)", c.Detection.Upscale, utils.MaxUpscaleFactor)
	}

	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("invalid jpeg quality: %d (must be between 1 and 100)", c.Output.JPEGQuality)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("invalid batch workers: %d (must be non-negative)", c.Batch.Workers)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDayMB < 0 {
		return errors.New("invalid rate limit: limits must be non-negative")
	}

	return nil
}

// ToDetectorConfig converts the detection section to detector.Config.
// Call Validate first; out-of-range channels are clamped.
func (c *Config) ToDetectorConfig() detector.Config {
	return detector.Config{
		ColorLow:              c.Detection.ColorLow.toHSV(),
		ColorHigh:             c.Detection.ColorHigh.toHSV(),
		MinArea:               c.Detection.MinArea,
		MaxAspectDeviationPct: c.Detection.MaxAspectDeviation,
		Debug:                 c.Detection.Debug,
	}
}

// ToPipelineConfig converts the config to the internal pipeline configuration format.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Detector = c.ToDetectorConfig()
	cfg.Upscale = c.Detection.Upscale
	if c.Batch.Workers > 0 {
		cfg.Parallel.MaxWorkers = c.Batch.Workers
	}
	return cfg
}

// ToBatchConfig converts the config to a batch configuration.
func (c *Config) ToBatchConfig() *batch.Config {
	cfg := batch.DefaultConfig()
	cfg.Pipeline = c.ToPipelineConfig()
	cfg.Format = c.Output.Format
	cfg.OutputFile = c.Output.File
	cfg.OutputDir = c.Output.Directory
	cfg.SaveMask = c.Output.SaveMask
	cfg.SaveAnnotated = c.Output.SaveAnnotated
	cfg.JPEGQuality = c.Output.JPEGQuality
	cfg.Workers = c.Batch.Workers
	cfg.Recursive = c.Batch.Recursive
	cfg.IncludePatterns = c.Batch.Include
	cfg.ExcludePatterns = c.Batch.Exclude
	return cfg
}

// ParseHSV parses an "h,s,v" triple such as "27,25,120".
func ParseHSV(s string) (HSVConfig, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return HSVConfig{}, fmt.Errorf("invalid HSV value %q (expected h,s,v)", s)
	}
	var vals [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return HSVConfig{}, fmt.Errorf("invalid HSV component %q: %w", p, err)
		}
		vals[i] = v
	}
	h := HSVConfig{H: vals[0], S: vals[1], V: vals[2]}
	if err := validateHSV(h, "hsv"); err != nil {
		return HSVConfig{}, err
	}
	return h, nil
}

func validateHSV(h HSVConfig, name string) error {
	if h.H < 0 || h.H > detector.MaxHue {
		return fmt.Errorf("invalid %s hue: %d (must be between 0 and %d)", name, h.H, detector.MaxHue)
	}
	if h.S < 0 || h.S > 255 {
		return fmt.Errorf("invalid %s saturation: %d (must be between 0 and 255)", name, h.S)
	}
	if h.V < 0 || h.V > 255 {
		return fmt.Errorf("invalid %s value: %d (must be between 0 and 255)", name, h.V)
	}
	return nil
}

func fromHSV(h detector.HSV) HSVConfig {
	return HSVConfig{H: int(h.H), S: int(h.S), V: int(h.V)}
}

func (h HSVConfig) toHSV() detector.HSV {
	return detector.HSV{H: clampByte(h.H), S: clampByte(h.S), V: clampByte(h.V)}
}

func clampByte(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

// contains checks if a slice contains a specific string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
