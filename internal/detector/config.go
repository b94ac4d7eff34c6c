package detector

import (
	"errors"
	"fmt"
)

// HSV is an 8-bit hue/saturation/value triple. Hue spans [0,180), saturation
// and value span [0,255].
type HSV struct {
	H uint8 `json:"h" yaml:"h"`
	S uint8 `json:"s" yaml:"s"`
	V uint8 `json:"v" yaml:"v"`
}

// MaxHue is the largest representable hue value.
const MaxHue = 179

// Default tunables for yellow sticky notes.
var (
	DefaultColorLow  = HSV{H: 27, S: 25, V: 120}
	DefaultColorHigh = HSV{H: 35, S: 255, V: 255}
)

const (
	DefaultMinArea               = 8000
	DefaultMaxAspectDeviationPct = 50.0
)

// Config holds the tunables of a single detection call.
type Config struct {
	ColorLow              HSV     // inclusive lower bound of the target color range
	ColorHigh             HSV     // inclusive upper bound of the target color range
	MinArea               int     // minimum bounding-box area (px) for a candidate to be scored
	MaxAspectDeviationPct float64 // maximum |w-h|/max(w,h) in percent for the validity flag
	Debug                 bool    // also produce mask and annotated images
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		ColorLow:              DefaultColorLow,
		ColorHigh:             DefaultColorHigh,
		MinArea:               DefaultMinArea,
		MaxAspectDeviationPct: DefaultMaxAspectDeviationPct,
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.ColorLow.H > MaxHue || c.ColorHigh.H > MaxHue {
		return fmt.Errorf("invalid hue range %d-%d (must be within 0-%d)", c.ColorLow.H, c.ColorHigh.H, MaxHue)
	}
	if c.ColorLow.H > c.ColorHigh.H || c.ColorLow.S > c.ColorHigh.S || c.ColorLow.V > c.ColorHigh.V {
		return fmt.Errorf("invalid color range: low %v exceeds high %v", c.ColorLow, c.ColorHigh)
	}
	if c.MinArea < 0 {
		return errors.New("min area must be non-negative")
	}
	if c.MaxAspectDeviationPct < 0 || c.MaxAspectDeviationPct > 100 {
		return fmt.Errorf("invalid max aspect deviation: %.2f (must be 0-100)", c.MaxAspectDeviationPct)
	}
	return nil
}
