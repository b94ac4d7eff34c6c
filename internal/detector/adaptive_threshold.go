package detector

import "log/slog"

// Pixel counts a relaxed mask must exceed to be accepted. They were tuned on
// phone captures of sticky notes and may need recalibration for other cameras.
const (
	RelaxedMinPixels  = 2000
	FallbackMinPixels = 1000
)

var (
	// saturationSteps follow the configured lower saturation in the first stage.
	saturationSteps = []uint8{40, 25, 10, 5}
	// fallbackValueSteps is the outer loop of the second stage.
	fallbackValueSteps = []uint8{30, 20, 10}
	// fallbackSaturationSteps is the inner loop of the second stage.
	fallbackSaturationSteps = []uint8{5, 3, 1}
)

// MaskInfo describes which threshold produced the returned mask.
type MaskInfo struct {
	Low       HSV  `json:"low"`
	High      HSV  `json:"high"`
	Pixels    int  `json:"pixels"`
	Attempts  int  `json:"attempts"`
	Fallback  bool `json:"fallback"`  // accepted in the value/saturation stage
	Exhausted bool `json:"exhausted"` // no attempt met its pixel threshold
}

// BuildAdaptiveMask thresholds hsv, relaxing the lower saturation bound and then
// the lower value bound until enough pixels are captured. Hue bounds never move.
// When every attempt falls short the last mask is returned.
func BuildAdaptiveMask(hsv *HSVImage, low, high HSV) (*Mask, MaskInfo) {
	info := MaskInfo{High: high}
	var mask *Mask

	try := func(l HSV, minPixels int) bool {
		mask = InRange(hsv, l, high)
		info.Attempts++
		info.Low = l
		info.Pixels = mask.Count()
		return info.Pixels > minPixels
	}

	cur := low
	for _, sat := range append([]uint8{low.S}, saturationSteps...) {
		cur.S = sat
		if try(cur, RelaxedMinPixels) {
			slog.Debug("Mask accepted", "stage", "saturation", "low", cur, "pixels", info.Pixels)
			return mask, info
		}
	}

	cur = low
	for _, val := range fallbackValueSteps {
		for _, sat := range fallbackSaturationSteps {
			cur.S, cur.V = sat, val
			if try(cur, FallbackMinPixels) {
				info.Fallback = true
				slog.Debug("Mask accepted", "stage", "value", "low", cur, "pixels", info.Pixels)
				return mask, info
			}
		}
	}

	info.Fallback = true
	info.Exhausted = true
	slog.Debug("Mask relaxation exhausted", "pixels", info.Pixels, "attempts", info.Attempts)
	return mask, info
}
