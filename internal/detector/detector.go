package detector

import (
	"image"
	"log/slog"
)

// Reasons reported with a negative result.
const (
	ReasonEmptyMask  = "no pixels matched the color range"
	ReasonNoContours = "no regions left after mask cleanup"
	ReasonLowScore   = "best candidate scored below threshold"
)

// Result is the outcome of one detection call. NotFound is a normal outcome:
// Found is false, Region is nil and Reason says why.
type Result struct {
	Found       bool
	Region      *image.NRGBA
	Best        *Candidate
	Candidates  []Candidate // in contour enumeration order
	Mask        *image.Gray // debug only
	Annotated   *image.RGBA // debug only, when found
	MaskInfo    MaskInfo
	Reason      string
	ImageWidth  int
	ImageHeight int
}

// Detector locates the single best yellow region in images. It holds no
// mutable state and is safe for concurrent use.
type Detector struct {
	config Config
}

// NewDetector validates cfg and returns a detector.
func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{config: cfg}, nil
}

// Config returns the detector configuration.
func (d *Detector) Config() Config { return d.config }

// DetectRegion is a one-shot helper around NewDetector and Detect.
func DetectRegion(img image.Image, cfg Config) (*Result, error) {
	d, err := NewDetector(cfg)
	if err != nil {
		return nil, err
	}
	return d.Detect(img)
}

// Detect runs segmentation, cleanup, contour extraction, scoring, selection and
// cropping on img. Errors are returned only for unusable input.
func (d *Detector) Detect(img image.Image) (*Result, error) {
	hsv, err := ToHSV(img)
	if err != nil {
		return nil, err
	}
	res := &Result{ImageWidth: hsv.Width, ImageHeight: hsv.Height}

	raw, info := BuildAdaptiveMask(hsv, d.config.ColorLow, d.config.ColorHigh)
	res.MaskInfo = info
	if info.Pixels == 0 {
		res.Reason = ReasonEmptyMask
		if d.config.Debug {
			res.Mask = raw.Gray()
		}
		return res, nil
	}

	mask := RefineMask(raw)
	if d.config.Debug {
		res.Mask = mask.Gray()
	}

	contours := ExtractContours(mask)
	if len(contours) == 0 {
		res.Reason = ReasonNoContours
		return res, nil
	}

	res.Candidates = make([]Candidate, len(contours))
	for i, c := range contours {
		res.Candidates[i] = ScoreContour(c, mask, d.config)
	}

	best, ok := SelectBest(res.Candidates)
	if !ok {
		res.Reason = ReasonLowScore
		return res, nil
	}

	region, err := ExtractROI(img, best.Box)
	if err != nil {
		return nil, err
	}
	res.Found = true
	res.Region = region
	res.Best = &best
	if d.config.Debug {
		res.Annotated = RenderCandidates(img, RankCandidates(res.Candidates))
	}

	slog.Debug("Region detected",
		"x", best.Box.Min.X, "y", best.Box.Min.Y,
		"width", best.Box.Dx(), "height", best.Box.Dy(),
		"score", best.Score, "candidates", len(res.Candidates))
	return res, nil
}
