package detector

import (
	"image"
	"math"

	"github.com/MeKo-Tech/notecrop/internal/utils"
)

// Scoring constants. They were tuned empirically for sticky notes photographed
// at phone resolution; change them together.
const (
	IdealArea            = 50000.0
	ApproxEpsilonRatio   = 0.02
	areaScoreMax         = 100.0
	areaScoreWeight      = 50.0
	squareScoreMax       = 80.0
	squareScoreWeight    = 2.0
	rectScoreMax         = 40.0
	rectScoreWeight      = 10.0
	fillScoreWeight      = 60.0
	solidityScoreWeight  = 25.0
	centerScoreMax       = 15.0
	centerScoreWeight    = 30.0
	sizeRatioBonus       = 20.0
	sizeRatioLowerBound  = 0.02
	sizeRatioUpperBound  = 0.3
	idealVertexCount     = 4
	vertexCountTolerance = 8
)

// Candidate holds the features and score of one contour.
type Candidate struct {
	Box             image.Rectangle `json:"-"`
	Area            int             `json:"area"`
	AspectDeviation float64         `json:"aspect_deviation"` // percent
	Vertices        int             `json:"vertices"`
	Solidity        float64         `json:"solidity"`
	CenterDistance  float64         `json:"center_distance"`
	FillRatio       float64         `json:"fill_ratio"`
	Score           float64         `json:"score"`
	Valid           bool            `json:"valid"`
	Polygon         []utils.Point   `json:"-"`
}

// ScoreTerms breaks a score into its components.
type ScoreTerms struct {
	Area      float64
	Square    float64
	Rect      float64
	Fill      float64
	Solidity  float64
	Center    float64
	SizeBonus float64
}

// Total sums all terms.
func (t ScoreTerms) Total() float64 {
	return t.Area + t.Square + t.Rect + t.Fill + t.Solidity + t.Center + t.SizeBonus
}

// ScoreContour computes features and the composite score of c. mask is the
// refined mask c was extracted from; its size is the image size.
func ScoreContour(c Contour, mask *Mask, cfg Config) Candidate {
	imgW, imgH := mask.Width, mask.Height
	box := c.Bounds
	w, h := box.Dx(), box.Dy()
	area := w * h

	cand := Candidate{Box: box, Area: area}
	if area == 0 {
		return cand
	}

	cand.AspectDeviation = float64(absInt(w-h)) / float64(max(w, h)) * 100

	perimeter := utils.ArcLength(c.Points, true)
	cand.Polygon = utils.ApproximatePolygon(c.Points, ApproxEpsilonRatio*perimeter, true)
	cand.Vertices = len(cand.Polygon)

	if hullArea := utils.PolygonArea(utils.ConvexHull(c.Points)); hullArea > 0 {
		// The box area exceeds the hull through pixel centres, so cap at 1.
		cand.Solidity = math.Min(1, float64(area)/hullArea)
	}

	cx, cy := box.Min.X+w/2, box.Min.Y+h/2
	dx, dy := float64(cx-imgW/2), float64(cy-imgH/2)
	cand.CenterDistance = math.Hypot(dx, dy) / math.Hypot(float64(imgW), float64(imgH))

	cand.FillRatio = float64(mask.CountInRect(box)) / float64(area)

	if area >= cfg.MinArea {
		cand.Score = ScoreFeatures(cand, imgW*imgH).Total()
	}
	cand.Valid = area >= cfg.MinArea && cand.AspectDeviation <= cfg.MaxAspectDeviationPct
	return cand
}

// ScoreFeatures evaluates every scoring term for already extracted features.
func ScoreFeatures(c Candidate, imageArea int) ScoreTerms {
	area := float64(c.Area)
	t := ScoreTerms{
		Area:     math.Max(0, areaScoreMax-math.Abs(area-IdealArea)/IdealArea*areaScoreWeight),
		Square:   math.Max(0, squareScoreMax-c.AspectDeviation*squareScoreWeight),
		Rect:     math.Min(rectScoreMax, float64(vertexCountTolerance-absInt(c.Vertices-idealVertexCount))*rectScoreWeight),
		Fill:     c.FillRatio * fillScoreWeight,
		Solidity: c.Solidity * solidityScoreWeight,
		Center:   math.Max(0, centerScoreMax-c.CenterDistance*centerScoreWeight),
	}
	if imageArea > 0 {
		ratio := area / float64(imageArea)
		if ratio > sizeRatioLowerBound && ratio < sizeRatioUpperBound {
			t.SizeBonus = sizeRatioBonus
		}
	}
	return t
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
