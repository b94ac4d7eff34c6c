package detector

import (
	"fmt"
	"image"
	"image/color"

	"github.com/MeKo-Tech/notecrop/internal/utils"
)

// Debug overlay styling.
var (
	BestBoxColor  = color.RGBA{R: 255, A: 255}
	OtherBoxColor = color.RGBA{R: 255, G: 100, B: 100, A: 255}
)

const (
	// AnnotatedTopN is the number of ranked candidates drawn on debug images.
	AnnotatedTopN  = 3
	bestThickness  = 3
	otherThickness = 1
	labelOffsetY   = 10
)

// ExtractROI crops img to box, given relative to the image's top-left corner.
func ExtractROI(img image.Image, box image.Rectangle) (*image.NRGBA, error) {
	if err := validateImage(img); err != nil {
		return nil, err
	}
	roi, err := utils.CropImage(img, box)
	if err != nil {
		return nil, &InputError{Stage: "crop", Err: err}
	}
	return roi, nil
}

// RenderCandidates draws the top ranked candidates over a copy of img. The first
// entry of ranked is emphasised; every box is labeled with its rounded score.
func RenderCandidates(img image.Image, ranked []Candidate) *image.RGBA {
	dst := utils.CloneRGBA(img)
	for i, c := range ranked {
		if i >= AnnotatedTopN {
			break
		}
		col, thickness := OtherBoxColor, otherThickness
		if i == 0 {
			col, thickness = BestBoxColor, bestThickness
		}
		utils.DrawRect(dst, c.Box, col, thickness)
		utils.DrawLabel(dst, c.Box.Min.X, c.Box.Min.Y-labelOffsetY, fmt.Sprintf("%.0f", c.Score), col)
	}
	return dst
}
