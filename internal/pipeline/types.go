package pipeline

import (
	"image"

	"github.com/MeKo-Tech/notecrop/internal/detector"
)

// Box is an axis-aligned rectangle in source image pixels.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Size is a width/height pair.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ImageResult is the per-image detection output.
type ImageResult struct {
	Source     string               `json:"file,omitempty"`
	Width      int                  `json:"width"`
	Height     int                  `json:"height"`
	Found      bool                 `json:"found"`
	Reason     string               `json:"reason,omitempty"`
	Box        *Box                 `json:"bbox,omitempty"`
	Score      float64              `json:"score,omitempty"`
	ROISize    *Size                `json:"roi_size,omitempty"`
	Candidates []detector.Candidate `json:"candidates,omitempty"`
	MaskPixels int                  `json:"mask_pixels"`
	Processing struct {
		DetectionNs int64 `json:"detection_ns"`
		UpscaleNs   int64 `json:"upscale_ns"`
		TotalNs     int64 `json:"total_ns"`
	} `json:"processing"`

	// Image outputs are kept out of serialized results.
	ROI       image.Image `json:"-"`
	Mask      *image.Gray `json:"-"`
	Annotated *image.RGBA `json:"-"`
}

// PDFResult holds detection results for the images of a PDF document.
type PDFResult struct {
	Filename   string           `json:"filename"`
	TotalPages int              `json:"total_pages"`
	Images     []PDFImageResult `json:"images"`
	Processing struct {
		ExtractionNs int64 `json:"extraction_ns"`
		TotalNs      int64 `json:"total_ns"`
	} `json:"processing"`
}

// PDFImageResult is the detection result for one image embedded in a page.
type PDFImageResult struct {
	Page       int          `json:"page"`
	ImageIndex int          `json:"image_index"`
	Result     *ImageResult `json:"result"`
}

// FoundCount returns how many images of the document contained a region.
func (r *PDFResult) FoundCount() int {
	n := 0
	for _, img := range r.Images {
		if img.Result != nil && img.Result.Found {
			n++
		}
	}
	return n
}
