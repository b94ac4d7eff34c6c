package utils

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ImageProcessingError wraps a failing image operation.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ImageConstraints bounds the dimensions accepted from untrusted inputs.
type ImageConstraints struct {
	MinWidth  int
	MinHeight int
	MaxWidth  int
	MaxHeight int
}

// DefaultImageConstraints returns limits suitable for phone camera captures.
func DefaultImageConstraints() ImageConstraints {
	return ImageConstraints{
		MinWidth:  1,
		MinHeight: 1,
		MaxWidth:  12000,
		MaxHeight: 12000,
	}
}

// Check reports whether a width x height image fits the constraints.
// A zero maximum disables the corresponding upper bound.
func (c ImageConstraints) Check(width, height int) error {
	if width < c.MinWidth || height < c.MinHeight {
		return fmt.Errorf("image too small: %dx%d < %dx%d", width, height, c.MinWidth, c.MinHeight)
	}
	if (c.MaxWidth > 0 && width > c.MaxWidth) || (c.MaxHeight > 0 && height > c.MaxHeight) {
		return fmt.Errorf("image too large: %dx%d > %dx%d", width, height, c.MaxWidth, c.MaxHeight)
	}
	return nil
}

// MaxUpscaleFactor is the largest accepted ROI enlargement.
const MaxUpscaleFactor = 4

// Upscale enlarges img by an integer factor using a Lanczos filter.
// A factor of 1 returns img unchanged.
func Upscale(img image.Image, factor int) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "upscale", Err: errors.New("input image is nil")}
	}
	if factor < 1 || factor > MaxUpscaleFactor {
		return nil, &ImageProcessingError{
			Operation: "upscale",
			Err:       fmt.Errorf("factor %d out of range [1,%d]", factor, MaxUpscaleFactor),
		}
	}
	if factor == 1 {
		return img, nil
	}
	b := img.Bounds()
	return imaging.Resize(img, b.Dx()*factor, b.Dy()*factor, imaging.Lanczos), nil
}
