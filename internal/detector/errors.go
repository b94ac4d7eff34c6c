package detector

import (
	"errors"
	"fmt"
	"image"
)

// ErrInvalidImage is reported for nil or empty image buffers.
var ErrInvalidImage = errors.New("invalid image")

// InputError reports an input that cannot be processed at all.
// No partial processing happens when it is returned.
type InputError struct {
	Stage string
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("detector input error in %s: %v", e.Stage, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

func validateImage(img image.Image) error {
	if img == nil {
		return &InputError{Stage: "validate", Err: fmt.Errorf("%w: nil image", ErrInvalidImage)}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return &InputError{
			Stage: "validate",
			Err:   fmt.Errorf("%w: empty bounds %v", ErrInvalidImage, b),
		}
	}
	return nil
}
