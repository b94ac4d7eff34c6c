package detector

import (
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// HSVImage stores HSV triples in row-major order, three bytes per pixel.
type HSVImage struct {
	Width  int
	Height int
	Pix    []uint8
}

// At returns the triple at (x, y).
func (h *HSVImage) At(x, y int) HSV {
	i := 3 * (y*h.Width + x)
	return HSV{H: h.Pix[i], S: h.Pix[i+1], V: h.Pix[i+2]}
}

// RGBToHSV converts an 8-bit RGB color to the 8-bit HSV scale.
func RGBToHSV(r, g, b uint8) HSV {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	h, s, v := c.Hsv()
	hue := int(math.Round(h / 2))
	if hue >= 180 {
		hue -= 180
	}
	return HSV{
		H: uint8(hue),
		S: uint8(math.Round(s * 255)),
		V: uint8(math.Round(v * 255)),
	}
}

// ToHSV converts img to an HSVImage whose origin is (0,0).
func ToHSV(img image.Image) (*HSVImage, error) {
	if err := validateImage(img); err != nil {
		return nil, err
	}
	b := img.Bounds()
	out := &HSVImage{Width: b.Dx(), Height: b.Dy(), Pix: make([]uint8, 3*b.Dx()*b.Dy())}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			p := RGBToHSV(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			out.Pix[i], out.Pix[i+1], out.Pix[i+2] = p.H, p.S, p.V
			i += 3
		}
	}
	return out, nil
}
