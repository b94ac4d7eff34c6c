package detector

import (
	"image"
)

// MaskOn is the value of a set mask pixel.
const MaskOn = 255

// Mask is a binary raster. Set pixels hold MaskOn, all others zero.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask allocates an empty mask.
func NewMask(w, h int) *Mask {
	return &Mask{Width: w, Height: h, Pix: make([]uint8, w*h)}
}

// At reports whether (x, y) is set. Out-of-range coordinates are unset.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x] != 0
}

// Set sets or clears (x, y).
func (m *Mask) Set(x, y int, on bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	if on {
		m.Pix[y*m.Width+x] = MaskOn
	} else {
		m.Pix[y*m.Width+x] = 0
	}
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// CountInRect returns the number of set pixels inside r.
func (m *Mask) CountInRect(r image.Rectangle) int {
	r = r.Intersect(image.Rect(0, 0, m.Width, m.Height))
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x := r.Min.X; x < r.Max.X; x++ {
			if row[x] != 0 {
				n++
			}
		}
	}
	return n
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	out := &Mask{Width: m.Width, Height: m.Height, Pix: make([]uint8, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// Gray renders the mask as a displayable grayscale image.
func (m *Mask) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	copy(g.Pix, m.Pix)
	return g
}

// InRange marks every pixel whose channels all lie within [low, high].
func InRange(hsv *HSVImage, low, high HSV) *Mask {
	m := NewMask(hsv.Width, hsv.Height)
	for i, j := 0, 0; j < len(m.Pix); i, j = i+3, j+1 {
		h, s, v := hsv.Pix[i], hsv.Pix[i+1], hsv.Pix[i+2]
		if h >= low.H && h <= high.H && s >= low.S && s <= high.S && v >= low.V && v <= high.V {
			m.Pix[j] = MaskOn
		}
	}
	return m
}
