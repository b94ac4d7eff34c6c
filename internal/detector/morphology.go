package detector

import (
	"github.com/MeKo-Tech/notecrop/internal/mempool"
)

// MorphologicalOp represents the type of morphological operation to perform.
type MorphologicalOp int

const (
	MorphDilate  MorphologicalOp = iota
	MorphErode
	MorphOpening // Erode then Dilate - removes small noise
	MorphClosing // Dilate then Erode - fills gaps
)

// MorphConfig describes one morphological step with a square structuring element.
type MorphConfig struct {
	Operation  MorphologicalOp
	KernelSize int // Size of the kernel (e.g., 3 for 3x3)
	Iterations int
}

// RefineSteps is the cleanup sequence applied to every raw mask.
var RefineSteps = []MorphConfig{
	{Operation: MorphOpening, KernelSize: 3, Iterations: 1},
	{Operation: MorphClosing, KernelSize: 7, Iterations: 3},
	{Operation: MorphClosing, KernelSize: 10, Iterations: 1},
}

// RefineMask returns a cleaned copy of m: speckle removal followed by hole
// filling and fragment merging. m is left untouched.
func RefineMask(m *Mask) *Mask {
	out := m.Clone()
	for _, step := range RefineSteps {
		applyInPlace(out, step)
	}
	return out
}

// ApplyMorphologicalOperation returns a copy of m with the operation applied.
// Opening with n iterations erodes n times then dilates n times; closing is the reverse.
func ApplyMorphologicalOperation(m *Mask, config MorphConfig) *Mask {
	out := m.Clone()
	applyInPlace(out, config)
	return out
}

func applyInPlace(m *Mask, config MorphConfig) {
	if config.KernelSize <= 1 || config.Iterations <= 0 || m.Width == 0 || m.Height == 0 {
		return
	}
	repeat := func(erode bool) {
		for range config.Iterations {
			rectFilter(m, config.KernelSize, erode)
		}
	}
	switch config.Operation {
	case MorphDilate:
		repeat(false)
	case MorphErode:
		repeat(true)
	case MorphOpening:
		repeat(true)
		repeat(false)
	case MorphClosing:
		repeat(false)
		repeat(true)
	}
}

// rectFilter erodes or dilates m in place with a k x k rectangle anchored at
// (k/2, k/2). Pixels outside the image do not contribute, so erosion never
// eats in from the image border.
func rectFilter(m *Mask, k int, erode bool) {
	w, h := m.Width, m.Height
	tmp := mempool.GetBytes(w * h)
	prefix := mempool.GetInts(max(w, h) + 1)
	defer mempool.PutBytes(tmp)
	defer mempool.PutInts(prefix)

	// Rectangles are separable: filter rows into tmp, then columns back into m.
	filterLines(m.Pix, tmp, w, h, 1, w, k, erode, prefix)
	filterLines(tmp, m.Pix, h, w, w, 1, k, erode, prefix)
}

// filterLines runs a 1-D min/max filter over `lines` lines of `length` pixels.
// Pixel i of line l lives at l*lineStep + i*step.
func filterLines(src, dst []uint8, length, lines, step, lineStep, k int, erode bool, prefix []int) {
	before := k / 2
	after := k - 1 - before
	for l := range lines {
		base := l * lineStep
		prefix[0] = 0
		for i := range length {
			v := 0
			if src[base+i*step] != 0 {
				v = 1
			}
			prefix[i+1] = prefix[i] + v
		}
		for i := range length {
			a := max(0, i-before)
			b := min(length, i+after+1)
			n := prefix[b] - prefix[a]
			on := n > 0
			if erode {
				on = n == b-a
			}
			if on {
				dst[base+i*step] = MaskOn
			} else {
				dst[base+i*step] = 0
			}
		}
	}
}
