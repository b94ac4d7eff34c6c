package detector

import (
	"image"

	"github.com/MeKo-Tech/notecrop/internal/mempool"
)

// compStats represents statistics for a connected component.
type compStats struct {
	label  int
	count  int
	minX   int
	minY   int
	maxX   int
	maxY   int
	startX int // first pixel in raster order
	startY int
}

func (c compStats) bounds() image.Rectangle {
	return image.Rect(c.minX, c.minY, c.maxX+1, c.maxY+1)
}

var (
	dirs8 = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	dirs4 = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
)

// connectedComponents labels 8-connected foreground components in raster order.
// Labels start at 1; background is 0. The labels slice comes from mempool and
// must be released with mempool.PutInts.
func connectedComponents(m *Mask) ([]compStats, []int) {
	w, h := m.Width, m.Height
	labels := mempool.GetInts(w * h)
	queue := mempool.GetInts(w * h)
	defer mempool.PutInts(queue)

	var comps []compStats
	label := 1
	for y := range h {
		for x := range w {
			idx := y*w + x
			if m.Pix[idx] != 0 && labels[idx] == 0 {
				comps = append(comps, performComponentBFS(m, labels, queue, x, y, label))
				label++
			}
		}
	}
	return comps, labels
}

// performComponentBFS floods one component from its seed pixel.
func performComponentBFS(m *Mask, labels, queue []int, startX, startY, label int) compStats {
	w, h := m.Width, m.Height
	st := compStats{
		label: label, minX: startX, minY: startY, maxX: startX, maxY: startY,
		startX: startX, startY: startY,
	}
	head, tail := 0, 0
	queue[tail] = startY*w + startX
	tail++
	labels[startY*w+startX] = label

	for head < tail {
		ci := queue[head]
		head++
		cx, cy := ci%w, ci/w
		updateComponentStats(&st, cx, cy)
		for _, d := range dirs8 {
			nx, ny := cx+d[0], cy+d[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			ni := ny*w + nx
			if m.Pix[ni] != 0 && labels[ni] == 0 {
				labels[ni] = label
				queue[tail] = ni
				tail++
			}
		}
	}
	return st
}

func updateComponentStats(st *compStats, cx, cy int) {
	st.count++
	st.minX = min(st.minX, cx)
	st.minY = min(st.minY, cy)
	st.maxX = max(st.maxX, cx)
	st.maxY = max(st.maxY, cy)
}

// outerBackground marks background pixels 4-connected to the image border.
// Components touching this region (or the border) are outermost; anything else
// sits inside a hole of another component. The result comes from mempool.
func outerBackground(m *Mask) []byte {
	w, h := m.Width, m.Height
	outer := mempool.GetBytes(w * h)
	queue := mempool.GetInts(w * h)
	defer mempool.PutInts(queue)

	tail := 0
	seed := func(x, y int) {
		i := y*w + x
		if m.Pix[i] == 0 && outer[i] == 0 {
			outer[i] = 1
			queue[tail] = i
			tail++
		}
	}
	for x := range w {
		seed(x, 0)
		seed(x, h-1)
	}
	for y := range h {
		seed(0, y)
		seed(w-1, y)
	}

	for head := 0; head < tail; head++ {
		ci := queue[head]
		cx, cy := ci%w, ci/w
		for _, d := range dirs4 {
			nx, ny := cx+d[0], cy+d[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			seed(nx, ny)
		}
	}
	return outer
}

// isExternal reports whether the component is not enclosed by another one.
// The pixel above a component's first raster pixel is always background, and it
// belongs to the outer region exactly when the component is outermost.
func isExternal(st compStats, outer []byte, w int) bool {
	if st.startY == 0 {
		return true
	}
	return outer[(st.startY-1)*w+st.startX] != 0
}
