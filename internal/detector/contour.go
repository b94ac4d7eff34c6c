package detector

import (
	"image"
	"log/slog"

	"github.com/MeKo-Tech/notecrop/internal/mempool"
	"github.com/MeKo-Tech/notecrop/internal/utils"
)

// Contour is the outer boundary of one connected mask component.
type Contour struct {
	Points []utils.Point    // boundary in clockwise order, straight runs compressed
	Bounds image.Rectangle  // component extent, Max exclusive
	Pixels int              // number of component pixels
}

// ExtractContours returns the outer boundaries of all outermost components of m,
// ordered by each component's first pixel in raster order. Components nested in
// holes of other components are skipped.
func ExtractContours(m *Mask) []Contour {
	if m == nil || m.Width == 0 || m.Height == 0 {
		return nil
	}
	comps, labels := connectedComponents(m)
	defer mempool.PutInts(labels)
	if len(comps) == 0 {
		return nil
	}
	outer := outerBackground(m)
	defer mempool.PutBytes(outer)

	contours := make([]Contour, 0, len(comps))
	for _, c := range comps {
		if !isExternal(c, outer, m.Width) {
			continue
		}
		contours = append(contours, Contour{
			Points: traceContourMoore(labels, m.Width, m.Height, c),
			Bounds: c.bounds(),
			Pixels: c.count,
		})
	}
	slog.Debug("Contours extracted", "components", len(comps), "external", len(contours))
	return contours
}

// 8-neighborhood clockwise order (y grows downward): E, SE, S, SW, W, NW, N, NE.
var (
	ndx = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	ndy = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

// traceContourMoore follows the boundary of a labeled component using
// Moore-Neighbor tracing, starting at its first raster pixel. Tracing stops when
// the start pixel is about to be left towards the same neighbor as the first move.
func traceContourMoore(labels []int, w, h int, st compStats) []utils.Point {
	pts := make([]utils.Point, 0, 64)
	sx, sy := st.startX, st.startY
	addPoint(&pts, sx, sy)

	cx, cy := sx, sy
	bx, by := sx-1, sy // west of the first raster pixel is never part of the component
	firstX, firstY := -1, -1
	maxSteps := 4*st.count + 8

	for step := 0; step < maxSteps; step++ {
		nx, ny, nbx, nby, ok := findNextBoundaryPixel(labels, w, h, st.label, cx, cy, bx, by)
		if !ok {
			break // isolated pixel
		}
		if step == 0 {
			firstX, firstY = nx, ny
		} else if cx == sx && cy == sy && nx == firstX && ny == firstY {
			break
		}
		cx, cy, bx, by = nx, ny, nbx, nby
		addPoint(&pts, cx, cy)
	}

	removeDuplicateClosingPoint(&pts)
	return pts
}

// addPoint appends (x, y), dropping the previous point when it lies in the
// middle of a straight run. Reversals are kept so spikes keep their tips.
func addPoint(pts *[]utils.Point, x, y int) {
	p := utils.Point{X: float64(x), Y: float64(y)}
	n := len(*pts)
	if n >= 2 {
		a, b := (*pts)[n-2], (*pts)[n-1]
		v1x, v1y := b.X-a.X, b.Y-a.Y
		v2x, v2y := p.X-b.X, p.Y-b.Y
		if v1x*v2y-v1y*v2x == 0 && v1x*v2x+v1y*v2y > 0 {
			*pts = (*pts)[:n-1]
		}
	}
	*pts = append(*pts, p)
}

func removeDuplicateClosingPoint(pts *[]utils.Point) {
	if len(*pts) >= 2 && (*pts)[0] == (*pts)[len(*pts)-1] {
		*pts = (*pts)[:len(*pts)-1]
	}
}

func isLabelPixel(labels []int, w, h, label, x, y int) bool {
	if x < 0 || y < 0 || x >= w || y >= h {
		return false
	}
	return labels[y*w+x] == label
}

func dirIndex(dx, dy int) int {
	for i := range 8 {
		if ndx[i] == dx && ndy[i] == dy {
			return i
		}
	}
	return 0
}

// findNextBoundaryPixel scans the Moore neighborhood of c clockwise, starting
// after the backtrack pixel b. It returns the next component pixel and the
// neighbor examined just before it, which becomes the new backtrack.
func findNextBoundaryPixel(labels []int, w, h, label, cx, cy, bx, by int) (int, int, int, int, bool) {
	start := dirIndex(bx-cx, by-cy)
	px, py := bx, by
	for k := 1; k <= 8; k++ {
		i := (start + k) % 8
		tx, ty := cx+ndx[i], cy+ndy[i]
		if isLabelPixel(labels, w, h, label, tx, ty) {
			return tx, ty, px, py, true
		}
		px, py = tx, ty
	}
	return 0, 0, 0, 0, false
}
