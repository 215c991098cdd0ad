package geometry

import (
	"math"
	"sort"

	"holorecon/internal/models"
)

// onEdgeTolerance decides when a pixel center counts as lying on an edge.
const onEdgeTolerance = 1e-9

// Vertex is a polygon corner in (row, col) pixel coordinates.
type Vertex struct {
	Row float64
	Col float64
}

// PolygonMask rasterizes the closed polygon through vertices into a mask of
// the given shape. A pixel is set when its center lies strictly inside the
// polygon or on its boundary. Interior spans come from an even-odd scanline
// fill over pixel-center rows using a half-open edge rule; boundary pixels
// are added explicitly, so the result only depends on the vertices.
func PolygonMask(vertices []Vertex, rows, cols int) *models.Mask {
	mask := models.NewMask(rows, cols)
	n := len(vertices)
	if n == 0 || rows <= 0 || cols <= 0 {
		return mask
	}

	minRow, maxRow := vertices[0].Row, vertices[0].Row
	for _, v := range vertices[1:] {
		minRow = math.Min(minRow, v.Row)
		maxRow = math.Max(maxRow, v.Row)
	}
	r0 := max(0, int(math.Ceil(minRow-onEdgeTolerance)))
	r1 := min(rows-1, int(math.Floor(maxRow+onEdgeTolerance)))

	crossings := make([]float64, 0, n)
	for r := r0; r <= r1; r++ {
		y := float64(r)

		crossings = crossings[:0]
		for i := 0; i < n; i++ {
			a, b := vertices[i], vertices[(i+1)%n]
			if (a.Row <= y && y < b.Row) || (b.Row <= y && y < a.Row) {
				crossings = append(crossings, a.Col+(y-a.Row)*(b.Col-a.Col)/(b.Row-a.Row))
			}
		}
		sort.Float64s(crossings)
		for k := 0; k+1 < len(crossings); k += 2 {
			fillSpan(mask, r, crossings[k], crossings[k+1])
		}

		for i := 0; i < n; i++ {
			markBoundary(mask, r, vertices[i], vertices[(i+1)%n])
		}
	}

	return mask
}

// markBoundary sets the pixels of row r whose centers lie on segment a-b.
func markBoundary(mask *models.Mask, r int, a, b Vertex) {
	y := float64(r)
	lo, hi := math.Min(a.Row, b.Row), math.Max(a.Row, b.Row)
	if y < lo-onEdgeTolerance || y > hi+onEdgeTolerance {
		return
	}

	if math.Abs(b.Row-a.Row) < onEdgeTolerance {
		fillSpan(mask, r, math.Min(a.Col, b.Col), math.Max(a.Col, b.Col))
		return
	}

	x := a.Col + (y-a.Row)*(b.Col-a.Col)/(b.Row-a.Row)
	c := math.Round(x)
	if math.Abs(x-c) <= onEdgeTolerance && c >= 0 && int(c) < mask.Cols {
		mask.Set(r, int(c), true)
	}
}

// fillSpan sets the pixels of row r whose centers fall within [xa, xb].
func fillSpan(mask *models.Mask, r int, xa, xb float64) {
	c0 := max(0, int(math.Ceil(xa-onEdgeTolerance)))
	c1 := min(mask.Cols-1, int(math.Floor(xb+onEdgeTolerance)))
	for c := c0; c <= c1; c++ {
		mask.Set(r, c, true)
	}
}
