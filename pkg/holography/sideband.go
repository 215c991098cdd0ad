package holography

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"holorecon/internal/models"
)

// LocateSideband returns the element of largest magnitude of a centered
// spectrum inside rect. Ties resolve to the first element in row-major
// order.
func LocateSideband(spectrum *mat.CDense, rect models.Rect) (models.Pixel, error) {
	rect = rect.Canon()
	if rect.Empty() {
		return models.Pixel{}, fmt.Errorf("%w: empty sideband search rectangle %+v", models.ErrConfiguration, rect)
	}
	rows, cols := spectrum.Dims()
	if !rect.Within(rows, cols) {
		return models.Pixel{}, fmt.Errorf("%w: sideband search rectangle %+v outside %dx%d spectrum",
			models.ErrBounds, rect, rows, cols)
	}

	best := models.Pixel{Row: rect.Y0, Col: rect.X0}
	bestMag := -1.0
	for i := rect.Y0; i < rect.Y1; i++ {
		for j := rect.X0; j < rect.X1; j++ {
			if mag := cmplx.Abs(spectrum.At(i, j)); mag > bestMag {
				bestMag = mag
				best = models.Pixel{Row: i, Col: j}
			}
		}
	}
	return best, nil
}

// sizeFractions are the proposed sideband sizes as fractions of the
// distance between the sideband and the spectrum center.
var sizeFractions = []float64{1.0 / 3, 1.0 / 2, 1}

// CandidateSizes proposes sideband sizes for a sideband at center of a
// rows x cols spectrum: a third, a half and the whole of its distance to the
// spectrum center, each rounded down to an even number. Non-positive
// proposals are dropped.
func CandidateSizes(rows, cols int, center models.Pixel) ([]int, error) {
	d := math.Hypot(float64(center.Row-rows/2), float64(center.Col-cols/2))

	sizes := make([]int, 0, len(sizeFractions))
	for _, f := range sizeFractions {
		s := int(math.Floor(f * d))
		s -= s % 2
		if s > 0 {
			sizes = append(sizes, s)
		}
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("%w: sideband at (%d,%d) is too close to the spectrum center",
			models.ErrConfiguration, center.Row, center.Col)
	}
	return sizes, nil
}
