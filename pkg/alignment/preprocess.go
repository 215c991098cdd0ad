package alignment

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"holorecon/internal/models"
	"holorecon/pkg/fft"
)

// BandPass keeps the frequencies strictly closer than radius to the center
// of the transform of img and returns the magnitude of the inverse. On a
// hologram this isolates the centre band and drops the carrier fringes.
func BandPass(img mat.Matrix, radius float64) *mat.Dense {
	spectrum := fft.Centered(img)
	rows, cols := spectrum.Dims()

	for i := 0; i < rows; i++ {
		y := float64(i - rows/2)
		for j := 0; j < cols; j++ {
			x := float64(j - cols/2)
			if math.Hypot(x, y) >= radius {
				spectrum.Set(i, j, 0)
			}
		}
	}
	return fft.Abs(fft.Inverse2(fft.IShift(spectrum)))
}

// crop returns a copy of the region r of m.
func crop(m *mat.Dense, r models.Rect) *mat.Dense {
	return mat.DenseCopyOf(m.Slice(r.Y0, r.Y1, r.X0, r.X1))
}

// bin block-averages m by factor in both directions. Trailing rows and
// columns that do not fill a whole block are dropped.
func bin(m *mat.Dense, factor int) *mat.Dense {
	if factor == 1 {
		return m
	}
	rows, cols := m.Dims()
	br, bc := rows/factor, cols/factor
	out := mat.NewDense(br, bc, nil)
	area := float64(factor * factor)

	for i := 0; i < br; i++ {
		for j := 0; j < bc; j++ {
			sum := 0.0
			for u := 0; u < factor; u++ {
				for v := 0; v < factor; v++ {
					sum += m.At(i*factor+u, j*factor+v)
				}
			}
			out.Set(i, j, sum/area)
		}
	}
	return out
}
