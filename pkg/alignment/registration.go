package alignment

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"holorecon/internal/models"
	"holorecon/pkg/fft"
)

// crossPowerFloor keeps the normalized cross-power spectrum finite where
// both spectra vanish.
const crossPowerFloor = 1e-12

// register estimates the translation that maps target onto reference
// (Roll(target, dy, dx) ≈ reference) by phase correlation. The integer
// peak of the correlation is refined to 1/upsample of a pixel by
// evaluating the inverse transform of the cross-power spectrum on a fine
// grid around it, so no large zero-padded transform is needed.
func register(reference, target *mat.Dense, upsample int) (models.DriftVector, error) {
	if upsample < 1 {
		return models.DriftVector{}, fmt.Errorf("%w: upsample factor %d must be at least 1", models.ErrConfiguration, upsample)
	}
	rows, cols := reference.Dims()
	if tr, tc := target.Dims(); tr != rows || tc != cols {
		return models.DriftVector{}, fmt.Errorf("%w: registration of %dx%d against %dx%d", models.ErrConfiguration, tr, tc, rows, cols)
	}

	fr := fft.Forward2(fft.FromReal(reference))
	ft := fft.Forward2(fft.FromReal(target))
	cross := mat.NewCDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			p := fr.At(i, j) * cmplx.Conj(ft.At(i, j))
			cross.Set(i, j, p/complex(math.Max(cmplx.Abs(p), crossPowerFloor), 0))
		}
	}

	corr := fft.Inverse2(cross)
	peakRow, peakCol := argmaxAbs(corr)
	dy := float64(signedIndex(peakRow, rows))
	dx := float64(signedIndex(peakCol, cols))

	if upsample > 1 {
		up := float64(upsample)
		dy = math.Round(dy*up) / up
		dx = math.Round(dx*up) / up

		region := int(math.Ceil(1.5 * up))
		center := float64(region / 2)

		fine := upsampledCorrelation(cross, dy, dx, region, up)
		ur, uc := argmaxAbs(fine)
		dy += (float64(ur) - center) / up
		dx += (float64(uc) - center) / up
	}

	return models.DriftVector{DX: dx, DY: dy}, nil
}

// upsampledCorrelation evaluates the inverse transform of cross on a
// region x region grid with spacing 1/up centered on (dy, dx). It is the
// product of a row kernel, cross and a column kernel.
func upsampledCorrelation(cross *mat.CDense, dy, dx float64, region int, up float64) *mat.CDense {
	rows, cols := cross.Dims()
	center := float64(region / 2)

	rowKernel := dftKernel(rows, region, dy, center, up)
	colKernel := dftKernel(cols, region, dx, center, up)

	// tmp = cross * colKernelᵀ, rows x region
	tmp := make([]complex128, rows*region)
	for i := 0; i < rows; i++ {
		for v := 0; v < region; v++ {
			var sum complex128
			for k := 0; k < cols; k++ {
				sum += cross.At(i, k) * colKernel[v*cols+k]
			}
			tmp[i*region+v] = sum
		}
	}

	out := mat.NewCDense(region, region, nil)
	for u := 0; u < region; u++ {
		for v := 0; v < region; v++ {
			var sum complex128
			for k := 0; k < rows; k++ {
				sum += rowKernel[u*rows+k] * tmp[k*region+v]
			}
			out.Set(u, v, sum)
		}
	}
	return out
}

// dftKernel returns the region x n matrix exp(i2π f(k) s(u) / n), with f the
// signed frequency of bin k and s(u) = shift + (u - center)/up.
func dftKernel(n, region int, shift, center, up float64) []complex128 {
	kernel := make([]complex128, region*n)
	for u := 0; u < region; u++ {
		s := shift + (float64(u)-center)/up
		for k := 0; k < n; k++ {
			kernel[u*n+k] = cmplx.Exp(complex(0, 2*math.Pi*float64(frequency(k, n))*s/float64(n)))
		}
	}
	return kernel
}

// signedIndex maps an FFT index to a signed offset: indices past the middle
// are negative.
func signedIndex(i, n int) int {
	if i > n/2 {
		return i - n
	}
	return i
}

// frequency returns the signed frequency of FFT bin k of n; the Nyquist bin
// of an even length counts as negative.
func frequency(k, n int) int {
	if k < n-n/2 {
		return k
	}
	return k - n
}

// argmaxAbs returns the first element of largest magnitude in row-major
// order.
func argmaxAbs(m *mat.CDense) (row, col int) {
	rows, cols := m.Dims()
	best := -1.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if a := cmplx.Abs(m.At(i, j)); a > best {
				best, row, col = a, i, j
			}
		}
	}
	return row, col
}
