// Package fft implements the centered 2D Fourier transforms used by the
// holography and alignment packages on top of gonum's complex FFT.
package fft

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// FromReal promotes a real matrix to a new complex matrix.
func FromReal(m mat.Matrix) *mat.CDense {
	rows, cols := m.Dims()
	data := make([]complex128, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data[i*cols+j] = complex(m.At(i, j), 0)
		}
	}
	return mat.NewCDense(rows, cols, data)
}

// Forward2 returns the unnormalized 2D discrete Fourier transform of m.
func Forward2(m *mat.CDense) *mat.CDense {
	rows, cols := m.Dims()
	data := contiguous(m)
	transform2D(data, rows, cols, true)
	return mat.NewCDense(rows, cols, data)
}

// Inverse2 returns the inverse 2D discrete Fourier transform of m,
// normalized so that Inverse2(Forward2(x)) == x.
func Inverse2(m *mat.CDense) *mat.CDense {
	rows, cols := m.Dims()
	data := contiguous(m)
	transform2D(data, rows, cols, false)

	scale := complex(1/float64(rows*cols), 0)
	for i := range data {
		data[i] *= scale
	}
	return mat.NewCDense(rows, cols, data)
}

// transform2D runs the row then column passes in place. gonum transforms
// are unnormalized in both directions.
func transform2D(data []complex128, rows, cols int, forward bool) {
	rowFFT := fourier.NewCmplxFFT(cols)
	for i := 0; i < rows; i++ {
		row := data[i*cols : (i+1)*cols]
		if forward {
			rowFFT.Coefficients(row, row)
		} else {
			rowFFT.Sequence(row, row)
		}
	}

	colFFT := fourier.NewCmplxFFT(rows)
	col := make([]complex128, rows)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			col[i] = data[i*cols+j]
		}
		if forward {
			colFFT.Coefficients(col, col)
		} else {
			colFFT.Sequence(col, col)
		}
		for i := 0; i < rows; i++ {
			data[i*cols+j] = col[i]
		}
	}
}

// Shift moves the zero-frequency element to the center of the array
// (index rows/2, cols/2).
func Shift(m *mat.CDense) *mat.CDense {
	rows, cols := m.Dims()
	return roll(m, rows/2, cols/2)
}

// IShift undoes Shift, moving the center element back to index (0, 0).
func IShift(m *mat.CDense) *mat.CDense {
	rows, cols := m.Dims()
	return roll(m, -(rows / 2), -(cols / 2))
}

// Centered returns the transform of a real image with the zero frequency
// at the center.
func Centered(m mat.Matrix) *mat.CDense {
	return Shift(Forward2(FromReal(m)))
}

// Abs returns the elementwise magnitude of m.
func Abs(m *mat.CDense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, cmplx.Abs(m.At(i, j)))
		}
	}
	return out
}

// LogMagnitude returns log(1+|m|), the usual way of displaying a spectrum.
func LogMagnitude(m *mat.CDense) *mat.Dense {
	out := Abs(m)
	out.Apply(func(_, _ int, v float64) float64 { return math.Log1p(v) }, out)
	return out
}

// roll circularly shifts m by dr rows and dc columns.
func roll(m *mat.CDense, dr, dc int) *mat.CDense {
	rows, cols := m.Dims()
	out := mat.NewCDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		ri := mod(i+dr, rows)
		for j := 0; j < cols; j++ {
			out.Set(ri, mod(j+dc, cols), m.At(i, j))
		}
	}
	return out
}

func contiguous(m *mat.CDense) []complex128 {
	rows, cols := m.Dims()
	data := make([]complex128, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data[i*cols+j] = m.At(i, j)
		}
	}
	return data
}

func mod(i, n int) int {
	r := i % n
	if r < 0 {
		r += n
	}
	return r
}
