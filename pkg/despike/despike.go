// Package despike removes isolated outlier pixels such as X-ray hits from
// detector images.
package despike

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"holorecon/internal/models"
)

// Params controls outlier detection.
type Params struct {
	// Sigma is the threshold in standard deviations of the deviation from
	// the local median
	Sigma float64 `yaml:"sigma"`

	// KernelSize is the edge of the square median kernel; odd, at least 3
	KernelSize int `yaml:"kernelSize"`
}

// DefaultParams returns sigma 8 and a 5x5 kernel.
func DefaultParams() Params {
	return Params{Sigma: 8.0, KernelSize: 5}
}

// Validate checks the parameters, returning an error wrapping
// models.ErrConfiguration.
func (p Params) Validate() error {
	if p.KernelSize < 3 || p.KernelSize%2 == 0 {
		return fmt.Errorf("%w: median kernel size %d must be odd and at least 3", models.ErrConfiguration, p.KernelSize)
	}
	if !(p.Sigma > 0) {
		return fmt.Errorf("%w: sigma %g must be positive", models.ErrConfiguration, p.Sigma)
	}
	return nil
}

// Result describes the pixels a despike pass replaced.
type Result struct {
	Mask  *models.Mask
	Count int
}

// Despike replaces the outliers of img by their local median, in place.
// A pixel is an outlier when its absolute deviation from the median-filtered
// image exceeds Sigma times the standard deviation of all deviations.
func Despike(img *mat.Dense, p Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	rows, cols := img.Dims()
	if rows == 0 || cols == 0 {
		return Result{}, fmt.Errorf("%w: empty image", models.ErrConfiguration)
	}

	med := Median(img, p.KernelSize)

	dev := make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dev[i*cols+j] = math.Abs(img.At(i, j) - med.At(i, j))
		}
	}
	threshold := p.Sigma * stat.PopStdDev(dev, nil)

	mask := models.NewMask(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if dev[i*cols+j] > threshold {
				mask.Set(i, j, true)
				img.Set(i, j, med.At(i, j))
			}
		}
	}
	return Result{Mask: mask, Count: mask.Count()}, nil
}

// Clean is the non-mutating form of Despike: it returns a despiked copy of
// img.
func Clean(img mat.Matrix, p Params) (*mat.Dense, Result, error) {
	out := mat.DenseCopyOf(img)
	res, err := Despike(out, p)
	if err != nil {
		return nil, Result{}, err
	}
	return out, res, nil
}

// Median returns img filtered by a size x size median. Pixels beyond the
// edges repeat the nearest edge pixel.
func Median(img mat.Matrix, size int) *mat.Dense {
	rows, cols := img.Dims()
	half := size / 2
	out := mat.NewDense(rows, cols, nil)
	window := make([]float64, size*size)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			n := 0
			for u := -half; u <= half; u++ {
				r := clamp(i+u, rows)
				for v := -half; v <= half; v++ {
					window[n] = img.At(r, clamp(j+v, cols))
					n++
				}
			}
			sort.Float64s(window)
			out.Set(i, j, window[len(window)/2])
		}
	}
	return out
}

func clamp(i, n int) int {
	return max(0, min(n-1, i))
}
