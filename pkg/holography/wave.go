// Package holography reconstructs complex electron waves from off-axis
// electron holograms by cutting a sideband out of the hologram's spectrum,
// filtering it and transforming it back.
package holography

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"holorecon/internal/models"
	"holorecon/pkg/diag"
	"holorecon/pkg/fft"
)

const (
	// DefaultFresnelRatio is the inner end of the Fresnel strip as a
	// fraction of the aperture radius.
	DefaultFresnelRatio = 0.3

	// DefaultFresnelWidth is the Fresnel strip width in pixels.
	DefaultFresnelWidth = 6.0
)

// WaveParams controls the sideband filter of a single reconstruction.
// Zero Fresnel fields are replaced by the defaults.
type WaveParams struct {
	// Size is the edge of the square sideband ROI; positive and even
	Size int

	// FresnelRatio is the inner end of the Fresnel exclusion strip as a
	// fraction of the aperture radius, in (0, 1]
	FresnelRatio float64

	// FresnelWidth is the strip width in pixels
	FresnelWidth float64
}

// DefaultWaveParams returns the parameters for a sideband of the given size.
func DefaultWaveParams(size int) WaveParams {
	return WaveParams{
		Size:         size,
		FresnelRatio: DefaultFresnelRatio,
		FresnelWidth: DefaultFresnelWidth,
	}
}

func (p WaveParams) withDefaults() WaveParams {
	if p.FresnelRatio == 0 {
		p.FresnelRatio = DefaultFresnelRatio
	}
	if p.FresnelWidth == 0 {
		p.FresnelWidth = DefaultFresnelWidth
	}
	return p
}

// Validate checks the parameters, returning an error wrapping
// models.ErrConfiguration.
func (p WaveParams) Validate() error {
	if p.Size <= 0 || p.Size%2 != 0 {
		return fmt.Errorf("%w: sideband size %d must be a positive even integer", models.ErrConfiguration, p.Size)
	}
	if p.FresnelRatio <= 0 || p.FresnelRatio > 1 {
		return fmt.Errorf("%w: fresnel ratio %g must be in (0, 1]", models.ErrConfiguration, p.FresnelRatio)
	}
	if p.FresnelWidth < 0 {
		return fmt.Errorf("%w: fresnel width %g must not be negative", models.ErrConfiguration, p.FresnelWidth)
	}
	return nil
}

// WaveReconstructor extracts and filters one sideband of one hologram and
// inverse-transforms it to a complex wave. It holds no state besides its
// diagnostics sink and is safe for concurrent use.
type WaveReconstructor struct {
	sink diag.Sink
}

// NewWaveReconstructor creates a reconstructor reporting to sink (nil
// discards diagnostics).
func NewWaveReconstructor(sink diag.Sink) *WaveReconstructor {
	return &WaveReconstructor{sink: diag.OrNop(sink)}
}

// Reconstruct returns the complex wave encoded in the sideband of hologram
// centered at center (row, col of the centered spectrum). The result is a
// Size x Size array.
//
// The hologram is transformed without apodization. The sideband ROI is
// multiplied by a circular aperture, the complement of the Fresnel strip
// and a separable sinc window before the inverse transform.
func (w *WaveReconstructor) Reconstruct(hologram mat.Matrix, center models.Pixel, params WaveParams) (*mat.CDense, error) {
	params = params.withDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := checkShape(hologram); err != nil {
		return nil, err
	}
	return w.fromSpectrum(Spectrum(hologram), center, params)
}

// fromSpectrum runs the sideband filter on an already centered spectrum.
// params must be validated.
func (w *WaveReconstructor) fromSpectrum(spectrum *mat.CDense, center models.Pixel, params WaveParams) (*mat.CDense, error) {
	rows, cols := spectrum.Dims()
	size := params.Size
	r0, c0 := center.Row-size/2, center.Col-size/2

	roi := models.Rect{X0: c0, Y0: r0, X1: c0 + size, Y1: r0 + size}
	if !roi.Within(rows, cols) {
		return nil, fmt.Errorf("%w: sideband ROI rows [%d,%d) cols [%d,%d) outside %dx%d spectrum",
			models.ErrBounds, roi.Y0, roi.Y1, roi.X0, roi.X1, rows, cols)
	}

	aperture := apertureMask(size, size)
	fresnel := fresnelMask(size, size, center, rows, cols, params.FresnelRatio, params.FresnelWidth)
	keep, err := aperture.And(fresnel.Not())
	if err != nil {
		return nil, err
	}
	window := sincWindow(size)

	filtered := mat.NewCDense(size, size, nil)
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			if keep.At(i, j) {
				filtered.Set(i, j, spectrum.At(r0+i, c0+j)*complex(window[i]*window[j], 0))
			}
		}
	}

	w.sink.Debug("wave", "sideband filtered", diag.Fields{
		"row":      center.Row,
		"col":      center.Col,
		"size":     size,
		"aperture": aperture.Count(),
		"fresnel":  fresnel.Count(),
	})

	return fft.Inverse2(fft.IShift(filtered)), nil
}

// Spectrum returns the centered 2D transform of a real hologram.
func Spectrum(hologram mat.Matrix) *mat.CDense {
	return fft.Centered(hologram)
}

func checkShape(m mat.Matrix) error {
	if m == nil {
		return fmt.Errorf("%w: missing hologram", models.ErrConfiguration)
	}
	if r, c := m.Dims(); r == 0 || c == 0 {
		return fmt.Errorf("%w: empty hologram", models.ErrConfiguration)
	}
	return nil
}
