package holography

import (
	"context"
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"holorecon/internal/models"
	"holorecon/pkg/diag"
	"holorecon/pkg/fft"
	"holorecon/pkg/geometry"
	"holorecon/pkg/selector"
)

// PairResult holds the outcome of reconstructing an object/reference pair.
type PairResult struct {
	// Wave is the object wave divided by the reference wave
	Wave *mat.CDense

	// Phase is arg(Wave) in (-π, π]; it is not unwrapped
	Phase *mat.Dense

	// Amplitude is |Wave|
	Amplitude *mat.Dense

	// Spec is the resolved sideband; pass it back in to reconstruct further
	// holograms of the same series without interaction
	Spec models.SidebandSpec

	// NonFinite counts NaN or infinite wave elements caused by a near-zero
	// reference wave
	NonFinite int
}

// PairReconstructor locates (or reuses) a sideband and reconstructs the
// object wave normalized by the reference wave.
type PairReconstructor struct {
	wave     *WaveReconstructor
	defaults WaveParams
	sink     diag.Sink
}

// NewPairReconstructor creates a pair reconstructor. The Fresnel fields of
// defaults apply when a sideband is selected interactively; its Size is
// ignored.
func NewPairReconstructor(defaults WaveParams, sink diag.Sink) *PairReconstructor {
	sink = diag.OrNop(sink)
	return &PairReconstructor{
		wave:     NewWaveReconstructor(sink),
		defaults: defaults.withDefaults(),
		sink:     sink,
	}
}

// Reconstruct reconstructs object against reference (nil means a reference
// wave of 1).
//
// Without spec, a rectangle is requested from sel on the log-magnitude
// spectrum of object, the sideband center is the magnitude maximum inside
// it, and the size is chosen from CandidateSizes by sel when it implements
// selector.SizeChooser (the half-distance candidate otherwise). With spec,
// the center is re-located inside spec.Rect (or taken verbatim when the
// rectangle is empty) and the size and Fresnel parameters are reused.
//
// Near-zero reference values produce NaN/Inf elements; they are counted in
// PairResult.NonFinite and reported to the sink, not returned as an error.
func (p *PairReconstructor) Reconstruct(ctx context.Context, object, reference mat.Matrix, spec *models.SidebandSpec, sel selector.RectangleSelector) (*PairResult, error) {
	if err := checkShape(object); err != nil {
		return nil, err
	}
	rows, cols := object.Dims()
	if reference != nil {
		if rr, rc := reference.Dims(); rr != rows || rc != cols {
			return nil, fmt.Errorf("%w: reference %dx%d does not match object %dx%d",
				models.ErrConfiguration, rr, rc, rows, cols)
		}
	}

	spectrum := Spectrum(object)
	resolved, err := p.resolveSpec(ctx, spectrum, spec, sel)
	if err != nil {
		return nil, err
	}

	params := WaveParams{
		Size:         resolved.Size,
		FresnelRatio: resolved.FresnelRatio,
		FresnelWidth: resolved.FresnelWidth,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	wave, err := p.wave.fromSpectrum(spectrum, resolved.Center, params)
	if err != nil {
		return nil, fmt.Errorf("object wave: %w", err)
	}
	if reference != nil {
		refWave, err := p.wave.fromSpectrum(Spectrum(reference), resolved.Center, params)
		if err != nil {
			return nil, fmt.Errorf("reference wave: %w", err)
		}
		wave = divide(wave, refWave)
	}

	res := &PairResult{Wave: wave, Spec: resolved}
	res.Phase, res.Amplitude, res.NonFinite = derive(wave)

	if res.NonFinite > 0 {
		p.sink.Warn("pair", "reference wave division produced non-finite values", diag.Fields{
			"count": res.NonFinite,
			"error": models.ErrNumericalDegeneracy.Error(),
		})
	}
	p.sink.Info("pair", "hologram reconstructed", diag.Fields{
		"row":  resolved.Center.Row,
		"col":  resolved.Center.Col,
		"size": resolved.Size,
	})
	return res, nil
}

func (p *PairReconstructor) resolveSpec(ctx context.Context, spectrum *mat.CDense, spec *models.SidebandSpec, sel selector.RectangleSelector) (models.SidebandSpec, error) {
	if spec != nil {
		resolved := *spec
		if resolved.FresnelRatio == 0 {
			resolved.FresnelRatio = p.defaults.FresnelRatio
		}
		if resolved.FresnelWidth == 0 {
			resolved.FresnelWidth = p.defaults.FresnelWidth
		}
		resolved.Rect = resolved.Rect.Canon()
		if !resolved.Rect.Empty() {
			center, err := LocateSideband(spectrum, resolved.Rect)
			if err != nil {
				return models.SidebandSpec{}, err
			}
			resolved.Center = center
		}
		return resolved, nil
	}

	if sel == nil {
		return models.SidebandSpec{}, fmt.Errorf("%w: no sideband spec and no selector", models.ErrConfiguration)
	}

	rect, err := sel.RequestRectangle(ctx, fft.LogMagnitude(spectrum))
	if err != nil {
		return models.SidebandSpec{}, fmt.Errorf("sideband selection: %w", err)
	}
	rect = rect.Canon()
	center, err := LocateSideband(spectrum, rect)
	if err != nil {
		return models.SidebandSpec{}, err
	}

	rows, cols := spectrum.Dims()
	candidates, err := CandidateSizes(rows, cols, center)
	if err != nil {
		return models.SidebandSpec{}, err
	}
	size := candidates[(len(candidates)-1)/2]
	if chooser, ok := sel.(selector.SizeChooser); ok {
		size, err = chooser.ChooseSize(ctx, candidates)
		if err != nil {
			return models.SidebandSpec{}, fmt.Errorf("sideband size selection: %w", err)
		}
	} else {
		p.sink.Info("pair", "selector cannot choose a size, using the half-distance candidate", diag.Fields{
			"candidates": candidates,
			"size":       size,
		})
	}
	size -= size % 2

	return models.SidebandSpec{
		Rect:         rect,
		Center:       center,
		Size:         size,
		FresnelRatio: p.defaults.FresnelRatio,
		FresnelWidth: p.defaults.FresnelWidth,
	}, nil
}

// divide returns a / b elementwise following IEEE semantics.
func divide(a, b *mat.CDense) *mat.CDense {
	rows, cols := a.Dims()
	out := mat.NewCDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, a.At(i, j)/b.At(i, j))
		}
	}
	return out
}

// derive returns the wrapped phase and the amplitude of wave and the number
// of non-finite elements.
func derive(wave *mat.CDense) (phase, amplitude *mat.Dense, nonFinite int) {
	rows, cols := wave.Dims()
	phase = mat.NewDense(rows, cols, nil)
	amplitude = mat.NewDense(rows, cols, nil)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			z := wave.At(i, j)
			if cmplx.IsNaN(z) || cmplx.IsInf(z) {
				nonFinite++
			}
			phase.Set(i, j, geometry.WrapToPi(cmplx.Phase(z)))
			amplitude.Set(i, j, cmplx.Abs(z))
		}
	}
	return phase, amplitude, nonFinite
}
