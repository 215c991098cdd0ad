// Package alignment estimates and corrects the drift between two images or
// holograms of the same region.
package alignment

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"holorecon/internal/models"
	"holorecon/pkg/diag"
	"holorecon/pkg/selector"
)

// Options configures one alignment.
type Options struct {
	// Method selects the strategy and carries its parameters
	Method Method

	// FilterSize is the radius in frequency pixels of the low-pass disk both
	// images are reduced to before estimation; 0 disables the filter
	FilterSize float64

	// ROI restricts estimation to a region; nil means the whole image
	// unless SelectROI is set
	ROI *models.Rect

	// SelectROI asks the selector for a region on the filtered reference
	// when ROI is nil
	SelectROI bool
}

// Result is the outcome of an alignment.
type Result struct {
	// Aligned is the unfiltered target rolled by the rounded drift
	Aligned *mat.Dense

	// Drift maps the target onto the reference
	Drift models.DriftVector

	// ROI is the region the drift was estimated on
	ROI models.Rect
}

// estimator computes the drift of target against reference on the
// preprocessed images.
type estimator func(ctx context.Context, a *Aligner, reference, target *mat.Dense, roi models.Rect, m Method) (models.DriftVector, error)

var estimators = map[Strategy]estimator{
	StrategyRegistration:     estimateRegistration,
	StrategyCrossCorrelation: estimateCrossCorrelation,
	StrategyFiducial:         estimateFiducial,
	StrategyManual:           estimateManual,
}

// Aligner runs drift estimation strategies. The selector is only consulted
// for interactive ROI and fiducial selection and may be nil otherwise.
type Aligner struct {
	selector selector.Selector
	sink     diag.Sink
}

// NewAligner creates an aligner.
func NewAligner(sel selector.Selector, sink diag.Sink) *Aligner {
	return &Aligner{selector: sel, sink: diag.OrNop(sink)}
}

// Align estimates the drift between reference and target with the method in
// opts and returns target rolled onto reference. Neither input is modified.
func (a *Aligner) Align(ctx context.Context, reference, target mat.Matrix, opts Options) (*Result, error) {
	if opts.Method == nil {
		return nil, fmt.Errorf("%w: no alignment method", models.ErrConfiguration)
	}
	strategy := opts.Method.Strategy()
	estimate, ok := estimators[strategy]
	if !ok {
		return nil, fmt.Errorf("%w: unknown alignment strategy %v", models.ErrConfiguration, strategy)
	}

	if reference == nil || target == nil {
		return nil, fmt.Errorf("%w: missing image", models.ErrConfiguration)
	}
	rows, cols := reference.Dims()
	if tr, tc := target.Dims(); tr != rows || tc != cols {
		return nil, fmt.Errorf("%w: target %dx%d does not match reference %dx%d",
			models.ErrConfiguration, tr, tc, rows, cols)
	}
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%w: empty image", models.ErrConfiguration)
	}
	if opts.FilterSize < 0 {
		return nil, fmt.Errorf("%w: negative filter size %g", models.ErrConfiguration, opts.FilterSize)
	}

	full := models.Rect{X1: cols, Y1: rows}
	if strategy == StrategyManual {
		drift, err := estimate(ctx, a, nil, nil, full, opts.Method)
		if err != nil {
			return nil, err
		}
		return a.apply(target, drift, full, strategy), nil
	}

	ref, tgt := mat.DenseCopyOf(reference), mat.DenseCopyOf(target)
	if opts.FilterSize > 0 {
		ref = BandPass(ref, opts.FilterSize)
		tgt = BandPass(tgt, opts.FilterSize)
	}

	roi, err := a.resolveROI(ctx, ref, opts)
	if err != nil {
		return nil, err
	}

	drift, err := estimate(ctx, a, ref, tgt, roi, opts.Method)
	if err != nil {
		return nil, err
	}
	return a.apply(target, drift, roi, strategy), nil
}

func (a *Aligner) apply(target mat.Matrix, drift models.DriftVector, roi models.Rect, strategy Strategy) *Result {
	dy, dx := drift.Rounded()
	a.sink.Info("alignment", "drift estimated", diag.Fields{
		"strategy": strategy.String(),
		"dx":       drift.DX,
		"dy":       drift.DY,
	})
	return &Result{
		Aligned: Roll(target, dy, dx),
		Drift:   drift,
		ROI:     roi,
	}
}

func (a *Aligner) resolveROI(ctx context.Context, reference *mat.Dense, opts Options) (models.Rect, error) {
	rows, cols := reference.Dims()
	roi := models.Rect{X1: cols, Y1: rows}

	switch {
	case opts.ROI != nil:
		roi = *opts.ROI
	case opts.SelectROI:
		if a.selector == nil {
			return models.Rect{}, fmt.Errorf("%w: ROI selection requested without a selector", models.ErrConfiguration)
		}
		r, err := a.selector.RequestRectangle(ctx, reference)
		if err != nil {
			return models.Rect{}, fmt.Errorf("alignment ROI selection: %w", err)
		}
		roi = r
	}

	roi = roi.Canon()
	if roi.Empty() {
		return models.Rect{}, fmt.Errorf("%w: empty alignment ROI %+v", models.ErrConfiguration, roi)
	}
	if !roi.Within(rows, cols) {
		return models.Rect{}, fmt.Errorf("%w: alignment ROI %+v outside %dx%d image", models.ErrBounds, roi, rows, cols)
	}
	return roi, nil
}

func estimateRegistration(_ context.Context, _ *Aligner, reference, target *mat.Dense, roi models.Rect, m Method) (models.DriftVector, error) {
	reg, err := methodAs[Registration](m)
	if err != nil {
		return models.DriftVector{}, err
	}
	return register(crop(reference, roi), crop(target, roi), reg.Upsample)
}

func estimateCrossCorrelation(_ context.Context, _ *Aligner, reference, target *mat.Dense, roi models.Rect, m Method) (models.DriftVector, error) {
	xc, err := methodAs[CrossCorrelation](m)
	if err != nil {
		return models.DriftVector{}, err
	}
	return crossCorrelate(reference, target, roi, xc.Bin)
}

// estimateFiducial asks for the same marker on the reference and the target
// crops. Points are in crop coordinates, which cancel in the difference.
func estimateFiducial(ctx context.Context, a *Aligner, reference, target *mat.Dense, roi models.Rect, _ Method) (models.DriftVector, error) {
	if a.selector == nil {
		return models.DriftVector{}, fmt.Errorf("%w: fiducial alignment needs a point selector", models.ErrConfiguration)
	}
	pRef, err := a.selector.RequestPoint(ctx, crop(reference, roi))
	if err != nil {
		return models.DriftVector{}, fmt.Errorf("reference fiducial: %w", err)
	}
	pTgt, err := a.selector.RequestPoint(ctx, crop(target, roi))
	if err != nil {
		return models.DriftVector{}, fmt.Errorf("target fiducial: %w", err)
	}
	return models.DriftVector{
		DX: math.Round(pRef.X - pTgt.X),
		DY: math.Round(pRef.Y - pTgt.Y),
	}, nil
}

func estimateManual(_ context.Context, _ *Aligner, _, _ *mat.Dense, _ models.Rect, m Method) (models.DriftVector, error) {
	manual, err := methodAs[Manual](m)
	if err != nil {
		return models.DriftVector{}, err
	}
	offset := manual.Offset
	if offset == nil {
		return models.DriftVector{}, fmt.Errorf("%w: manual alignment without an offset", models.ErrConfiguration)
	}
	return *offset, nil
}

// methodAs unwraps the parameters of the variant a strategy dispatched to.
func methodAs[T Method](m Method) (T, error) {
	v, ok := m.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: method %T does not carry %v parameters", models.ErrConfiguration, m, m.Strategy())
	}
	return v, nil
}
