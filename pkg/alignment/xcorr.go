package alignment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"holorecon/internal/models"
)

// minOverlap is the smallest fraction of the template that must overlap the
// reference for a placement to be scored.
const minOverlap = 0.5

// crossCorrelate cuts the ROI out of the binned target as a template and
// slides it over every placement of the binned reference, including partial
// overlaps. Each placement is scored by the normalized correlation of the
// overlapping pixels. The drift is the displacement of the best placement
// from where the template was cut, scaled back by the bin factor.
func crossCorrelate(reference, target *mat.Dense, roi models.Rect, factor int) (models.DriftVector, error) {
	if factor < 1 {
		return models.DriftVector{}, fmt.Errorf("%w: bin factor %d must be at least 1", models.ErrConfiguration, factor)
	}

	ref := bin(reference, factor)
	tgt := bin(target, factor)
	rows, cols := ref.Dims()

	broi := models.Rect{X0: roi.X0 / factor, X1: roi.X1 / factor, Y0: roi.Y0 / factor, Y1: roi.Y1 / factor}
	if broi.Empty() {
		return models.DriftVector{}, fmt.Errorf("%w: ROI %+v vanishes after binning by %d", models.ErrConfiguration, roi, factor)
	}
	template := crop(tgt, broi)
	th, tw := template.Dims()
	need := int(math.Ceil(minOverlap * float64(th*tw)))

	best := math.Inf(-1)
	var bestU, bestV int
	for u := -(th - 1); u < rows; u++ {
		for v := -(tw - 1); v < cols; v++ {
			score, n := correlationAt(ref, template, u, v)
			if n < need {
				continue
			}
			if score > best {
				best, bestU, bestV = score, u, v
			}
		}
	}
	if math.IsInf(best, -1) {
		return models.DriftVector{}, fmt.Errorf("%w: template %dx%d does not fit the %dx%d reference", models.ErrBounds, th, tw, rows, cols)
	}

	return models.DriftVector{
		DX: float64((bestV - broi.X0) * factor),
		DY: float64((bestU - broi.Y0) * factor),
	}, nil
}

// correlationAt returns the Pearson correlation between the template placed
// with its top-left corner at (u, v) and the reference pixels under it, and
// the number of overlapping pixels. Flat overlaps score 0.
func correlationAt(ref, template *mat.Dense, u, v int) (float64, int) {
	rows, cols := ref.Dims()
	th, tw := template.Dims()

	i0, i1 := max(0, -u), min(th, rows-u)
	j0, j1 := max(0, -v), min(tw, cols-v)
	if i1 <= i0 || j1 <= j0 {
		return 0, 0
	}
	n := (i1 - i0) * (j1 - j0)

	var st, sr, stt, srr, str float64
	for i := i0; i < i1; i++ {
		for j := j0; j < j1; j++ {
			t := template.At(i, j)
			r := ref.At(u+i, v+j)
			st += t
			sr += r
			stt += t * t
			srr += r * r
			str += t * r
		}
	}

	fn := float64(n)
	cov := str - st*sr/fn
	vt := stt - st*st/fn
	vr := srr - sr*sr/fn
	if vt <= 0 || vr <= 0 {
		return 0, n
	}
	return cov / math.Sqrt(vt*vr), n
}
