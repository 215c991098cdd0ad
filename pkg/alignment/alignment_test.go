package alignment

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"holorecon/internal/models"
	"holorecon/pkg/diag"
	"holorecon/pkg/selector"
)

// texture returns a reproducible broadband test image with a few smooth
// blobs on top of uniform noise
func texture(rows, cols int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	m := mat.NewDense(rows, cols, nil)
	blobs := [][3]float64{{0.3, 0.4, 5}, {0.7, 0.2, 3}, {0.5, 0.8, 7}}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := rng.Float64()
			for _, b := range blobs {
				dy := float64(i) - b[0]*float64(rows)
				dx := float64(j) - b[1]*float64(cols)
				v += 4 * math.Exp(-(dx*dx+dy*dy)/(2*b[2]*b[2]))
			}
			m.Set(i, j, v)
		}
	}
	return m
}

func TestRoll(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 5, 6,
	})

	got := Roll(m, 1, -1)
	want := mat.NewDense(2, 3, []float64{
		5, 6, 4,
		2, 3, 1,
	})
	if !mat.Equal(got, want) {
		t.Errorf("Expected %v, got %v", mat.Formatted(want), mat.Formatted(got))
	}
	if m.At(0, 0) != 1 {
		t.Errorf("Roll must not modify its input")
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name string
		want Strategy
	}{
		{"registration", StrategyRegistration},
		{"imgreg", StrategyRegistration},
		{"CrossCorrelation", StrategyCrossCorrelation},
		{"xcorr", StrategyCrossCorrelation},
		{"fiducial", StrategyFiducial},
		{" manual ", StrategyManual},
	}

	for _, tc := range tests {
		got, err := ParseStrategy(tc.name)
		if err != nil {
			t.Errorf("ParseStrategy(%q) failed: %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseStrategy(%q): expected %v, got %v", tc.name, tc.want, got)
		}
	}

	if _, err := ParseStrategy("feducial"); !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for an unknown name, got %v", err)
	}
	if StrategyCrossCorrelation.String() != "crosscorrelation" {
		t.Errorf("Expected crosscorrelation, got %s", StrategyCrossCorrelation)
	}
}

func TestAlignManual(t *testing.T) {
	target := mat.NewDense(6, 7, nil)
	for i := 0; i < 6; i++ {
		for j := 0; j < 7; j++ {
			target.Set(i, j, float64(i*7+j))
		}
	}
	reference := mat.NewDense(6, 7, nil)

	offset := &models.DriftVector{DX: 3, DY: -2}
	a := NewAligner(nil, nil)
	res, err := a.Align(context.Background(), reference, target, Options{Method: Manual{Offset: offset}})
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}

	want := Roll(Roll(target, -2, 0), 0, 3)
	if !mat.Equal(res.Aligned, want) {
		t.Errorf("Expected %v, got %v", mat.Formatted(want), mat.Formatted(res.Aligned))
	}
	if res.Drift != *offset {
		t.Errorf("Expected drift %+v, got %+v", *offset, res.Drift)
	}
}

func TestAlignRegistrationSubPixel(t *testing.T) {
	base := texture(128, 128, 1)
	// the reference shows the scene 3px right and 2px up
	reference := Roll(base, -2, 3)
	rec := &diag.Recorder{}
	a := NewAligner(nil, rec)

	res, err := a.Align(context.Background(), reference, base, Options{Method: Registration{Upsample: 10}})
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}

	if math.Abs(res.Drift.DX-3) > 0.1 || math.Abs(res.Drift.DY+2) > 0.1 {
		t.Errorf("Expected drift near (3, -2), got (%v, %v)", res.Drift.DX, res.Drift.DY)
	}
	if !mat.Equal(res.Aligned, reference) {
		t.Errorf("Expected the aligned target to equal the reference")
	}
	if res.ROI != (models.Rect{X1: 128, Y1: 128}) {
		t.Errorf("Expected the full image as ROI, got %+v", res.ROI)
	}
	if len(rec.Level("info")) != 1 {
		t.Errorf("Expected the drift to be reported once, got %d events", len(rec.Level("info")))
	}
}

func TestAlignRegistrationWholePixelsOnROI(t *testing.T) {
	base := texture(64, 48, 2)
	reference := Roll(base, 5, -4)
	roi := &models.Rect{X0: 8, X1: 40, Y0: 10, Y1: 50}

	a := NewAligner(nil, nil)
	res, err := a.Align(context.Background(), reference, base, Options{Method: Registration{Upsample: 1}, ROI: roi})
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	if res.Drift.DX != -4 || res.Drift.DY != 5 {
		t.Errorf("Expected drift (-4, 5), got (%v, %v)", res.Drift.DX, res.Drift.DY)
	}
	if res.ROI != *roi {
		t.Errorf("Expected ROI %+v, got %+v", *roi, res.ROI)
	}
}

func TestAlignRegistrationInteractiveROI(t *testing.T) {
	base := texture(64, 64, 3)
	reference := Roll(base, 2, 2)
	rect := models.Rect{X0: 50, X1: 10, Y0: 60, Y1: 4}
	sel := selector.NewScripted(rect)

	a := NewAligner(sel, nil)
	res, err := a.Align(context.Background(), reference, base, Options{Method: Registration{Upsample: 4}, SelectROI: true})
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	if res.ROI != rect.Canon() {
		t.Errorf("Expected ROI %+v, got %+v", rect.Canon(), res.ROI)
	}
	if len(sel.Views) != 1 {
		t.Fatalf("Expected one rectangle request, got %d", len(sel.Views))
	}
	if r, c := sel.Views[0].Dims(); r != 64 || c != 64 {
		t.Errorf("Expected the whole reference as view, got %dx%d", r, c)
	}
	if math.Abs(res.Drift.DX-2) > 0.25 || math.Abs(res.Drift.DY-2) > 0.25 {
		t.Errorf("Expected drift near (2, 2), got (%v, %v)", res.Drift.DX, res.Drift.DY)
	}
}

func TestAlignCrossCorrelation(t *testing.T) {
	base := texture(40, 40, 4)
	reference := Roll(base, 4, -6)
	roi := &models.Rect{X0: 12, X1: 28, Y0: 12, Y1: 28}

	for _, factor := range []int{1, 2} {
		a := NewAligner(nil, nil)
		res, err := a.Align(context.Background(), reference, base, Options{
			Method: CrossCorrelation{Bin: factor},
			ROI:    roi,
		})
		if err != nil {
			t.Fatalf("bin %d: Align failed: %v", factor, err)
		}
		if res.Drift.DX != -6 || res.Drift.DY != 4 {
			t.Errorf("bin %d: expected drift (-6, 4), got (%v, %v)", factor, res.Drift.DX, res.Drift.DY)
		}
		if !mat.Equal(res.Aligned, reference) {
			t.Errorf("bin %d: expected the aligned target to equal the reference", factor)
		}
	}
}

func TestAlignFiducial(t *testing.T) {
	img := texture(20, 20, 5)
	roi := &models.Rect{X0: 2, X1: 18, Y0: 4, Y1: 16}
	sel := selector.NewScripted().WithPoints(
		models.Point{X: 10.4, Y: 5},
		models.Point{X: 7, Y: 8.2},
	)

	a := NewAligner(sel, nil)
	res, err := a.Align(context.Background(), img, img, Options{Method: Fiducial{}, ROI: roi})
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	if res.Drift.DX != 3 || res.Drift.DY != -3 {
		t.Errorf("Expected drift (3, -3), got (%v, %v)", res.Drift.DX, res.Drift.DY)
	}
	if len(sel.Views) != 2 {
		t.Fatalf("Expected two point requests, got %d", len(sel.Views))
	}
	for i, v := range sel.Views {
		if r, c := v.Dims(); r != 12 || c != 16 {
			t.Errorf("View %d: expected the 12x16 ROI crop, got %dx%d", i, r, c)
		}
	}
}

type unknownMethod struct{}

func (unknownMethod) Strategy() Strategy { return Strategy(42) }

func TestAlignErrors(t *testing.T) {
	img := texture(16, 16, 6)
	ctx := context.Background()

	tests := []struct {
		name    string
		aligner *Aligner
		target  mat.Matrix
		opts    Options
		want    error
	}{
		{"no method", NewAligner(nil, nil), img, Options{}, models.ErrConfiguration},
		{"unknown strategy", NewAligner(nil, nil), img, Options{Method: unknownMethod{}}, models.ErrConfiguration},
		{"manual without offset", NewAligner(nil, nil), img, Options{Method: Manual{}}, models.ErrConfiguration},
		{"shape mismatch", NewAligner(nil, nil), mat.NewDense(8, 16, nil), Options{Method: Registration{Upsample: 1}}, models.ErrConfiguration},
		{"zero upsample", NewAligner(nil, nil), img, Options{Method: Registration{}}, models.ErrConfiguration},
		{"zero bin", NewAligner(nil, nil), img, Options{Method: CrossCorrelation{}}, models.ErrConfiguration},
		{"negative filter", NewAligner(nil, nil), img, Options{Method: Registration{Upsample: 1}, FilterSize: -1}, models.ErrConfiguration},
		{"roi outside", NewAligner(nil, nil), img, Options{Method: Registration{Upsample: 1}, ROI: &models.Rect{X0: 4, X1: 20, Y0: 0, Y1: 8}}, models.ErrBounds},
		{"empty roi", NewAligner(nil, nil), img, Options{Method: Registration{Upsample: 1}, ROI: &models.Rect{X0: 4, X1: 4, Y0: 0, Y1: 8}}, models.ErrConfiguration},
		{"selection without selector", NewAligner(nil, nil), img, Options{Method: Registration{Upsample: 1}, SelectROI: true}, models.ErrConfiguration},
		{"fiducial without selector", NewAligner(nil, nil), img, Options{Method: Fiducial{}}, models.ErrConfiguration},
		{"unanswered selection", NewAligner(selector.NewScripted(), nil), img, Options{Method: Fiducial{}}, models.ErrSelectionTimeout},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.aligner.Align(ctx, img, tc.target, tc.opts)
			if !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestBandPassRemovesFringes(t *testing.T) {
	m := mat.NewDense(32, 32, nil)
	for i := 0; i < 32; i++ {
		for j := 0; j < 32; j++ {
			m.Set(i, j, 1+math.Cos(2*math.Pi*16*float64(j)/32))
		}
	}

	out := BandPass(m, 4)
	for i := 0; i < 32; i++ {
		for j := 0; j < 32; j++ {
			if math.Abs(out.At(i, j)-1) > 1e-9 {
				t.Fatalf("Expected 1 at (%d,%d), got %v", i, j, out.At(i, j))
			}
		}
	}
}

func TestMethodFor(t *testing.T) {
	offset := &models.DriftVector{DX: 1}
	for _, s := range []Strategy{StrategyRegistration, StrategyCrossCorrelation, StrategyFiducial, StrategyManual} {
		m, err := MethodFor(s, 10, 2, offset)
		if err != nil {
			t.Fatalf("MethodFor(%v) failed: %v", s, err)
		}
		if m.Strategy() != s {
			t.Errorf("Expected strategy %v, got %v", s, m.Strategy())
		}
	}
	if m, _ := MethodFor(StrategyCrossCorrelation, 10, 2, nil); m.(CrossCorrelation).Bin != 2 {
		t.Errorf("Expected bin 2, got %+v", m)
	}
	if _, err := MethodFor(Strategy(9), 1, 1, nil); !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}
