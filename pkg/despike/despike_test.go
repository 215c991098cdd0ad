package despike

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"

	"holorecon/internal/models"
)

func uniform(rows, cols int, v float64) *mat.Dense {
	m := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, v)
		}
	}
	return m
}

func TestDespikeSingleSpike(t *testing.T) {
	img := uniform(16, 16, 10)
	img.Set(7, 9, 10+100*8.0)

	res, err := Despike(img, DefaultParams())
	if err != nil {
		t.Fatalf("Despike failed: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("Expected 1 outlier, got %d", res.Count)
	}
	if !res.Mask.At(7, 9) {
		t.Errorf("Expected the spike at (7,9) to be flagged")
	}
	if img.At(7, 9) != 10 {
		t.Errorf("Expected the spike replaced by the local median 10, got %v", img.At(7, 9))
	}

	again, err := Despike(img, DefaultParams())
	if err != nil {
		t.Fatalf("Second Despike failed: %v", err)
	}
	if again.Count != 0 {
		t.Errorf("Expected no outliers on the cleaned image, got %d", again.Count)
	}
}

func TestDespikeSpikeOnEdge(t *testing.T) {
	img := uniform(12, 12, 3)
	img.Set(0, 0, -500)

	res, err := Despike(img, Params{Sigma: 4, KernelSize: 3})
	if err != nil {
		t.Fatalf("Despike failed: %v", err)
	}
	if res.Count != 1 || !res.Mask.At(0, 0) {
		t.Errorf("Expected only the corner flagged, got %d outliers", res.Count)
	}
	if img.At(0, 0) != 3 {
		t.Errorf("Expected the corner replaced by 3, got %v", img.At(0, 0))
	}
}

func TestCleanLeavesInputUntouched(t *testing.T) {
	img := uniform(16, 16, 1)
	img.Set(3, 3, 5000)

	out, res, err := Clean(img, DefaultParams())
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if res.Count != 1 {
		t.Errorf("Expected 1 outlier, got %d", res.Count)
	}
	if img.At(3, 3) != 5000 {
		t.Errorf("Clean modified its input")
	}
	if out.At(3, 3) != 1 {
		t.Errorf("Expected 1 in the cleaned copy, got %v", out.At(3, 3))
	}
}

func TestDespikeInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params Params
	}{
		{"even kernel", Params{Sigma: 8, KernelSize: 4}},
		{"tiny kernel", Params{Sigma: 8, KernelSize: 1}},
		{"zero sigma", Params{Sigma: 0, KernelSize: 5}},
		{"negative sigma", Params{Sigma: -2, KernelSize: 5}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			img := uniform(8, 8, 2)
			if _, err := Despike(img, tc.params); !errors.Is(err, models.ErrConfiguration) {
				t.Errorf("Expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestMedianReplicatesEdges(t *testing.T) {
	m := mat.NewDense(3, 3, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})

	med := Median(m, 3)
	if med.At(1, 1) != 5 {
		t.Errorf("Expected 5 at the center, got %v", med.At(1, 1))
	}
	if med.At(0, 0) != 2 {
		t.Errorf("Expected 2 at the corner, got %v", med.At(0, 0))
	}
	if med.At(2, 2) != 8 {
		t.Errorf("Expected 8 at the opposite corner, got %v", med.At(2, 2))
	}
}
