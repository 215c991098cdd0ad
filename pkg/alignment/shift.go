package alignment

import (
	"gonum.org/v1/gonum/mat"
)

// Roll circularly shifts m by dy rows and dx columns: the element at (i, j)
// moves to ((i+dy) mod rows, (j+dx) mod cols). Elements pushed past one
// edge re-enter at the opposite edge.
func Roll(m mat.Matrix, dy, dx int) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		ri := mod(i+dy, rows)
		for j := 0; j < cols; j++ {
			out.Set(ri, mod(j+dx, cols), m.At(i, j))
		}
	}
	return out
}

func mod(i, n int) int {
	r := i % n
	if r < 0 {
		r += n
	}
	return r
}
