package models

import "fmt"

// Mask is a boolean 2D array stored in row-major order.
type Mask struct {
	Rows int
	Cols int
	Data []bool
}

// NewMask allocates an all-false mask of the given shape.
func NewMask(rows, cols int) *Mask {
	return &Mask{
		Rows: rows,
		Cols: cols,
		Data: make([]bool, rows*cols),
	}
}

// At returns the value at row r, column c.
func (m *Mask) At(r, c int) bool {
	return m.Data[r*m.Cols+c]
}

// Set assigns the value at row r, column c.
func (m *Mask) Set(r, c int, v bool) {
	m.Data[r*m.Cols+c] = v
}

// Count returns the number of true elements.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v {
			n++
		}
	}
	return n
}

// Not returns the elementwise complement as a new mask.
func (m *Mask) Not() *Mask {
	out := NewMask(m.Rows, m.Cols)
	for i, v := range m.Data {
		out.Data[i] = !v
	}
	return out
}

// And returns the elementwise conjunction of m and o as a new mask.
// Both masks must have the same shape.
func (m *Mask) And(o *Mask) (*Mask, error) {
	if m.Rows != o.Rows || m.Cols != o.Cols {
		return nil, fmt.Errorf("%w: mask shapes %dx%d and %dx%d differ",
			ErrConfiguration, m.Rows, m.Cols, o.Rows, o.Cols)
	}
	out := NewMask(m.Rows, m.Cols)
	for i := range m.Data {
		out.Data[i] = m.Data[i] && o.Data[i]
	}
	return out, nil
}
