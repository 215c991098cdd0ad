package models

import "math"

// Rect is a rectangular region of interest in image (or frequency-domain)
// pixel coordinates. It covers the half-open ranges [X0,X1) and [Y0,Y1).
type Rect struct {
	// X0, X1 bound the columns of the region
	X0 int `yaml:"x0"`
	X1 int `yaml:"x1"`

	// Y0, Y1 bound the rows of the region
	Y0 int `yaml:"y0"`
	Y1 int `yaml:"y1"`
}

// Canon returns the rectangle with its corners ordered so that X0 <= X1 and
// Y0 <= Y1. A rectangle dragged from bottom-right to top-left comes back
// from a selector with swapped corners.
func (r Rect) Canon() Rect {
	if r.X0 > r.X1 {
		r.X0, r.X1 = r.X1, r.X0
	}
	if r.Y0 > r.Y1 {
		r.Y0, r.Y1 = r.Y1, r.Y0
	}
	return r
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

// Within reports whether the rectangle lies fully inside an image of the
// given shape.
func (r Rect) Within(rows, cols int) bool {
	return r.X0 >= 0 && r.Y0 >= 0 && r.X1 <= cols && r.Y1 <= rows
}

// Width returns the number of columns covered.
func (r Rect) Width() int { return r.X1 - r.X0 }

// Height returns the number of rows covered.
func (r Rect) Height() int { return r.Y1 - r.Y0 }

// Pixel addresses a single element of a 2D array.
type Pixel struct {
	Row int `yaml:"row"`
	Col int `yaml:"col"`
}

// Point is a location picked by an interactive selector, X along columns and
// Y along rows.
type Point struct {
	X float64
	Y float64
}

// SidebandSpec describes where and how to cut a sideband out of the
// frequency-domain transform of a hologram. It is resolved once per
// acquisition series and reused for every hologram pair of that series.
type SidebandSpec struct {
	// Rect is the frequency-domain search rectangle the center was located in
	Rect Rect `yaml:"rect"`

	// Center is the sideband position (row, col) in the centered transform
	Center Pixel `yaml:"center"`

	// Size is the edge length of the square sideband ROI; positive and even
	Size int `yaml:"size"`

	// FresnelRatio is the inner end of the Fresnel exclusion strip as a
	// fraction of the aperture radius, in (0, 1]
	FresnelRatio float64 `yaml:"fresnelRatio"`

	// FresnelWidth is the width of the Fresnel exclusion strip in pixels;
	// its corners sit FresnelWidth/2 either side of the radial line
	FresnelWidth float64 `yaml:"fresnelWidth"`
}

// DriftVector is the translation that maps a target image onto a reference
// image: rolling the target by (DY rows, DX cols) registers it.
type DriftVector struct {
	DX float64 `yaml:"dx"`
	DY float64 `yaml:"dy"`
}

// Rounded returns the drift rounded to whole pixels, the form in which it
// is applied.
func (d DriftVector) Rounded() (dy, dx int) {
	return int(math.Round(d.DY)), int(math.Round(d.DX))
}
