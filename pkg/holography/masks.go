package holography

import (
	"math"

	"holorecon/internal/models"
	"holorecon/pkg/geometry"
)

// sincConstant stretches the apodization window relative to the sideband
// size.
const sincConstant = 5.0

// apertureMask keeps the pixels of an ny x nx ROI strictly closer to its
// center than half the shorter edge.
func apertureMask(ny, nx int) *models.Mask {
	mask := models.NewMask(ny, nx)
	radius := float64(min(ny/2, nx/2))

	for i := 0; i < ny; i++ {
		y := float64(i - ny/2)
		for j := 0; j < nx; j++ {
			x := float64(j - nx/2)
			if math.Sqrt(x*x+y*y) < radius {
				mask.Set(i, j, true)
			}
		}
	}
	return mask
}

// fresnelMask marks the strip of an ny x nx sideband ROI covered by the
// Fresnel fringe streak. The strip runs along the line joining the sideband
// at center and the middle of a rows x cols transform, on the centre-band
// side, from ratio*radius out to the aperture radius.
func fresnelMask(ny, nx int, center models.Pixel, rows, cols int, ratio, width float64) *models.Mask {
	radius := float64(min(ny/2, nx/2))
	ang := math.Atan2(float64(rows/2-center.Row), float64(cols/2-center.Col))
	sin, cos := math.Sincos(ang)

	inner := [2]float64{math.RoundToEven(ratio * radius * sin), math.RoundToEven(ratio * radius * cos)}
	outer := [2]float64{math.RoundToEven(radius * sin), math.RoundToEven(radius * cos)}

	left := geometry.WrapToTwoPi(ang - math.Pi/2)
	right := geometry.WrapToTwoPi(ang + math.Pi/2)
	half := width / 2
	cy, cx := float64(ny/2), float64(nx/2)

	corner := func(p [2]float64, a float64) geometry.Vertex {
		s, c := math.Sincos(a)
		return geometry.Vertex{
			Row: math.RoundToEven(p[0]+half*s) + cy,
			Col: math.RoundToEven(p[1]+half*c) + cx,
		}
	}

	quad := []geometry.Vertex{
		corner(inner, left),
		corner(inner, right),
		corner(outer, right),
		corner(outer, left),
	}
	return geometry.PolygonMask(quad, ny, nx)
}

// sincWindow returns the 1D apodization window of the given length,
// sampled at x = -size/2 ... size/2-1. Its peak value is 1.
func sincWindow(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		x := float64(i - size/2)
		w[i] = normalizedSinc(x * math.Pi / (sincConstant * float64(size)))
	}
	return w
}

func normalizedSinc(u float64) float64 {
	if u == 0 {
		return 1
	}
	return math.Sin(math.Pi*u) / (math.Pi * u)
}
