// Package geometry provides the angle and polygon helpers used when building
// frequency-domain masks.
package geometry

import "math"

const twoPi = 2 * math.Pi

// WrapToTwoPi wraps an angle in radians to the range [0, 2π).
func WrapToTwoPi(angle float64) float64 {
	w := math.Mod(angle, twoPi)
	if w < 0 {
		w += twoPi
	}
	// A tiny negative input rounds up to exactly 2π above.
	if w >= twoPi {
		w = 0
	}
	return w
}

// WrapToPi wraps an angle in radians to the range (-π, π].
func WrapToPi(angle float64) float64 {
	return math.Pi - WrapToTwoPi(math.Pi-angle)
}
