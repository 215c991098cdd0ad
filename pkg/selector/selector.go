// Package selector defines the interactive selection capability the
// processing packages depend on, together with a scripted implementation for
// tests and batch runs and a line-oriented terminal prompt.
package selector

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"holorecon/internal/models"
)

// RectangleSelector asks a user for a rectangle on a view of some array.
type RectangleSelector interface {
	RequestRectangle(ctx context.Context, view mat.Matrix) (models.Rect, error)
}

// PointSelector asks a user for a single point on a view of some array.
type PointSelector interface {
	RequestPoint(ctx context.Context, view mat.Matrix) (models.Point, error)
}

// Selector is the full interactive capability.
type Selector interface {
	RectangleSelector
	PointSelector
}

// SizeChooser lets a user pick one of several proposed sideband sizes.
// Selectors that do not implement it leave the choice to the caller.
type SizeChooser interface {
	ChooseSize(ctx context.Context, candidates []int) (int, error)
}
