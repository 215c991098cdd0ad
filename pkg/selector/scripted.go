package selector

import (
	"context"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"holorecon/internal/models"
)

// Scripted answers selection requests from prepared queues. A request on an
// empty queue fails with models.ErrSelectionTimeout, as if nobody answered.
type Scripted struct {
	mu     sync.Mutex
	rects  []models.Rect
	points []models.Point
	sizes  []int

	// Views records every array a request was made on, in order.
	Views []mat.Matrix
}

// NewScripted creates a selector replaying the given rectangles.
func NewScripted(rects ...models.Rect) *Scripted {
	return &Scripted{rects: rects}
}

// WithPoints queues point answers.
func (s *Scripted) WithPoints(points ...models.Point) *Scripted {
	s.points = append(s.points, points...)
	return s
}

// WithSizes queues sideband size answers.
func (s *Scripted) WithSizes(sizes ...int) *Scripted {
	s.sizes = append(s.sizes, sizes...)
	return s
}

func (s *Scripted) RequestRectangle(ctx context.Context, view mat.Matrix) (models.Rect, error) {
	if err := ctx.Err(); err != nil {
		return models.Rect{}, fmt.Errorf("%w: %v", models.ErrSelectionTimeout, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Views = append(s.Views, view)

	if len(s.rects) == 0 {
		return models.Rect{}, fmt.Errorf("%w: no rectangle scripted", models.ErrSelectionTimeout)
	}
	r := s.rects[0]
	s.rects = s.rects[1:]
	return r, nil
}

func (s *Scripted) RequestPoint(ctx context.Context, view mat.Matrix) (models.Point, error) {
	if err := ctx.Err(); err != nil {
		return models.Point{}, fmt.Errorf("%w: %v", models.ErrSelectionTimeout, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Views = append(s.Views, view)

	if len(s.points) == 0 {
		return models.Point{}, fmt.Errorf("%w: no point scripted", models.ErrSelectionTimeout)
	}
	p := s.points[0]
	s.points = s.points[1:]
	return p, nil
}

func (s *Scripted) ChooseSize(ctx context.Context, candidates []int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrSelectionTimeout, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sizes) == 0 {
		return 0, fmt.Errorf("%w: no size scripted", models.ErrSelectionTimeout)
	}
	size := s.sizes[0]
	s.sizes = s.sizes[1:]
	return size, nil
}
