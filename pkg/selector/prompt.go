package selector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"holorecon/internal/models"
	"holorecon/pkg/imageio"
)

// Prompt asks for selections on a line-oriented terminal. Each request
// waits at most Timeout for an answer. When a preview directory is set, the
// view being selected on is written there as a PNG first.
type Prompt struct {
	out        io.Writer
	timeout    time.Duration
	previewDir string

	once    sync.Once
	scanner *bufio.Scanner
	lines   chan string

	previews int
}

// NewPrompt creates a prompt reading answers from in and writing questions
// to out.
func NewPrompt(in io.Reader, out io.Writer, timeout time.Duration) *Prompt {
	return &Prompt{
		out:     out,
		timeout: timeout,
		scanner: bufio.NewScanner(in),
	}
}

// WithPreview makes the prompt save each view under dir before asking.
func (p *Prompt) WithPreview(dir string) *Prompt {
	p.previewDir = dir
	return p
}

func (p *Prompt) RequestRectangle(ctx context.Context, view mat.Matrix) (models.Rect, error) {
	p.preview(view, "rect")
	fmt.Fprint(p.out, "Select rectangle as 'x0 y0 x1 y1': ")

	line, err := p.readLine(ctx)
	if err != nil {
		return models.Rect{}, err
	}
	v, err := parseInts(line, 4)
	if err != nil {
		return models.Rect{}, fmt.Errorf("%w: rectangle %q: %v", models.ErrConfiguration, line, err)
	}
	return models.Rect{X0: v[0], Y0: v[1], X1: v[2], Y1: v[3]}.Canon(), nil
}

func (p *Prompt) RequestPoint(ctx context.Context, view mat.Matrix) (models.Point, error) {
	p.preview(view, "point")
	fmt.Fprint(p.out, "Select point as 'x y': ")

	line, err := p.readLine(ctx)
	if err != nil {
		return models.Point{}, err
	}
	fields := splitFields(line)
	if len(fields) != 2 {
		return models.Point{}, fmt.Errorf("%w: point %q: expected 2 values", models.ErrConfiguration, line)
	}
	x, errX := strconv.ParseFloat(fields[0], 64)
	y, errY := strconv.ParseFloat(fields[1], 64)
	if err := errors.Join(errX, errY); err != nil {
		return models.Point{}, fmt.Errorf("%w: point %q: %v", models.ErrConfiguration, line, err)
	}
	return models.Point{X: x, Y: y}, nil
}

// ChooseSize lists the candidates and reads the chosen size. An empty answer
// picks the middle candidate.
func (p *Prompt) ChooseSize(ctx context.Context, candidates []int) (int, error) {
	fmt.Fprintf(p.out, "Sideband size candidates in pixels: %v\n", candidates)
	fmt.Fprint(p.out, "Choose sideband size: ")

	line, err := p.readLine(ctx)
	if err != nil {
		return 0, err
	}
	line = strings.TrimSpace(line)
	if line == "" && len(candidates) > 0 {
		return candidates[(len(candidates)-1)/2], nil
	}
	size, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("%w: size %q: %v", models.ErrConfiguration, line, err)
	}
	return size, nil
}

func (p *Prompt) readLine(ctx context.Context) (string, error) {
	p.once.Do(func() {
		p.lines = make(chan string)
		go func() {
			defer close(p.lines)
			for p.scanner.Scan() {
				p.lines <- p.scanner.Text()
			}
		}()
	})

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case line, ok := <-p.lines:
		if !ok {
			return "", fmt.Errorf("%w: input closed", models.ErrSelectionTimeout)
		}
		return line, nil
	case <-timer.C:
		return "", fmt.Errorf("%w: no answer within %s", models.ErrSelectionTimeout, p.timeout)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", models.ErrSelectionTimeout, ctx.Err())
		}
		return "", ctx.Err()
	}
}

func (p *Prompt) preview(view mat.Matrix, kind string) {
	if p.previewDir == "" || view == nil {
		return
	}
	p.previews++
	path := filepath.Join(p.previewDir, fmt.Sprintf("select_%02d_%s.png", p.previews, kind))
	if err := imageio.Save(path, view); err != nil {
		fmt.Fprintf(p.out, "Warning: failed to save preview: %v\n", err)
		return
	}
	fmt.Fprintf(p.out, "View saved to %s\n", path)
}

func splitFields(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
}

func parseInts(line string, n int) ([]int, error) {
	fields := splitFields(line)
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(fields))
	}
	out := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
