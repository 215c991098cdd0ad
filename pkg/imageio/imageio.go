// Package imageio moves 2D arrays in and out of ordinary image files for the
// command-line host. The processing packages never touch files themselves.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Load reads a PNG, JPEG or TIFF image and returns its intensities as a
// matrix with one element per pixel (rows are image lines).
func Load(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer f.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		img, err = tiff.Decode(f)
	default:
		img, err = Decode(f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return ToDense(img), nil
}

// Decode reads any registered image format from r.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	return img, err
}

// ToDense converts an image to 16-bit grey levels stored as float64.
func ToDense(img image.Image) *mat.Dense {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := mat.NewDense(height, width, nil)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			out.Set(y, x, float64(g.Y))
		}
	}
	return out
}

// ToGray16 maps m linearly onto the 16-bit range, minimum to 0 and maximum
// to 65535. Non-finite elements become 0.
func ToGray16(m mat.Matrix) *image.Gray16 {
	rows, cols := m.Dims()
	values := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := m.At(i, j); !math.IsNaN(v) && !math.IsInf(v, 0) {
				values = append(values, v)
			}
		}
	}

	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	if len(values) == 0 {
		return img
	}
	lo, hi := floats.Min(values), floats.Max(values)
	span := hi - lo

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) || span == 0 {
				continue
			}
			level := uint16(math.Round((v - lo) / span * 65535))
			img.SetGray16(j, i, color.Gray16{Y: level})
		}
	}
	return img
}

// Save writes m as a normalized 16-bit greyscale PNG, creating parent
// directories as needed.
func Save(path string, m mat.Matrix) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, ToGray16(m)); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}
