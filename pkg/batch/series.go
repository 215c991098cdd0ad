package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"holorecon/pkg/imageio"
)

var imageExts = map[string]bool{
	".tif":  true,
	".tiff": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// ListImages returns the image files of dir ordered by the number in their
// names, so that holo_2 comes before holo_10.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}

	sort.SliceStable(files, func(i, j int) bool {
		ni, nj := extractNumber(files[i]), extractNumber(files[j])
		if ni != nj {
			return ni < nj
		}
		return files[i] < files[j]
	})

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = filepath.Join(dir, f)
	}
	return paths, nil
}

// extractNumber returns the digits of a file name read as one number, or 0
func extractNumber(filename string) int {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	var digits strings.Builder
	for _, c := range base {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}

	if digits.Len() > 0 {
		if num, err := strconv.Atoi(digits.String()); err == nil {
			return num
		}
	}
	return 0
}

// LoadPairs loads every object hologram and pairs it with the reference
// hologram at referencePath. An empty referencePath leaves the references
// nil. The reference is loaded once and shared.
func LoadPairs(objectPaths []string, referencePath string) ([]Pair, error) {
	var reference mat.Matrix
	if referencePath != "" {
		ref, err := imageio.Load(referencePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load reference %s: %w", referencePath, err)
		}
		reference = ref
	}

	pairs := make([]Pair, 0, len(objectPaths))
	for _, path := range objectPaths {
		obj, err := imageio.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load hologram %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		pairs = append(pairs, Pair{Name: name, Object: obj, Reference: reference})
	}
	return pairs, nil
}

// SaveOutcome writes the phase and amplitude of a successful outcome to
// dir as <name>_phase.png and <name>_amplitude.png.
func SaveOutcome(dir string, o Outcome) error {
	if o.Err != nil || o.Result == nil {
		return fmt.Errorf("pair %s has no result", o.Name)
	}
	if err := imageio.Save(filepath.Join(dir, o.Name+"_phase.png"), o.Result.Phase); err != nil {
		return err
	}
	return imageio.Save(filepath.Join(dir, o.Name+"_amplitude.png"), o.Result.Amplitude)
}
