// Package export writes baked texture maps to disk as PNG files and
// renders palette overview sheets for visual inspection.
package export

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/skintex/internal/skintone"
	"github.com/MeKo-Tech/skintex/internal/texture"
)

// MapFileName returns the file name a map is exported under,
// e.g. "e0ac8a_basecolor.png".
func MapFileName(tone skintone.Descriptor, kind texture.MapKind) string {
	return fmt.Sprintf("%s_%s.png", strings.TrimPrefix(tone.Hex, "#"), kind)
}

// WriteSet writes every map present in a set into dir, creating it if
// needed, and returns the paths written.
func WriteSet(dir string, tone skintone.Descriptor, set *texture.Set) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, 0, 4)
	for _, kind := range set.Kinds() {
		path := filepath.Join(dir, MapFileName(tone, kind))
		if err := WriteMap(path, set.Map(kind)); err != nil {
			return nil, fmt.Errorf("failed to export %s map for %s: %w", kind, tone.Hex, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteMap encodes one buffer as a PNG file.
func WriteMap(path string, buf *texture.Buffer) error {
	return WriteImage(path, buf.Image())
}

// WriteImage encodes any image as a PNG file.
func WriteImage(path string, img image.Image) error {
	outFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer outFile.Close() // nolint:errcheck

	if err := png.Encode(outFile, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
