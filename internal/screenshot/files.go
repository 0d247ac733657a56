package screenshot

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
)

// Decode reads a PNG or JPEG image.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// LoadImage reads and decodes an image file.
func LoadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// WritePNG encodes img to path, creating parent directories.
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// CompareFiles compares two image files and writes the diff image to
// diffPath unless it is empty.
func CompareFiles(pathA, pathB, diffPath string, opts Options) (*Result, error) {
	a, err := LoadImage(pathA)
	if err != nil {
		return nil, err
	}
	b, err := LoadImage(pathB)
	if err != nil {
		return nil, err
	}

	res, err := Compare(a, b, opts)
	if err != nil {
		return nil, err
	}
	if diffPath != "" {
		if err := WritePNG(diffPath, res.Diff); err != nil {
			return nil, err
		}
	}
	return res, nil
}
