// Package screenshot compares rendered pages against design screenshots.
package screenshot

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// maxYIQDelta is the largest possible YIQ distance between two colors.
const maxYIQDelta = 35215.0

// ErrSizeMismatch is returned when images differ in size and the caller did
// not allow it.
var ErrSizeMismatch = errors.New("image sizes differ")

// Options tune Compare.
type Options struct {
	// Threshold is the per-pixel color tolerance in 0..1; smaller is stricter.
	Threshold float64
	// AllowSizeMismatch compares the overlapping area and counts every pixel
	// outside it as different.
	AllowSizeMismatch bool
	// Alpha is the opacity of the unchanged pixels in the diff image.
	Alpha float64
	// DiffColor marks changed pixels.
	DiffColor color.RGBA
}

// DefaultOptions matches the usual pixelmatch defaults.
func DefaultOptions() Options {
	return Options{
		Threshold: 0.1,
		Alpha:     0.1,
		DiffColor: color.RGBA{R: 255, A: 255},
	}
}

// Result describes a comparison.
type Result struct {
	Width            int         `json:"width"`
	Height           int         `json:"height"`
	MismatchedPixels int         `json:"mismatchedPixels"`
	TotalPixels      int         `json:"totalPixels"`
	Ratio            float64     `json:"ratio"`
	SizeMismatch     bool        `json:"sizeMismatch"`
	Diff             *image.RGBA `json:"-"`
}

// Compare diffs two images pixel by pixel using the YIQ color distance.
func Compare(a, b image.Image, opts Options) (*Result, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("both images are required")
	}
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("threshold must be between 0 and 1, got %v", opts.Threshold)
	}
	if opts.DiffColor.A == 0 {
		opts.DiffColor = color.RGBA{R: 255, A: 255}
	}

	ab, bb := a.Bounds(), b.Bounds()
	sizeMismatch := ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy()
	if sizeMismatch && !opts.AllowSizeMismatch {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d", ErrSizeMismatch, ab.Dx(), ab.Dy(), bb.Dx(), bb.Dy())
	}

	width, height := max(ab.Dx(), bb.Dx()), max(ab.Dy(), bb.Dy())
	overlapW, overlapH := min(ab.Dx(), bb.Dx()), min(ab.Dy(), bb.Dy())
	diff := image.NewRGBA(image.Rect(0, 0, width, height))
	maxDelta := maxYIQDelta * opts.Threshold * opts.Threshold

	mismatched := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x >= overlapW || y >= overlapH {
				diff.SetRGBA(x, y, opts.DiffColor)
				mismatched++
				continue
			}

			pa := a.At(ab.Min.X+x, ab.Min.Y+y)
			pb := b.At(bb.Min.X+x, bb.Min.Y+y)
			if colorDelta(pa, pb) > maxDelta {
				diff.SetRGBA(x, y, opts.DiffColor)
				mismatched++
				continue
			}
			diff.SetRGBA(x, y, faded(pa, opts.Alpha))
		}
	}

	total := width * height
	ratio := 0.0
	if total > 0 {
		ratio = float64(mismatched) / float64(total)
	}
	return &Result{
		Width:            width,
		Height:           height,
		MismatchedPixels: mismatched,
		TotalPixels:      total,
		Ratio:            ratio,
		SizeMismatch:     sizeMismatch,
		Diff:             diff,
	}, nil
}

// rgba8 returns 8-bit channels blended over white.
func rgba8(c color.Color) (r, g, b float64) {
	cr, cg, cb, ca := c.RGBA()
	if ca == 0 {
		return 255, 255, 255
	}
	a := float64(ca) / 0xffff
	// RGBA() is alpha-premultiplied, so blending over white adds (1-a)*255.
	r = float64(cr)/0x101 + (1-a)*255
	g = float64(cg)/0x101 + (1-a)*255
	b = float64(cb)/0x101 + (1-a)*255
	return r, g, b
}

func colorDelta(c1, c2 color.Color) float64 {
	r1, g1, b1 := rgba8(c1)
	r2, g2, b2 := rgba8(c2)
	if r1 == r2 && g1 == g2 && b1 == b2 {
		return 0
	}

	y := rgb2y(r1, g1, b1) - rgb2y(r2, g2, b2)
	i := rgb2i(r1, g1, b1) - rgb2i(r2, g2, b2)
	q := rgb2q(r1, g1, b1) - rgb2q(r2, g2, b2)
	return 0.5053*y*y + 0.299*i*i + 0.1957*q*q
}

func rgb2y(r, g, b float64) float64 { return r*0.29889531 + g*0.58662247 + b*0.11448223 }
func rgb2i(r, g, b float64) float64 { return r*0.59597799 - g*0.27417610 - b*0.32180189 }
func rgb2q(r, g, b float64) float64 { return r*0.21147017 - g*0.52261711 + b*0.31114694 }

// faded renders an unchanged pixel as light grey.
func faded(c color.Color, alpha float64) color.RGBA {
	r, g, b := rgba8(c)
	y := rgb2y(r, g, b)
	v := 255 + (y-255)*alpha
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	gray := uint8(v)
	return color.RGBA{R: gray, G: gray, B: gray, A: 255}
}
