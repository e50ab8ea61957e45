// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match locates a small grayscale template inside a larger image
// using zero-mean normalized cross-correlation and merges nearby hits.
package match

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // webp templates

	"github.com/pdiddy/litharvest/pkg/types"
)

const (
	DefaultThreshold = 0.8
	DefaultRadius    = 20.0
)

// ErrFlatTemplate is returned for a template with no intensity variation;
// its correlation is undefined everywhere.
var ErrFlatTemplate = errors.New("template has uniform intensity")

// Template is a single-channel reference image with its zero-mean
// intensities precomputed.
type Template struct {
	Width  int
	Height int

	zero []float64 // pixel - mean, row-major
	ss   float64   // sum of zero^2
}

// LoadTemplate reads a raster image file and converts it to grayscale.
func LoadTemplate(path string) (*Template, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening template %s: %w", path, err)
	}
	return NewTemplate(toGray(img))
}

// NewTemplate prepares a grayscale image for matching.
func NewTemplate(g *image.Gray) (*Template, error) {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("template is empty")
	}

	var sum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum += float64(g.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
		}
	}
	mean := sum / float64(w*h)

	t := &Template{Width: w, Height: h, zero: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := float64(g.GrayAt(b.Min.X+x, b.Min.Y+y).Y) - mean
			t.zero[y*w+x] = d
			t.ss += d * d
		}
	}
	if t.ss == 0 {
		return nil, ErrFlatTemplate
	}
	return t, nil
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	n := imaging.Grayscale(img)
	b := n.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for i := range g.Pix {
		g.Pix[i] = n.Pix[i*4]
	}
	return g
}

// rebase copies a sub-image so that its bounds start at the origin.
func rebase(img *image.Gray) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	return out
}

// ScoreMap holds one correlation score per template offset, row-major.
type ScoreMap struct {
	Width  int
	Height int
	Scores []float64
}

// At returns the score at offset (x, y).
func (m ScoreMap) At(x, y int) float64 {
	return m.Scores[y*m.Width+x]
}

// Correlate computes the normalized correlation coefficient of the template
// at every offset where it fits entirely inside img. Offsets whose window has
// no intensity variation score 0.
func Correlate(img *image.Gray, t *Template) ScoreMap {
	if img.Rect.Min != (image.Point{}) {
		img = rebase(img)
	}
	W, H := img.Rect.Dx(), img.Rect.Dy()
	if t.Width > W || t.Height > H {
		return ScoreMap{}
	}

	// Integral images give each window's sum and sum of squares in O(1).
	iw := W + 1
	sum := make([]float64, iw*(H+1))
	sq := make([]float64, iw*(H+1))
	for y := 0; y < H; y++ {
		var rs, rq float64
		row := img.Pix[y*img.Stride:]
		for x := 0; x < W; x++ {
			v := float64(row[x])
			rs += v
			rq += v * v
			sum[(y+1)*iw+x+1] = sum[y*iw+x+1] + rs
			sq[(y+1)*iw+x+1] = sq[y*iw+x+1] + rq
		}
	}

	n := float64(t.Width * t.Height)
	m := ScoreMap{Width: W - t.Width + 1, Height: H - t.Height + 1}
	m.Scores = make([]float64, m.Width*m.Height)

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			x2, y2 := x+t.Width, y+t.Height
			ws := sum[y2*iw+x2] - sum[y*iw+x2] - sum[y2*iw+x] + sum[y*iw+x]
			wq := sq[y2*iw+x2] - sq[y*iw+x2] - sq[y2*iw+x] + sq[y*iw+x]
			variance := wq - ws*ws/n
			if variance < 1e-6 {
				continue
			}

			var num float64
			for j := 0; j < t.Height; j++ {
				row := img.Pix[(y+j)*img.Stride+x:]
				tz := t.zero[j*t.Width : (j+1)*t.Width]
				for i, z := range tz {
					num += z * float64(row[i])
				}
			}
			m.Scores[y*m.Width+x] = num / math.Sqrt(t.ss*variance)
		}
	}
	return m
}

// Matcher finds deduplicated template occurrences.
type Matcher struct {
	// Threshold is the minimum score of a detection.
	Threshold float64

	// Radius merges detections within this Euclidean distance (inclusive).
	Radius float64
}

// NewMatcher returns a Matcher with the configured threshold and radius,
// falling back to the defaults for non-positive values.
func NewMatcher(cfg types.HarvestConfig) Matcher {
	m := Matcher{Threshold: cfg.Threshold, Radius: cfg.DedupRadius}
	if m.Threshold <= 0 {
		m.Threshold = DefaultThreshold
	}
	if m.Radius <= 0 {
		m.Radius = DefaultRadius
	}
	return m
}

// Find returns the offsets scoring at least Threshold, in raster order
// (top to bottom, left to right), with nearby duplicates removed.
func (m Matcher) Find(img *image.Gray, t *Template) []types.MatchPoint {
	scores := Correlate(img, t)
	var raw []types.MatchPoint
	for y := 0; y < scores.Height; y++ {
		for x := 0; x < scores.Width; x++ {
			if s := scores.At(x, y); s >= m.Threshold {
				raw = append(raw, types.MatchPoint{X: x, Y: y, Score: s})
			}
		}
	}
	return Dedup(raw, m.Radius)
}

// Dedup keeps a point only if it lies farther than radius from every point
// already kept. Input order decides which of two close points survives.
func Dedup(points []types.MatchPoint, radius float64) []types.MatchPoint {
	var kept []types.MatchPoint
	r2 := radius * radius
	for _, p := range points {
		dup := false
		for _, q := range kept {
			dx, dy := float64(p.X-q.X), float64(p.Y-q.Y)
			if dx*dx+dy*dy <= r2 {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, p)
		}
	}
	return kept
}
