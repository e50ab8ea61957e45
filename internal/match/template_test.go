// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litharvest/pkg/types"
)

// markPattern returns a deterministic 16x16 pseudo-random binary pattern.
// Its shifted copies are nearly uncorrelated, so only exact placements
// reach a high score.
func markPattern() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, 16, 16))
	state := uint32(2463534242)
	for i := range g.Pix {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		if state&1 == 1 {
			g.Pix[i] = 230
		} else {
			g.Pix[i] = 30
		}
	}
	return g
}

func canvas(w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = 128
	}
	return g
}

func stamp(dst *image.Gray, src *image.Gray, x, y int) {
	b := src.Bounds()
	for j := 0; j < b.Dy(); j++ {
		for i := 0; i < b.Dx(); i++ {
			dst.SetGray(x+i, y+j, src.GrayAt(i, j))
		}
	}
}

func mustTemplate(t *testing.T) *Template {
	t.Helper()
	tpl, err := NewTemplate(markPattern())
	require.NoError(t, err)
	return tpl
}

func TestCorrelate_ExactPlacementScoresOne(t *testing.T) {
	img := canvas(80, 60)
	stamp(img, markPattern(), 30, 20)

	m := Correlate(img, mustTemplate(t))
	require.Equal(t, 80-16+1, m.Width)
	require.Equal(t, 60-16+1, m.Height)
	assert.InDelta(t, 1.0, m.At(30, 20), 1e-9)
	assert.Less(t, m.At(31, 20), 0.8)
	assert.Less(t, m.At(30, 21), 0.8)
	assert.Equal(t, 0.0, m.At(0, 0), "flat window scores 0")
}

func TestCorrelate_InvariantToBrightnessAndContrast(t *testing.T) {
	img := canvas(40, 40)
	pat := markPattern()
	dim := image.NewGray(pat.Bounds())
	for i, v := range pat.Pix {
		dim.Pix[i] = v/2 + 10
	}
	stamp(img, dim, 10, 10)

	m := Correlate(img, mustTemplate(t))
	assert.InDelta(t, 1.0, m.At(10, 10), 1e-9)
}

func TestCorrelate_TemplateLargerThanImage(t *testing.T) {
	m := Correlate(canvas(8, 8), mustTemplate(t))
	assert.Equal(t, 0, m.Width)
	assert.Empty(t, m.Scores)
}

func TestCorrelate_SubImage(t *testing.T) {
	img := canvas(100, 100)
	stamp(img, markPattern(), 60, 70)
	sub := img.SubImage(image.Rect(50, 50, 100, 100)).(*image.Gray)

	pts := Matcher{Threshold: 0.8, Radius: 20}.Find(sub, mustTemplate(t))
	require.Len(t, pts, 1)
	assert.Equal(t, 10, pts[0].X)
	assert.Equal(t, 20, pts[0].Y)
}

func TestNewTemplate_Flat(t *testing.T) {
	_, err := NewTemplate(canvas(5, 5))
	assert.ErrorIs(t, err, ErrFlatTemplate)
}

func TestFind_RasterOrder(t *testing.T) {
	img := canvas(300, 200)
	coords := [][2]int{{200, 20}, {20, 20}, {100, 120}, {20, 150}}
	for _, c := range coords {
		stamp(img, markPattern(), c[0], c[1])
	}

	pts := Matcher{Threshold: 0.8, Radius: 20}.Find(img, mustTemplate(t))
	require.Len(t, pts, 4)
	got := make([][2]int, len(pts))
	for i, p := range pts {
		got[i] = [2]int{p.X, p.Y}
	}
	assert.Equal(t, [][2]int{{20, 20}, {200, 20}, {100, 120}, {20, 150}}, got)
}

func TestFind_Deterministic(t *testing.T) {
	img := canvas(200, 200)
	for _, c := range [][2]int{{10, 10}, {90, 40}, {150, 150}, {40, 120}} {
		stamp(img, markPattern(), c[0], c[1])
	}
	tpl := mustTemplate(t)
	m := Matcher{Threshold: 0.8, Radius: 20}

	first := m.Find(img, tpl)
	second := m.Find(img, tpl)
	assert.Equal(t, first, second)
	assert.Len(t, first, 4)
}

func TestFind_ThresholdIsTunable(t *testing.T) {
	img := canvas(60, 60)
	stamp(img, markPattern(), 20, 20)
	// Corrupt a quarter of the mark so the score drops below 1.
	for y := 20; y < 28; y++ {
		for x := 20; x < 28; x++ {
			img.SetGray(x, y, color.Gray{Y: 128})
		}
	}
	tpl := mustTemplate(t)

	assert.Empty(t, Matcher{Threshold: 0.95, Radius: 20}.Find(img, tpl))
	assert.Len(t, Matcher{Threshold: 0.5, Radius: 20}.Find(img, tpl), 1)
}

func TestDedup(t *testing.T) {
	tests := []struct {
		name   string
		points []types.MatchPoint
		want   []types.MatchPoint
	}{
		{
			name:   "close pair keeps first",
			points: []types.MatchPoint{{X: 10, Y: 10}, {X: 25, Y: 15}},
			want:   []types.MatchPoint{{X: 10, Y: 10}},
		},
		{
			name:   "exactly radius apart is a duplicate",
			points: []types.MatchPoint{{X: 0, Y: 0}, {X: 20, Y: 0}},
			want:   []types.MatchPoint{{X: 0, Y: 0}},
		},
		{
			name:   "just beyond radius kept",
			points: []types.MatchPoint{{X: 0, Y: 0}, {X: 15, Y: 14}},
			want:   []types.MatchPoint{{X: 0, Y: 0}, {X: 15, Y: 14}},
		},
		{
			name:   "compares against kept points only",
			points: []types.MatchPoint{{X: 0, Y: 0}, {X: 15, Y: 0}, {X: 30, Y: 0}},
			want:   []types.MatchPoint{{X: 0, Y: 0}, {X: 30, Y: 0}},
		},
		{
			name:   "empty",
			points: nil,
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Dedup(tt.points, 20))
		})
	}
}

func TestNewMatcher_Defaults(t *testing.T) {
	m := NewMatcher(types.HarvestConfig{})
	assert.Equal(t, DefaultThreshold, m.Threshold)
	assert.Equal(t, DefaultRadius, m.Radius)

	m = NewMatcher(types.HarvestConfig{Threshold: 0.9, DedupRadius: 5})
	assert.Equal(t, 0.9, m.Threshold)
	assert.Equal(t, 5.0, m.Radius)
}

func TestLoadTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mark.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, markPattern()))
	require.NoError(t, f.Close())

	tpl, err := LoadTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, 16, tpl.Width)
	assert.Equal(t, 16, tpl.Height)

	_, err = LoadTemplate(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
