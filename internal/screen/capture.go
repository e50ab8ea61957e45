// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package screen captures display regions as 3-channel frames for template
// matching. The capture backend is pluggable so the harvester can run
// against synthetic frames in tests.
package screen

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"

	"github.com/pdiddy/litharvest/pkg/types"
)

// ErrNoDisplay is returned when the requested display index does not exist.
var ErrNoDisplay = errors.New("display not found")

// Capturer grabs the pixels of one display, optionally inset by a Region.
type Capturer interface {
	// Geometry returns the absolute bounds of the display.
	Geometry(display int) (types.MonitorGeometry, error)

	// Capture returns the current pixels of the inset display rectangle.
	Capture(display int, region types.Region) (*Frame, error)
}

// Frame is a packed RGB pixel buffer (3 bytes per pixel, no alpha) plus the
// absolute rectangle it was captured from.
type Frame struct {
	Pix        []uint8
	Width      int
	Height     int
	Geometry   types.MonitorGeometry
	CapturedAt time.Time
}

// NewFrame converts any image into a Frame, dropping alpha.
func NewFrame(img image.Image, geom types.MonitorGeometry) *Frame {
	b := img.Bounds()
	f := &Frame{
		Pix:        make([]uint8, b.Dx()*b.Dy()*3),
		Width:      b.Dx(),
		Height:     b.Dy(),
		Geometry:   geom,
		CapturedAt: time.Now(),
	}
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < f.Height; y++ {
			src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+f.Width*4]
			dst := f.Pix[y*f.Width*3 : (y+1)*f.Width*3]
			for x := 0; x < f.Width; x++ {
				dst[x*3] = src[x*4]
				dst[x*3+1] = src[x*4+1]
				dst[x*3+2] = src[x*4+2]
			}
		}
		return f
	}
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			i := (y*f.Width + x) * 3
			f.Pix[i], f.Pix[i+1], f.Pix[i+2] = c.R, c.G, c.B
		}
	}
	return f
}

// Bounds implements image.Image.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// ColorModel implements image.Image.
func (f *Frame) ColorModel() color.Model {
	return color.RGBAModel
}

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return color.RGBA{}
	}
	i := (y*f.Width + x) * 3
	return color.RGBA{R: f.Pix[i], G: f.Pix[i+1], B: f.Pix[i+2], A: 0xff}
}

// Gray returns the single-channel intensity matrix of the frame.
func (f *Frame) Gray() *image.Gray {
	g := imaging.Grayscale(f)
	out := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	for i := 0; i < f.Width*f.Height; i++ {
		out.Pix[i] = g.Pix[i*4]
	}
	return out
}

// Fingerprint returns a perceptual difference hash of the frame.
func (f *Frame) Fingerprint() (*goimagehash.ImageHash, error) {
	h, err := goimagehash.DifferenceHash(f)
	if err != nil {
		return nil, fmt.Errorf("hashing frame: %w", err)
	}
	return h, nil
}

// Unchanged reports whether two frames are perceptually identical. It is a
// diagnostic only; a hashing failure reports false.
func Unchanged(a, b *Frame) bool {
	if a == nil || b == nil {
		return false
	}
	ha, err := a.Fingerprint()
	if err != nil {
		return false
	}
	hb, err := b.Fingerprint()
	if err != nil {
		return false
	}
	d, err := ha.Distance(hb)
	return err == nil && d == 0
}
