// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package screen

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"github.com/pdiddy/litharvest/pkg/types"
)

// displayBackend abstracts the OS capture calls for testing.
type displayBackend interface {
	NumDisplays() int
	Bounds(display int) image.Rectangle
	CaptureRect(r image.Rectangle) (*image.RGBA, error)
}

// osBackend is the production backend backed by kbinani/screenshot.
type osBackend struct{}

func (osBackend) NumDisplays() int                   { return screenshot.NumActiveDisplays() }
func (osBackend) Bounds(display int) image.Rectangle { return screenshot.GetDisplayBounds(display) }
func (osBackend) CaptureRect(r image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(r)
}

// DisplayCapturer captures real displays.
type DisplayCapturer struct {
	backend displayBackend
}

var _ Capturer = (*DisplayCapturer)(nil)

// New returns a Capturer for the local displays.
func New() *DisplayCapturer {
	return &DisplayCapturer{backend: osBackend{}}
}

// Geometry returns the bounds of the display, queried fresh on each call.
func (c *DisplayCapturer) Geometry(display int) (types.MonitorGeometry, error) {
	n := c.backend.NumDisplays()
	if display < 0 || display >= n {
		return types.MonitorGeometry{}, fmt.Errorf("display %d of %d: %w", display, n, ErrNoDisplay)
	}
	b := c.backend.Bounds(display)
	return types.MonitorGeometry{Left: b.Min.X, Top: b.Min.Y, Width: b.Dx(), Height: b.Dy()}, nil
}

// Capture grabs the inset rectangle of the display.
func (c *DisplayCapturer) Capture(display int, region types.Region) (*Frame, error) {
	geom, err := c.Geometry(display)
	if err != nil {
		return nil, err
	}
	inset := geom.Inset(region)
	if inset.Width <= 0 || inset.Height <= 0 {
		return nil, fmt.Errorf("capture region %+v leaves no pixels on a %dx%d display", region, geom.Width, geom.Height)
	}
	rect := image.Rect(inset.Left, inset.Top, inset.Left+inset.Width, inset.Top+inset.Height)
	img, err := c.backend.CaptureRect(rect)
	if err != nil {
		return nil, fmt.Errorf("capturing %v: %w", rect, err)
	}
	return NewFrame(img, inset), nil
}
