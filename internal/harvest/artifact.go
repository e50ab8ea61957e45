// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/pdiddy/litharvest/internal/screen"
	"github.com/pdiddy/litharvest/pkg/types"
)

// ArtifactSink records diagnostic screenshots of suspected capture errors.
type ArtifactSink interface {
	Save(page int, pt types.MatchPoint, frame *screen.Frame, box image.Rectangle) (string, error)
}

var outline = color.NRGBA{R: 255, A: 255}

const outlineWidth = 2

// DirArtifacts writes PNG screenshots into a directory, named by page index
// and raw image coordinates.
type DirArtifacts struct {
	Dir string
}

// Save writes a copy of frame with box outlined in red.
func (d DirArtifacts) Save(page int, pt types.MatchPoint, frame *screen.Frame, box image.Rectangle) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating debug directory: %w", err)
	}
	path := filepath.Join(d.Dir, ArtifactName(page, pt))
	if err := imaging.Save(Outline(frame, box), path); err != nil {
		return "", fmt.Errorf("saving %s: %w", path, err)
	}
	return path, nil
}

// ArtifactName returns the file name of a debug screenshot.
func ArtifactName(page int, pt types.MatchPoint) string {
	return fmt.Sprintf("page%02d_x%d_y%d.png", page, pt.X, pt.Y)
}

// Outline returns a copy of frame with a rectangle drawn around box.
func Outline(frame *screen.Frame, box image.Rectangle) *image.NRGBA {
	img := imaging.Clone(frame)
	box = box.Intersect(img.Bounds())
	if box.Empty() {
		return img
	}
	for w := 0; w < outlineWidth; w++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			img.SetNRGBA(x, box.Min.Y+w, outline)
			img.SetNRGBA(x, box.Max.Y-1-w, outline)
		}
		for y := box.Min.Y; y < box.Max.Y; y++ {
			img.SetNRGBA(box.Min.X+w, y, outline)
			img.SetNRGBA(box.Max.X-1-w, y, outline)
		}
	}
	return img
}
