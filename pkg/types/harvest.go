// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the litharvest tools:
// harvester geometry and match points, reference-manager records,
// screening verdicts, and export rows.
package types

import "fmt"

// MonitorGeometry is the absolute screen rectangle a capture was taken from.
// It translates image-local coordinates into screen coordinates.
type MonitorGeometry struct {
	Left   int `json:"left" yaml:"left"`
	Top    int `json:"top" yaml:"top"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// ToScreen converts an image-space point into absolute screen coordinates.
func (g MonitorGeometry) ToScreen(x, y int) (int, int) {
	return g.Left + x, g.Top + y
}

// Center returns the absolute centre of the rectangle.
func (g MonitorGeometry) Center() (int, int) {
	return g.Left + g.Width/2, g.Top + g.Height/2
}

// Inset applies a capture Region to the geometry.
func (g MonitorGeometry) Inset(r Region) MonitorGeometry {
	return MonitorGeometry{
		Left:   g.Left + r.Left,
		Top:    g.Top + r.Top,
		Width:  g.Width - r.Width,
		Height: g.Height - r.Height,
	}
}

// MatchPoint is an image-space location whose template score reached the threshold.
type MatchPoint struct {
	X     int     `json:"x" yaml:"x"`
	Y     int     `json:"y" yaml:"y"`
	Score float64 `json:"score" yaml:"score"`
}

func (p MatchPoint) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// PageReport summarises one page of a harvest run.
type PageReport struct {
	// Page is the 0-based page index.
	Page int `json:"page" yaml:"page"`

	// TopMatches and BottomMatches count deduplicated detections per capture.
	TopMatches    int `json:"top_matches" yaml:"top_matches"`
	BottomMatches int `json:"bottom_matches" yaml:"bottom_matches"`

	// Harvested counts links appended from this page.
	Harvested int `json:"harvested" yaml:"harvested"`

	// Dropped counts links discarded as consecutive duplicates.
	Dropped int `json:"dropped" yaml:"dropped"`
}
