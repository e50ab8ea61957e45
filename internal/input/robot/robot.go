// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package robot implements input.Driver on the local desktop with robotgo.
// It needs cgo and, on Linux, the X11 and XTest development headers.
package robot

import (
	"fmt"

	"github.com/go-vgo/robotgo"

	"github.com/pdiddy/litharvest/internal/input"
)

// Robot controls the local pointer, wheel and clipboard.
type Robot struct{}

var (
	_ input.Driver  = (*Robot)(nil)
	_ input.Locator = (*Robot)(nil)
)

// New returns a driver for the local desktop.
func New() *Robot {
	return &Robot{}
}

// Move places the pointer at absolute screen coordinates (x, y).
func (r *Robot) Move(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

// Click presses and releases button at the current pointer position.
func (r *Robot) Click(button input.Button) error {
	robotgo.Click(string(button), false)
	return nil
}

// Scroll turns the wheel by clicks notches: up for positive values, down
// for negative ones. Zero does nothing.
func (r *Robot) Scroll(clicks int) error {
	switch {
	case clicks > 0:
		robotgo.ScrollDir(clicks, "up")
	case clicks < 0:
		robotgo.ScrollDir(-clicks, "down")
	}
	return nil
}

// ReadClipboard returns the current text content of the clipboard.
func (r *Robot) ReadClipboard() (string, error) {
	text, err := robotgo.ReadAll()
	if err != nil {
		return "", fmt.Errorf("reading clipboard: %w", err)
	}
	return text, nil
}

// Position returns the current pointer location.
func (r *Robot) Position() (int, int) {
	return robotgo.Location()
}
