// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package input defines the pointer, wheel and clipboard operations the
// harvester drives. The desktop backend lives in input/robot so that code
// written against Driver builds without the native input libraries.
package input

// Button identifies a mouse button.
type Button string

const (
	ButtonLeft  Button = "left"
	ButtonRight Button = "right"
)

// Driver simulates user input. Positive Scroll amounts scroll up, negative
// amounts scroll down.
type Driver interface {
	Move(x, y int) error
	Click(button Button) error
	Scroll(clicks int) error
	ReadClipboard() (string, error)
}

// Locator is implemented by drivers that can report the pointer position.
type Locator interface {
	Position() (int, int)
}
