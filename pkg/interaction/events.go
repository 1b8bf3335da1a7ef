// Package interaction turns raw pointer, wheel and keyboard input into graph
// store mutations and viewport changes. It is a small state machine over
// graph.Mode: Idle, Panning, DraggingNode and Connecting.
package interaction

import "github.com/kittclouds/plankitt/pkg/geometry"

// Button mirrors MouseEvent.button in the browser.
type Button int

const (
	ButtonLeft   Button = 0
	ButtonMiddle Button = 1
	ButtonRight  Button = 2
)

// Modifiers held during a pointer event.
type Modifiers struct {
	Shift bool `json:"shift"`
	Alt   bool `json:"alt"`
	Ctrl  bool `json:"ctrl"`
	Meta  bool `json:"meta"`
}

// pans reports whether the modifiers turn a left press into a pan.
func (m Modifiers) pans() bool {
	return m.Shift || m.Alt
}

// PointerEvent is a pointer press, move or release in canvas-relative screen
// coordinates.
type PointerEvent struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Button    Button    `json:"button"`
	Modifiers Modifiers `json:"modifiers"`
}

// Point returns the event position.
func (e PointerEvent) Point() geometry.Point {
	return geometry.Point{X: e.X, Y: e.Y}
}

// WheelEvent is a scroll over the canvas. Negative DeltaY zooms in.
type WheelEvent struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaY float64 `json:"deltaY"`
}

// KeyEvent is a key press. InEditable is set when focus is in a text field,
// in which case the controller leaves the key alone.
type KeyEvent struct {
	Key        string `json:"key"`
	InEditable bool   `json:"inEditable"`
}

// TargetKind is what a screen point hits.
type TargetKind int

const (
	TargetCanvas TargetKind = iota
	TargetNode
	TargetHandle
)

// Target is a hit-test result.
type Target struct {
	Kind   TargetKind
	NodeID string
}
