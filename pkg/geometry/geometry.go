// Package geometry holds the pure coordinate math behind the planner canvas:
// screen/world conversion, zoom about a point, panning and edge curves.
//
// Render-time transform: screen = world*scale + offset.
package geometry

import "math"

// Point is a 2D coordinate. Whether it is in screen or world space is up to
// the caller.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p * k.
func (p Point) Scale(k float64) Point { return Point{X: p.X * k, Y: p.Y * k} }

// IsFinite reports whether both coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Viewport maps world coordinates to screen coordinates.
type Viewport struct {
	Scale  float64 `json:"scale"`
	Offset Point   `json:"offset"`
}

// Limits bounds the viewport scale and sets the zoom increment.
type Limits struct {
	MinScale float64 `json:"minScale" toml:"min_scale"`
	MaxScale float64 `json:"maxScale" toml:"max_scale"`
	Step     float64 `json:"step" toml:"zoom_step"`
}

// Defaults
const (
	DefaultMinScale = 0.1
	DefaultMaxScale = 3.0
	DefaultStep     = 0.1
)

// DefaultLimits returns the stock zoom range.
func DefaultLimits() Limits {
	return Limits{MinScale: DefaultMinScale, MaxScale: DefaultMaxScale, Step: DefaultStep}
}

// DefaultViewport is scale 1 with no pan.
func DefaultViewport() Viewport {
	return Viewport{Scale: 1}
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ScreenToWorld converts a screen point into world coordinates.
func ScreenToWorld(p Point, v Viewport) Point {
	return Point{
		X: (p.X - v.Offset.X) / v.Scale,
		Y: (p.Y - v.Offset.Y) / v.Scale,
	}
}

// WorldToScreen converts a world point into screen coordinates.
func WorldToScreen(p Point, v Viewport) Point {
	return Point{
		X: p.X*v.Scale + v.Offset.X,
		Y: p.Y*v.Scale + v.Offset.Y,
	}
}

// ZoomAt changes the scale by delta steps while keeping the world point under
// cursor fixed on screen. A zero delta, or a delta that clamps back to the
// current scale, returns v unchanged.
func ZoomAt(v Viewport, delta float64, cursor Point, l Limits) Viewport {
	if delta == 0 {
		return v
	}
	next := Clamp(v.Scale+delta*l.Step, l.MinScale, l.MaxScale)
	if next == v.Scale {
		return v
	}
	ratio := next / v.Scale
	return Viewport{
		Scale: next,
		Offset: Point{
			X: cursor.X - (cursor.X-v.Offset.X)*ratio,
			Y: cursor.Y - (cursor.Y-v.Offset.Y)*ratio,
		},
	}
}

// Pan translates the viewport by a screen-space delta. World space is unbounded.
func Pan(v Viewport, dx, dy float64) Viewport {
	v.Offset = Point{X: v.Offset.X + dx, Y: v.Offset.Y + dy}
	return v
}

// ScreenDeltaToWorld converts a screen-space movement into world units.
func ScreenDeltaToWorld(dx, dy float64, v Viewport) Point {
	return Point{X: dx / v.Scale, Y: dy / v.Scale}
}

// Rect is an axis-aligned box.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Circle is a round hit area.
type Circle struct {
	Center Point
	Radius float64
}

// Contains reports whether p lies inside or on c.
func (c Circle) Contains(p Point) bool {
	dx := p.X - c.Center.X
	dy := p.Y - c.Center.Y
	return dx*dx+dy*dy <= c.Radius*c.Radius
}

// Bounds accumulates the extent of a set of rectangles.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
	set                    bool
}

// Extend grows b to include r.
func (b *Bounds) Extend(r Rect) {
	if !b.set {
		b.MinX, b.MinY = r.X, r.Y
		b.MaxX, b.MaxY = r.X+r.Width, r.Y+r.Height
		b.set = true
		return
	}
	b.MinX = math.Min(b.MinX, r.X)
	b.MinY = math.Min(b.MinY, r.Y)
	b.MaxX = math.Max(b.MaxX, r.X+r.Width)
	b.MaxY = math.Max(b.MaxY, r.Y+r.Height)
}

// Empty reports whether nothing has been added.
func (b Bounds) Empty() bool { return !b.set }
